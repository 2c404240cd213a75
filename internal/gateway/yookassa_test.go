package gateway_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shopspring/decimal"

	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/gateway"
)

var _ = Describe("Client", func() {
	var (
		client     *gateway.Client
		mockServer *httptest.Server
		logger     *slog.Logger

		lastRequest struct {
			method        string
			path          string
			authUser      string
			authPass      string
			idempotenceID string
			body          map[string]interface{}
		}
	)

	newClient := func(serverURL string) *gateway.Client {
		return gateway.NewClient(gateway.Config{
			ShopID:        "shop-123",
			SecretKey:     "secret-key",
			BaseURL:       serverURL,
			ReturnURLBase: "https://app.example.com",
		}, logger)
	}

	respondWith := func(view gatewaytypes.PaymentView) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			lastRequest.method = r.Method
			lastRequest.path = r.URL.Path
			lastRequest.authUser, lastRequest.authPass, _ = r.BasicAuth()
			lastRequest.idempotenceID = r.Header.Get("Idempotence-Key")
			if r.Body != nil {
				raw, _ := io.ReadAll(r.Body)
				if len(raw) > 0 {
					json.Unmarshal(raw, &lastRequest.body)
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(view)
		}
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		lastRequest.body = nil
	})

	AfterEach(func() {
		if mockServer != nil {
			mockServer.Close()
			mockServer = nil
		}
	})

	Describe("CreateCardBinding", func() {
		Context("when the gateway accepts the payment", func() {
			BeforeEach(func() {
				mockServer = httptest.NewServer(respondWith(gatewaytypes.PaymentView{
					ID:     "gw-pay-1",
					Status: gatewaytypes.StatusPending,
					Confirmation: &gatewaytypes.Confirmation{
						Type:            "redirect",
						ConfirmationURL: "https://yookassa.example/confirm/abc",
					},
				}))
				client = newClient(mockServer.URL)
			})

			It("sends a 1 RUB hold with save_payment_method and returns the confirmation URL", func() {
				view, err := client.CreateCardBinding(context.Background(), "user-1")

				Expect(err).ToNot(HaveOccurred())
				Expect(view.ID).To(Equal("gw-pay-1"))
				Expect(view.Confirmation.ConfirmationURL).To(Equal("https://yookassa.example/confirm/abc"))

				Expect(lastRequest.method).To(Equal(http.MethodPost))
				Expect(lastRequest.path).To(Equal("/payments"))

				amount := lastRequest.body["amount"].(map[string]interface{})
				Expect(amount["value"]).To(Equal("1.00"))
				Expect(amount["currency"]).To(Equal("RUB"))
				Expect(lastRequest.body["capture"]).To(BeFalse())
				Expect(lastRequest.body["save_payment_method"]).To(BeTrue())

				confirmation := lastRequest.body["confirmation"].(map[string]interface{})
				Expect(confirmation["type"]).To(Equal("redirect"))
				Expect(confirmation["return_url"]).To(Equal("https://app.example.com/profile/cards"))
			})

			It("authenticates with shop credentials and a fresh idempotence key", func() {
				_, err := client.CreateCardBinding(context.Background(), "user-1")

				Expect(err).ToNot(HaveOccurred())
				Expect(lastRequest.authUser).To(Equal("shop-123"))
				Expect(lastRequest.authPass).To(Equal("secret-key"))
				Expect(lastRequest.idempotenceID).ToNot(BeEmpty())

				firstKey := lastRequest.idempotenceID
				_, err = client.CreateCardBinding(context.Background(), "user-1")
				Expect(err).ToNot(HaveOccurred())
				Expect(lastRequest.idempotenceID).ToNot(Equal(firstKey))
			})
		})

		Context("when the gateway omits the confirmation URL", func() {
			BeforeEach(func() {
				mockServer = httptest.NewServer(respondWith(gatewaytypes.PaymentView{
					ID:     "gw-pay-2",
					Status: gatewaytypes.StatusPending,
				}))
				client = newClient(mockServer.URL)
			})

			It("returns a gateway error", func() {
				view, err := client.CreateCardBinding(context.Background(), "user-1")

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("confirmation URL"))
				Expect(view).To(BeNil())
			})
		})

		Context("when the gateway returns an error status", func() {
			BeforeEach(func() {
				mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"type": "error", "code": "invalid_credentials"}`))
				}))
				client = newClient(mockServer.URL)
			})

			It("returns a gateway error with the status code", func() {
				view, err := client.CreateCardBinding(context.Background(), "user-1")

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("401"))
				Expect(view).To(BeNil())
			})
		})
	})

	Describe("CreateSessionPayment", func() {
		Context("when the amount is not positive", func() {
			It("rejects the payment without calling the gateway", func() {
				called := false
				mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
				}))
				client = newClient(mockServer.URL)

				view, err := client.CreateSessionPayment(context.Background(), "pay-1", "token-1", decimal.Zero, "lesson")

				Expect(err).To(HaveOccurred())
				Expect(view).To(BeNil())
				Expect(called).To(BeFalse())
			})
		})

		Context("when the charge succeeds", func() {
			BeforeEach(func() {
				mockServer = httptest.NewServer(respondWith(gatewaytypes.PaymentView{
					ID:     "gw-pay-3",
					Status: gatewaytypes.StatusSucceeded,
					Paid:   true,
				}))
				client = newClient(mockServer.URL)
			})

			It("charges the saved token with capture and session metadata", func() {
				amount := decimal.RequireFromString("1500.50")
				view, err := client.CreateSessionPayment(context.Background(), "pay-1", "token-1", amount, "math lesson")

				Expect(err).ToNot(HaveOccurred())
				Expect(view.Status).To(Equal(gatewaytypes.StatusSucceeded))

				body := lastRequest.body
				Expect(body["payment_method_id"]).To(Equal("token-1"))
				Expect(body["capture"]).To(BeTrue())

				reqAmount := body["amount"].(map[string]interface{})
				Expect(reqAmount["value"]).To(Equal("1500.50"))

				metadata := body["metadata"].(map[string]interface{})
				Expect(metadata["type"]).To(Equal("session_payment"))
				Expect(metadata["payment_id"]).To(Equal("pay-1"))
			})
		})
	})

	Describe("CapturePayment", func() {
		BeforeEach(func() {
			mockServer = httptest.NewServer(respondWith(gatewaytypes.PaymentView{
				ID:     "gw-pay-4",
				Status: gatewaytypes.StatusSucceeded,
			}))
			client = newClient(mockServer.URL)
		})

		It("posts to the capture endpoint for the payment", func() {
			view, err := client.CapturePayment(context.Background(), "gw-pay-4", gatewaytypes.Amount{Value: "1.00", Currency: "RUB"})

			Expect(err).ToNot(HaveOccurred())
			Expect(view.Status).To(Equal(gatewaytypes.StatusSucceeded))
			Expect(lastRequest.path).To(Equal("/payments/gw-pay-4/capture"))
		})
	})

	Describe("VerifyWebhookSignature", func() {
		sign := func(secret string, body []byte) string {
			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write(body)
			return base64.StdEncoding.EncodeToString(mac.Sum(nil))
		}

		BeforeEach(func() {
			client = newClient("http://unused.example")
		})

		It("accepts a signature computed with the shop secret", func() {
			body := []byte(`{"event":"payment.succeeded"}`)
			Expect(client.VerifyWebhookSignature(body, sign("secret-key", body))).To(BeTrue())
		})

		It("rejects a signature computed with a different secret", func() {
			body := []byte(`{"event":"payment.succeeded"}`)
			Expect(client.VerifyWebhookSignature(body, sign("other-secret", body))).To(BeFalse())
		})

		It("rejects a signature over a tampered body", func() {
			body := []byte(`{"event":"payment.succeeded"}`)
			tampered := []byte(`{"event":"payment.canceled"}`)
			Expect(client.VerifyWebhookSignature(tampered, sign("secret-key", body))).To(BeFalse())
		})

		It("rejects empty and malformed signatures", func() {
			body := []byte(`{}`)
			Expect(client.VerifyWebhookSignature(body, "")).To(BeFalse())
			Expect(client.VerifyWebhookSignature(body, "not base64 !!!")).To(BeFalse())
		})
	})
})
