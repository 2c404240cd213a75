package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://api.yookassa.ru/v3"
	defaultTimeout = 30 * time.Second

	// Every bind charge is 1 ruble, captured never, saved always.
	bindAmountValue = "1.00"
	currencyRUB     = "RUB"
)

// Client talks to the YooKassa payments API. All calls carry Basic auth with
// the shop credentials and a fresh Idempotence-Key per request.
type Client struct {
	baseURL       string
	shopID        string
	secretKey     string
	returnURLBase string
	httpClient    *http.Client
	logger        *slog.Logger
}

type Config struct {
	ShopID        string
	SecretKey     string
	BaseURL       string
	ReturnURLBase string
	Timeout       time.Duration
}

func NewClient(config Config, logger *slog.Logger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:       baseURL,
		shopID:        config.ShopID,
		secretKey:     config.SecretKey,
		returnURLBase: config.ReturnURLBase,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

type createPaymentRequest struct {
	Amount            gatewaytypes.Amount        `json:"amount"`
	PaymentMethodID   string                     `json:"payment_method_id,omitempty"`
	Confirmation      *gatewaytypes.Confirmation `json:"confirmation,omitempty"`
	Capture           bool                       `json:"capture"`
	SavePaymentMethod bool                       `json:"save_payment_method,omitempty"`
	Description       string                     `json:"description,omitempty"`
	Metadata          map[string]string          `json:"metadata,omitempty"`
}

// CreateCardBinding starts a card-save flow: a 1 RUB payment with
// capture disabled so the hold is released, and save_payment_method set so
// the gateway tokenizes the card. The caller redirects the user to the
// returned confirmation URL.
func (c *Client) CreateCardBinding(ctx context.Context, userID string) (*gatewaytypes.PaymentView, error) {
	req := createPaymentRequest{
		Amount: gatewaytypes.Amount{
			Value:    bindAmountValue,
			Currency: currencyRUB,
		},
		Confirmation: &gatewaytypes.Confirmation{
			Type:      "redirect",
			ReturnURL: c.returnURLBase + "/profile/cards",
		},
		Capture:           false,
		SavePaymentMethod: true,
		Description:       "Card binding",
		Metadata: map[string]string{
			"user_id": userID,
		},
	}

	view, err := c.doPayment(ctx, http.MethodPost, "/payments", req)
	if err != nil {
		return nil, err
	}

	if view.Confirmation == nil || view.Confirmation.ConfirmationURL == "" {
		c.logger.Error("gateway returned binding payment without confirmation url",
			"gateway_payment_id", view.ID,
			"user_id", userID)
		return nil, errors.NewGatewayError("gateway did not return a confirmation URL", nil)
	}

	c.logger.Info("card binding payment created",
		"gateway_payment_id", view.ID,
		"user_id", userID)

	return view, nil
}

// CreateSessionPayment charges a saved card token for a tutoring session.
// The payment carries session metadata so inbound webhooks can be routed
// even when the local transaction record is missing.
func (c *Client) CreateSessionPayment(ctx context.Context, paymentID, methodToken string, amount decimal.Decimal, description string) (*gatewaytypes.PaymentView, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, errors.NewValidationError("amount must be positive", errors.ErrCodeInvalidAmount)
	}

	req := createPaymentRequest{
		Amount: gatewaytypes.Amount{
			Value:    amount.StringFixed(2),
			Currency: currencyRUB,
		},
		PaymentMethodID: methodToken,
		Capture:         true,
		Description:     description,
		Metadata: map[string]string{
			gatewaytypes.MetadataTypeKey: gatewaytypes.MetadataTypeSessionPayment,
			"payment_id":                 paymentID,
		},
	}

	view, err := c.doPayment(ctx, http.MethodPost, "/payments", req)
	if err != nil {
		return nil, err
	}

	c.logger.Info("session payment created",
		"gateway_payment_id", view.ID,
		"payment_id", paymentID,
		"status", view.Status)

	return view, nil
}

// CapturePayment confirms a payment the gateway is holding in
// waiting_for_capture.
func (c *Client) CapturePayment(ctx context.Context, gatewayPaymentID string, amount gatewaytypes.Amount) (*gatewaytypes.PaymentView, error) {
	path := fmt.Sprintf("/payments/%s/capture", gatewayPaymentID)

	view, err := c.doPayment(ctx, http.MethodPost, path, map[string]interface{}{
		"amount": amount,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("payment captured",
		"gateway_payment_id", view.ID,
		"status", view.Status)

	return view, nil
}

// GetPayment fetches the current gateway state of a payment.
func (c *Client) GetPayment(ctx context.Context, gatewayPaymentID string) (*gatewaytypes.PaymentView, error) {
	return c.doPayment(ctx, http.MethodGet, "/payments/"+gatewayPaymentID, nil)
}

func (c *Client) doPayment(ctx context.Context, method, path string, body interface{}) (*gatewaytypes.PaymentView, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}

	httpReq.SetBasicAuth(c.shopID, c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", uuid.New().String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway request failed", "method", method, "path", path, "error", err)
		return nil, errors.NewGatewayError("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewGatewayError("failed to read gateway response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("gateway returned error status",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
			"body", string(respBody))
		return nil, errors.NewGatewayError(
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode), nil)
	}

	var view gatewaytypes.PaymentView
	if err := json.Unmarshal(respBody, &view); err != nil {
		return nil, errors.NewGatewayError("failed to decode gateway response", err)
	}

	return &view, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature of a raw webhook
// body against the shop secret. The signature header carries the digest
// base64 encoded. Comparison is constant time.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		c.logger.Warn("webhook signature is not valid base64")
		return false
	}

	return hmac.Equal(expected, provided)
}
