package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gatewaytypes "github.com/frahmantamala/tutoring-platform/internal/core/datamodel/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/transaction"
	"github.com/frahmantamala/tutoring-platform/internal/transport"
)

// signatureHeader carries the gateway's HMAC digest, optionally prefixed
// with a scheme like "Signature " or "HMAC ".
const signatureHeader = "Webhook-Signature"

type SignatureVerifierAPI interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type TransactionRouterAPI interface {
	UpdateStatusByGatewayPaymentID(ctx context.Context, gatewayPaymentID, gatewayStatus string, errorReason *string) (*transaction.Transaction, error)
}

type BindingReconcilerAPI interface {
	HandleBindingResult(ctx context.Context, view *gatewaytypes.PaymentView) error
}

type PaymentReconcilerAPI interface {
	HandleSessionPaymentResult(ctx context.Context, view *gatewaytypes.PaymentView) error
	RefreshFromGateway(ctx context.Context, gatewayPaymentID string) error
}

type WebhookHandler struct {
	*transport.BaseHandler
	verifier     SignatureVerifierAPI
	transactions TransactionRouterAPI
	bindings     BindingReconcilerAPI
	payments     PaymentReconcilerAPI
	logger       *slog.Logger
}

func NewWebhookHandler(
	baseHandler *transport.BaseHandler,
	verifier SignatureVerifierAPI,
	transactions TransactionRouterAPI,
	bindings BindingReconcilerAPI,
	payments PaymentReconcilerAPI,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:  baseHandler,
		verifier:     verifier,
		transactions: transactions,
		bindings:     bindings,
		payments:     payments,
		logger:       logger,
	}
}

type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleGatewayWebhook handles POST /api/v1/webhooks/yookassa.
//
// The signature is verified over the raw request bytes before anything is
// parsed. Routing prefers the local transaction matched by gateway payment
// id; payload shape heuristics are only a fallback for notifications that
// arrive before the transaction row has its gateway id.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.WriteJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: "invalid body"})
		return
	}

	// Always acknowledge with 200 so the gateway does not enter a redelivery
	// storm, and never say which verification step rejected the notification.
	signature := extractSignature(r.Header.Get(signatureHeader))
	if signature == "" || !h.verifier.VerifyWebhookSignature(body, signature) {
		h.logger.Error("webhook signature verification failed")
		h.WriteJSON(w, http.StatusOK, webhookResponse{Status: "error"})
		return
	}

	var payload gatewaytypes.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("failed to parse webhook payload", "error", err)
		h.WriteJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: "invalid payload"})
		return
	}

	if payload.Object.ID == "" {
		h.logger.Error("webhook payload missing payment id", "event", payload.Event)
		h.WriteJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: "missing payment id"})
		return
	}

	h.logger.Info("gateway webhook received",
		"event", payload.Event,
		"gateway_payment_id", payload.Object.ID,
		"gateway_status", payload.Object.Status)

	if err := h.dispatch(r.Context(), &payload); err != nil {
		h.logger.Error("webhook processing failed",
			"error", err,
			"gateway_payment_id", payload.Object.ID)
		h.WriteJSON(w, http.StatusOK, webhookResponse{Status: "error", Message: "processing failed"})
		return
	}

	h.WriteJSON(w, http.StatusOK, webhookResponse{Status: "success"})
}

func (h *WebhookHandler) dispatch(ctx context.Context, payload *gatewaytypes.WebhookPayload) error {
	var errorReason *string
	if reason := payload.Object.ErrorReason(); reason != "" {
		errorReason = &reason
	}

	tx, err := h.transactions.UpdateStatusByGatewayPaymentID(ctx, payload.Object.ID, payload.Object.Status, errorReason)
	if err != nil {
		return err
	}

	if tx != nil {
		switch tx.Type {
		case transaction.TypeCardBinding:
			return h.bindings.HandleBindingResult(ctx, &payload.Object)
		case transaction.TypeSessionPayment:
			return h.payments.HandleSessionPaymentResult(ctx, &payload.Object)
		default:
			h.logger.Warn("transaction with unknown type",
				"transaction_id", tx.ID,
				"type", tx.Type)
			return nil
		}
	}

	switch {
	case payload.IsSessionPayment():
		return h.payments.HandleSessionPaymentResult(ctx, &payload.Object)
	case payload.IsCardBinding():
		return h.bindings.HandleBindingResult(ctx, &payload.Object)
	default:
		h.logger.Warn("unhandled webhook, no matching transaction or recognizable shape",
			"event", payload.Event,
			"gateway_payment_id", payload.Object.ID)
		return nil
	}
}

// HandlePaymentCallback handles GET /api/v1/payments/callback, the browser
// redirect after 3-D Secure. It polls the gateway instead of trusting query
// parameters, and tolerates racing the webhook for the same payment.
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	gatewayPaymentID := r.URL.Query().Get("payment_id")
	if gatewayPaymentID == "" {
		h.WriteJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: "payment_id is required"})
		return
	}

	if err := h.payments.RefreshFromGateway(r.Context(), gatewayPaymentID); err != nil {
		h.logger.Error("payment callback processing failed",
			"error", err,
			"gateway_payment_id", gatewayPaymentID)
		h.WriteJSON(w, http.StatusOK, webhookResponse{Status: "error", Message: "processing failed"})
		return
	}

	h.WriteJSON(w, http.StatusOK, webhookResponse{Status: "success"})
}

func extractSignature(header string) string {
	header = strings.TrimSpace(header)
	for _, prefix := range []string{"Signature ", "signature ", "HMAC ", "hmac "} {
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	return header
}
