package gateway

// Wire shapes for the YooKassa payments API. Field names follow the
// gateway's JSON exactly; amounts are decimal strings like "2500.00".

const (
	StatusPending           = "pending"
	StatusSucceeded         = "succeeded"
	StatusCanceled          = "canceled"
	StatusFailed            = "failed"
	StatusWaitingForCapture = "waiting_for_capture"
)

const MetadataTypeSessionPayment = "session_payment"

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type Card struct {
	First6      string `json:"first6"`
	Last4       string `json:"last4"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CardType    string `json:"card_type"`
}

type PaymentMethodInfo struct {
	ID    string `json:"id"`
	Saved bool   `json:"saved"`
	Type  string `json:"type"`
	Card  *Card  `json:"card,omitempty"`
}

type CancellationDetails struct {
	Party  string `json:"party"`
	Reason string `json:"reason"`
}

// PaymentView is the gateway's representation of a payment, as returned by
// the create and get endpoints and embedded in webhook deliveries.
type PaymentView struct {
	ID                  string               `json:"id"`
	Status              string               `json:"status"`
	Paid                bool                 `json:"paid"`
	Amount              Amount               `json:"amount"`
	Confirmation        *Confirmation        `json:"confirmation,omitempty"`
	PaymentMethod       *PaymentMethodInfo   `json:"payment_method,omitempty"`
	Metadata            map[string]string    `json:"metadata,omitempty"`
	CancellationDetails *CancellationDetails `json:"cancellation_details,omitempty"`
}

// WebhookPayload is the envelope of an inbound gateway notification.
type WebhookPayload struct {
	Type   string      `json:"type"`
	Event  string      `json:"event"`
	Object PaymentView `json:"object"`
}

// ErrorReason extracts the most specific failure reason available.
func (p *PaymentView) ErrorReason() string {
	if p.CancellationDetails != nil && p.CancellationDetails.Reason != "" {
		return p.CancellationDetails.Reason
	}
	return ""
}

// IsCardBinding reports whether the payload looks like a card-bind
// confirmation: a saved payment method with no session metadata. Used only
// as a fallback when no local transaction matches the gateway id.
func (w *WebhookPayload) IsCardBinding() bool {
	return w.Object.PaymentMethod != nil &&
		w.Object.PaymentMethod.Saved &&
		w.Object.Metadata[MetadataTypeKey] != MetadataTypeSessionPayment
}

// IsSessionPayment reports whether the payload carries session-payment
// metadata.
func (w *WebhookPayload) IsSessionPayment() bool {
	return w.Object.Metadata[MetadataTypeKey] == MetadataTypeSessionPayment
}

const MetadataTypeKey = "type"
