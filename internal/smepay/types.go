package smepay

import "strconv"

// Raw payment statuses reported by the provider. Anything else is treated as
// still pending.
const (
	StatusSuccess     = "SUCCESS"
	StatusTestSuccess = "TEST_SUCCESS"
	StatusFailed      = "FAILED"
)

// IsSuccess reports whether a raw provider status means the payment went through.
func IsSuccess(status string) bool {
	return status == StatusSuccess || status == StatusTestSuccess
}

// APIError is a failure reported by the provider or the transport. The message
// is shown to the shopper as-is, so it carries exactly what the API returned.
type APIError struct {
	Operation string
	Message   string
}

func (e *APIError) Error() string {
	return e.Message
}

type CustomerDetails struct {
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	Name   string `json:"name"`
}

type CreateOrderRequest struct {
	Amount      float64
	OrderID     string // remote order reference, "{id}-{ts}-{rand}"
	CallbackURL string
	Customer    CustomerDetails
}

type CreateOrderResponse struct {
	Slug            string
	ProviderOrderID string
}

type InitiateResponse struct {
	QRCode      string            `json:"qr_code"`
	PaymentLink string            `json:"payment_link"`
	Intents     map[string]string `json:"intents"`
}

type StatusResponse struct {
	PaymentStatus string
}

// FormatAmount renders an amount the way the provider expects it on the wire:
// a fixed two-decimal string, e.g. 100 -> "100.00".
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
