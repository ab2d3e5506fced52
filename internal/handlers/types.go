package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/services"
)

// NonceService issues and checks the single-use checkout nonces, satisfied by
// services.NonceStore.
type NonceService interface {
	Issue(ctx context.Context) (string, error)
	Verify(ctx context.Context, nonce string) (bool, error)
}

// Handler carries the explicit dependencies of every HTTP surface; nothing is
// discovered through globals.
type Handler struct {
	Orders     interfaces.OrderRepository
	Gateways   map[string]*services.Gateway
	Nonces     NonceService
	Reconciler *services.Reconciler

	BaseURL        string
	CurrencySymbol string
	DefaultLayout  string
}

type CheckoutRequest struct {
	OrderID     uint   `json:"order_id" validate:"required"`
	Gateway     string `json:"gateway" validate:"required"`
	Nonce       string `json:"nonce"`
	PageContent string `json:"page_content"`
	BlockTheme  bool   `json:"block_theme"`
}

type StatusPollRequest struct {
	OrderID uint   `json:"order_id" validate:"required"`
	Nonce   string `json:"nonce" validate:"required"`
}

type WebhookRequest struct {
	RefID         string `json:"ref_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type CreateOrderRequest struct {
	Total        float64 `json:"total" validate:"required,gt=0"`
	Currency     string  `json:"currency"`
	BillingEmail string  `json:"billing_email" validate:"omitempty,email"`
	BillingPhone string  `json:"billing_phone"`
	BillingName  string  `json:"billing_name"`
}

// RequestValidator plugs go-playground/validator into Echo's binding.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// checkoutFailure is the uniform checkout failure envelope. Checkout always
// answers 200 with result=failure so the storefront can render the notice
// inline instead of breaking the page.
func checkoutFailure(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"result":  "failure",
		"message": message,
	})
}

// ajaxError mirrors the poll endpoint's error envelope.
func ajaxError(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
