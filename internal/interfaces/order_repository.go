package interfaces

import (
	"context"
	"errors"
	"time"

	"smepay_gateway/internal/models"
	"smepay_gateway/internal/smepay"
)

// ErrNotFound is returned when an order does not exist, whatever the storage.
var ErrNotFound = errors.New("order not found")

// OrderRepository is the storage surface the payment flow needs. Status
// transitions are conditional on the current status so concurrent triggers
// (poll, webhook, thank-you page) cannot double-apply a transition.
type OrderRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByKey(ctx context.Context, key string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error

	// TransitionStatus moves the order to the target status only when its
	// current status is one of from, applying extra column updates in the
	// same statement. Returns false when the guard did not match.
	TransitionStatus(ctx context.Context, orderID uint, from []models.OrderStatus, to models.OrderStatus, extra map[string]interface{}) (bool, error)

	AddNote(ctx context.Context, orderID uint, author, note string) error

	// FindStalePending lists pending orders with a session created before the
	// cutoff, for the background reconciliation sweep.
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error)

	CreateSession(ctx context.Context, session *models.PaymentSession) error
	RecordCallback(ctx context.Context, callback *models.PaymentCallbackHistory) error
}

// ProviderClient is the outbound SMEPay API surface, satisfied by
// smepay.Client and by fakes in tests.
type ProviderClient interface {
	CreateOrder(ctx context.Context, req smepay.CreateOrderRequest) (*smepay.CreateOrderResponse, error)
	Initiate(ctx context.Context, slug string) (*smepay.InitiateResponse, error)
	Validate(ctx context.Context, slug string, amount float64) (*smepay.StatusResponse, error)
	CheckStatus(ctx context.Context, remoteOrderID string) (*smepay.StatusResponse, error)
}
