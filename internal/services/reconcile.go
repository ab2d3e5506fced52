package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/metrics"
	"smepay_gateway/internal/models"
	"smepay_gateway/internal/smepay"
	"smepay_gateway/internal/telemetry"
)

const reconcileLockTTL = 30 * time.Second

// OrderStatusEvent is published on every applied status transition.
type OrderStatusEvent struct {
	OrderID   uint               `json:"order_id"`
	From      models.OrderStatus `json:"previous_status"`
	To        models.OrderStatus `json:"status"`
	Trigger   string             `json:"trigger"`
	Timestamp time.Time          `json:"timestamp"`
}

// EventPublisher pushes order status transitions to downstream consumers.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, evt OrderStatusEvent) error
}

// Update carries one provider verdict into the reconciler.
type Update struct {
	PaymentStatus string
	TransactionID string
	// ProviderError is attached to the audit note when the verdict fails the
	// order; empty falls back to a generic message.
	ProviderError string
	// Trigger names the entry point: "thankyou", "poll", "webhook" or "sweep".
	Trigger string
	// FailOnUnknown makes unrecognized statuses fail the order (the validate
	// flow does); the webhook leaves unknown statuses untouched.
	FailOnUnknown bool
}

// Outcome reports what a reconciliation attempt did.
type Outcome struct {
	// Applied is true when this attempt performed the transition; false means
	// the order was already there, the status called for no action, or another
	// trigger held the lock.
	Applied      bool
	AlreadyFinal bool
	Status       models.OrderStatus
	Message      string
}

// Reconciler is the single convergence point for every payment-status
// trigger. All triggers call Apply with whatever the provider told them; the
// per-order advisory lock plus the conditional status update make duplicate
// deliveries and races harmless.
type Reconciler struct {
	orders interfaces.OrderRepository
	locker Locker
	events EventPublisher // nil when no broker is configured
	symbol string
}

func NewReconciler(orders interfaces.OrderRepository, locker Locker, events EventPublisher, currencySymbol string) *Reconciler {
	return &Reconciler{orders: orders, locker: locker, events: events, symbol: currencySymbol}
}

func (r *Reconciler) Apply(ctx context.Context, order *models.Order, upd Update) (*Outcome, error) {
	unlock, ok, err := r.locker.TryLock(ctx, fmt.Sprintf("order_reconcile:%d", order.ID), reconcileLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.Reconciliations.WithLabelValues(upd.Trigger, "locked").Inc()
		return &Outcome{Status: order.Status, Message: "Order is being reconciled"}, nil
	}
	defer unlock()

	if order.IsPaid() {
		metrics.Reconciliations.WithLabelValues(upd.Trigger, "noop").Inc()
		return &Outcome{AlreadyFinal: true, Status: order.Status, Message: "Order already marked as paid"}, nil
	}

	switch {
	case smepay.IsSuccess(upd.PaymentStatus):
		return r.applySuccess(ctx, order, upd)
	case upd.PaymentStatus == smepay.StatusFailed || upd.FailOnUnknown:
		return r.applyFailure(ctx, order, upd)
	default:
		metrics.Reconciliations.WithLabelValues(upd.Trigger, "noop").Inc()
		return &Outcome{Status: order.Status, Message: "Unhandled status: no action taken"}, nil
	}
}

func (r *Reconciler) applySuccess(ctx context.Context, order *models.Order, upd Update) (*Outcome, error) {
	if order.PartialCOD {
		amountLeft := Round2(order.Total - order.PartialAmount)
		if amountLeft > 0 {
			applied, err := r.transition(ctx, order, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusProcessing, upd, map[string]interface{}{
				"transaction_id": upd.TransactionID,
				"paid_at":        time.Now(),
			})
			if err != nil {
				return nil, err
			}
			if applied {
				note := fmt.Sprintf("Partial payment validated: %s paid via SMEPay. %s remaining for COD.",
					Price(r.symbol, order.PartialAmount), Price(r.symbol, amountLeft))
				r.note(ctx, order.ID, upd.Trigger, note)
			}
			return &Outcome{Applied: applied, Status: models.OrderStatusProcessing, Message: "Order marked as partially paid"}, nil
		}
		// Advance covered the full total; fall through to completion.
	}

	applied, err := r.transition(ctx, order, []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing}, models.OrderStatusCompleted, upd, map[string]interface{}{
		"transaction_id": upd.TransactionID,
		"paid_at":        time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if applied {
		note := "Payment confirmed via SMEPay."
		if order.PartialCOD {
			note = "Full payment received via SMEPay."
		}
		r.note(ctx, order.ID, upd.Trigger, note)
	}
	return &Outcome{Applied: applied, Status: models.OrderStatusCompleted, Message: "Order marked as paid"}, nil
}

func (r *Reconciler) applyFailure(ctx context.Context, order *models.Order, upd Update) (*Outcome, error) {
	msg := upd.ProviderError
	if msg == "" {
		msg = "Payment failed via SMEPay."
	}

	applied, err := r.transition(ctx, order, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusFailed, upd, nil)
	if err != nil {
		return nil, err
	}
	if applied {
		r.note(ctx, order.ID, upd.Trigger, fmt.Sprintf("SMEPay error: %s", msg))
	}
	return &Outcome{Applied: applied, Status: models.OrderStatusFailed, Message: msg}, nil
}

func (r *Reconciler) transition(ctx context.Context, order *models.Order, from []models.OrderStatus, to models.OrderStatus, upd Update, extra map[string]interface{}) (bool, error) {
	applied, err := r.orders.TransitionStatus(ctx, order.ID, from, to, extra)
	if err != nil {
		return false, err
	}
	if !applied {
		metrics.Reconciliations.WithLabelValues(upd.Trigger, "noop").Inc()
		return false, nil
	}

	previous := order.Status
	order.Status = to
	if to == models.OrderStatusCompleted || (to == models.OrderStatusProcessing && order.PartialCOD) {
		order.TransactionID = upd.TransactionID
		now := time.Now()
		order.PaidAt = &now
	}

	metrics.Reconciliations.WithLabelValues(upd.Trigger, string(to)).Inc()
	if telemetry.Logger != nil {
		telemetry.Logger.Info("Order status transition",
			zap.Uint("order_id", order.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(to)),
			zap.String("trigger", upd.Trigger),
		)
	}

	if r.events != nil {
		evt := OrderStatusEvent{
			OrderID:   order.ID,
			From:      previous,
			To:        to,
			Trigger:   upd.Trigger,
			Timestamp: time.Now(),
		}
		if err := r.events.PublishStatusChange(ctx, evt); err != nil && telemetry.Logger != nil {
			telemetry.Logger.Warn("Failed to publish status event",
				zap.Uint("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	return true, nil
}

func (r *Reconciler) note(ctx context.Context, orderID uint, author, note string) {
	if err := r.orders.AddNote(ctx, orderID, author, note); err != nil && telemetry.Logger != nil {
		telemetry.Logger.Warn("Failed to add order note", zap.Uint("order_id", orderID), zap.Error(err))
	}
}
