package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"smepay_gateway/internal/services"
	"smepay_gateway/internal/telemetry"
)

const sweepBatchSize = 100

// TaskReconcilePendingPayments sweeps pending orders whose sessions went
// quiet. Shoppers who closed the tab after paying never hit the thank-you
// page, so the webhook is the only other path; the sweep covers lost ones.
const TaskReconcilePendingPayments = "reconcile_pending_payments"

// DefineTasks registers all known task handlers.
func DefineTasks() {
	RegisterHandler(TaskReconcilePendingPayments, reconcilePendingPayments)
}

func reconcilePendingPayments(ctx context.Context, deps *Deps, args map[string]interface{}) (map[string]interface{}, error) {
	cutoff := time.Now().Add(-deps.SweepGrace)

	orders, err := deps.Orders.FindStalePending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return nil, err
	}

	checked := 0
	applied := 0
	for i := range orders {
		if ctx.Err() != nil {
			break
		}
		order := &orders[i]

		gw, ok := deps.Gateways[order.Gateway]
		if !ok || !gw.Available() {
			continue
		}

		status, err := gw.Client.CheckStatus(ctx, order.RemoteOrderID)
		if err != nil {
			if telemetry.Logger != nil {
				telemetry.Logger.Warn("Sweep status check failed",
					zap.Uint("order_id", order.ID),
					zap.Error(err),
				)
			}
			continue
		}
		checked++

		outcome, err := deps.Reconciler.Apply(ctx, order, services.Update{
			PaymentStatus: status.PaymentStatus,
			Trigger:       "sweep",
		})
		if err != nil {
			if telemetry.Logger != nil {
				telemetry.Logger.Warn("Sweep reconciliation failed",
					zap.Uint("order_id", order.ID),
					zap.Error(err),
				)
			}
			continue
		}
		if outcome.Applied {
			applied++
		}
	}

	return map[string]interface{}{
		"status":  "success",
		"found":   len(orders),
		"checked": checked,
		"applied": applied,
	}, nil
}
