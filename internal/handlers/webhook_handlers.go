package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/metrics"
	"smepay_gateway/internal/models"
	"smepay_gateway/internal/services"
	"smepay_gateway/internal/smepay"
)

// Webhook receives the provider's payment notification. The first
// `-`-delimited segment of ref_id is the local order id. Replays and races
// with the poll/thank-you triggers are no-ops.
func (h *Handler) Webhook(c echo.Context) error {
	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		metrics.WebhookDeliveries.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
	}

	if req.RefID == "" || req.Status == "" {
		metrics.WebhookDeliveries.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
	}

	status := strings.ToUpper(req.Status)

	orderIDStr := strings.SplitN(req.RefID, "-", 2)[0]
	orderID, err := strconv.ParseUint(orderIDStr, 10, 32)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid order reference"})
	}

	order, err := h.Orders.GetByID(c.Request().Context(), uint(orderID))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			metrics.WebhookDeliveries.WithLabelValues("not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Order not found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load order")
	}

	if meta, err := json.Marshal(req); err == nil {
		_ = h.Orders.RecordCallback(c.Request().Context(), &models.PaymentCallbackHistory{
			Gateway:  order.Gateway,
			OrderID:  order.ID,
			Metadata: meta,
		})
	}

	if order.IsPaid() {
		metrics.WebhookDeliveries.WithLabelValues("duplicate").Inc()
		return c.JSON(http.StatusOK, map[string]string{"message": "Order already marked as paid"})
	}

	if !smepay.IsSuccess(status) && status != smepay.StatusFailed {
		metrics.WebhookDeliveries.WithLabelValues("unhandled").Inc()
		return c.JSON(http.StatusOK, map[string]string{"message": "Unhandled status: no action taken"})
	}

	outcome, err := h.Reconciler.Apply(c.Request().Context(), order, services.Update{
		PaymentStatus: status,
		TransactionID: req.TransactionID,
		ProviderError: "Payment failed.",
		Trigger:       "webhook",
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reconcile order")
	}

	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()

	message := "Unhandled status: no action taken"
	switch outcome.Status {
	case models.OrderStatusProcessing:
		message = "Order marked as partially paid"
	case models.OrderStatusCompleted:
		message = "Order marked as paid"
	case models.OrderStatusFailed:
		message = "Order marked as failed"
	}
	if outcome.AlreadyFinal {
		message = "Order already marked as paid"
	}

	return c.JSON(http.StatusOK, map[string]string{"message": message})
}
