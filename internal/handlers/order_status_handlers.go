package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"smepay_gateway/internal/models"
	"smepay_gateway/internal/services"
	"smepay_gateway/internal/smepay"
)

// CheckOrderStatus is the polling endpoint the waiting shopper's browser
// calls every few seconds. A paid verdict feeds the reconciler, so the poll
// and the webhook converge on the same transition.
func (h *Handler) CheckOrderStatus(c echo.Context) error {
	var req StatusPollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	valid, err := h.Nonces.Verify(c.Request().Context(), req.Nonce)
	if err != nil || !valid {
		return echo.NewHTTPError(http.StatusForbidden, "Security check failed. Please refresh the page and try again.")
	}

	order, err := h.Orders.GetByID(c.Request().Context(), req.OrderID)
	if err != nil {
		return ajaxError(c, "Order not found.")
	}

	gw, ok := h.Gateways[order.Gateway]
	if !ok {
		return ajaxError(c, "Unable to retrieve payment status.")
	}
	if order.RemoteOrderID == "" {
		return ajaxError(c, "SMEPay order ID not found.")
	}

	status, err := gw.Client.CheckStatus(c.Request().Context(), order.RemoteOrderID)
	if err != nil {
		return ajaxError(c, err.Error())
	}

	isPaid := smepay.IsSuccess(status.PaymentStatus)
	if isPaid {
		if _, err := h.Reconciler.Apply(c.Request().Context(), order, services.Update{
			PaymentStatus: status.PaymentStatus,
			Trigger:       "poll",
		}); err != nil {
			return ajaxError(c, "Unable to retrieve payment status.")
		}
	}

	redirect := ""
	if isPaid {
		q := url.Values{}
		q.Set("smepfowo_slug", order.Slug)
		q.Set("payment_link", order.PaymentLink)
		redirect = h.thankYouURL(order) + "&" + q.Encode()
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"status":       status.PaymentStatus,
			"is_paid":      isPaid,
			"redirect_url": redirect,
		},
	})
}

// ThankYou is the thank-you-page trigger: it validates the session with the
// provider once and reconciles the order, then returns the order summary.
func (h *Handler) ThankYou(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID")
	}

	order, err := h.Orders.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	if c.QueryParam("key") != order.OrderKey {
		return echo.NewHTTPError(http.StatusForbidden, "Invalid order key")
	}

	gw, ok := h.Gateways[order.Gateway]
	if ok && gw.Available() && order.Slug != "" && !order.IsPaid() {
		status, err := gw.Client.Validate(c.Request().Context(), order.Slug, order.ChargeableAmount())
		if err != nil {
			// Token or transport failure: note it, leave the order pending for
			// the next trigger, and tell the shopper.
			_ = h.Orders.AddNote(c.Request().Context(), order.ID, "thankyou",
				fmt.Sprintf("SMEPay connection error: %s", err.Error()))
			return c.JSON(http.StatusOK, h.orderSummary(order, fmt.Sprintf("SMEPay validation failed: %s", err.Error())))
		}

		outcome, err := h.Reconciler.Apply(c.Request().Context(), order, services.Update{
			PaymentStatus: status.PaymentStatus,
			Trigger:       "thankyou",
			FailOnUnknown: true,
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reconcile order")
		}
		if outcome.Status == models.OrderStatusFailed {
			return c.JSON(http.StatusOK, h.orderSummary(order, outcome.Message))
		}
	}

	return c.JSON(http.StatusOK, h.orderSummary(order, ""))
}

func (h *Handler) orderSummary(order *models.Order, errMessage string) map[string]interface{} {
	message := "Thank you. Your order has been received."
	if order.PartialCOD && order.IsPaid() && order.AmountLeft() > 0 {
		message = services.PartialPaymentMessage(h.CurrencySymbol, order.PartialAmount, order.Total)
	}
	if errMessage != "" {
		message = errMessage
	}

	return map[string]interface{}{
		"order_id":       order.ID,
		"status":         order.Status,
		"is_paid":        order.IsPaid(),
		"total":          order.Total,
		"partial_amount": order.PartialAmount,
		"amount_left":    order.AmountLeft(),
		"message":        message,
	}
}
