package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"smepay_gateway/internal/models"
	"smepay_gateway/internal/services"
	"smepay_gateway/internal/smepay"
)

// Checkout creates a remote SMEPay session for an order and returns the
// envelope the storefront script consumes. Block checkout follows the
// redirect URL; classic checkout reads the slug (and QR data in inline mode)
// out of the response directly.
func (h *Handler) Checkout(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	gw, ok := h.Gateways[req.Gateway]
	if !ok || !gw.Available() {
		return checkoutFailure(c, "Payment method is currently unavailable. Please choose another method.")
	}

	layout := h.resolveLayout(req.BlockTheme, req.PageContent)

	// The block flow is keyed by the order key in the redirect; the classic
	// AJAX flow must present a nonce.
	if layout.Layout != "block" {
		valid, err := h.Nonces.Verify(c.Request().Context(), req.Nonce)
		if err != nil || !valid {
			return checkoutFailure(c, "Security check failed. Please refresh the page and try again.")
		}
	}

	order, err := h.Orders.GetByID(c.Request().Context(), req.OrderID)
	if err != nil {
		return checkoutFailure(c, "Invalid order.")
	}

	result, err := gw.CreateSession(c.Request().Context(), order)
	if err != nil {
		var apiErr *smepay.APIError
		if errors.As(err, &apiErr) && apiErr.Operation == "initiate" {
			return checkoutFailure(c, fmt.Sprintf("Failed to generate UPI QR code: %s", apiErr.Message))
		}
		return checkoutFailure(c, fmt.Sprintf("Failed to initiate SMEPay session: %s", err.Error()))
	}

	// Testing aid: force the failure path even though a session exists.
	if gw.Cfg.Result != "success" {
		_, _ = h.Orders.TransitionStatus(c.Request().Context(), order.ID,
			[]models.OrderStatus{models.OrderStatusPending}, models.OrderStatusFailed, nil)
		_ = h.Orders.AddNote(c.Request().Context(), order.ID, "checkout", "Order payment failed.")
		return checkoutFailure(c, "Order payment failed. Please review the gateway settings.")
	}

	slugKey := "smepfowo_slug"
	if order.PartialCOD {
		slugKey = "smepfowo_partial_cod_slug"
	}

	redirect := ""
	if layout.Layout == "block" {
		redirect = h.payRedirectURL(order, slugKey, result.Slug)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"result":       "success",
		slugKey:        result.Slug,
		"order_id":     order.ID,
		"order_key":    order.OrderKey,
		"redirect_url": h.thankYouURL(order),
		"redirect":     redirect,
		"qr_code":      result.QRCode,
		"payment_link": result.PaymentLink,
		"intents":      result.Intents,
	})
}

// CheckoutNonce issues a single checkout nonce for the classic flow.
func (h *Handler) CheckoutNonce(c echo.Context) error {
	nonce, err := h.Nonces.Issue(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue nonce")
	}
	return c.JSON(http.StatusOK, map[string]string{"nonce": nonce})
}

// CreateOrder registers a local order awaiting payment. In the original
// deployment the commerce platform owned this step.
func (h *Handler) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	order := &models.Order{
		Total:        services.Round2(req.Total),
		Currency:     currency,
		BillingEmail: req.BillingEmail,
		BillingPhone: req.BillingPhone,
		BillingName:  req.BillingName,
	}
	if err := h.Orders.Save(c.Request().Context(), order); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create order")
	}

	return c.JSON(http.StatusCreated, order)
}

// GetOrder returns one order by id.
func (h *Handler) GetOrder(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID")
	}

	order, err := h.Orders.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) resolveLayout(blockTheme bool, pageContent string) services.CheckoutLayout {
	if pageContent == "" {
		return services.CheckoutLayout{Theme: h.DefaultLayout, Layout: h.DefaultLayout}
	}
	return services.DetectCheckoutLayout(blockTheme, pageContent)
}

func (h *Handler) thankYouURL(order *models.Order) string {
	return fmt.Sprintf("%s/api/orders/%d/thank-you?key=%s", h.BaseURL, order.ID, url.QueryEscape(order.OrderKey))
}

func (h *Handler) payRedirectURL(order *models.Order, slugKey, slug string) string {
	q := url.Values{}
	q.Set("key", order.OrderKey)
	q.Set("redirect_url", h.thankYouURL(order))
	q.Set(slugKey, slug)
	q.Set("order_id", strconv.FormatUint(uint64(order.ID), 10))
	return fmt.Sprintf("%s/pay?%s", h.BaseURL, q.Encode())
}
