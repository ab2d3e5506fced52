package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"smepay_gateway/internal/config"
	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/models"
	"smepay_gateway/internal/smepay"
	"smepay_gateway/internal/telemetry"
)

// SessionResult is what checkout needs to hand the shopper after a remote
// session was created.
type SessionResult struct {
	Slug          string
	QRCode        string
	PaymentLink   string
	Intents       map[string]string
	ChargedAmount float64
}

// Gateway bundles one payment method's settings with its provider client and
// creates remote sessions for orders.
type Gateway struct {
	Cfg    config.Gateway
	Client interfaces.ProviderClient

	orders      interfaces.OrderRepository
	callbackURL string
	symbol      string
}

func NewGateway(cfg config.Gateway, client interfaces.ProviderClient, orders interfaces.OrderRepository, callbackURL, symbol string) *Gateway {
	return &Gateway{
		Cfg:         cfg,
		Client:      client,
		orders:      orders,
		callbackURL: callbackURL,
		symbol:      symbol,
	}
}

func (g *Gateway) Available() bool {
	return g.Cfg.Available()
}

// CreateSession creates a remote SMEPay session for the order and persists
// its slug (plus QR data in inline mode) on the order. The provider's error
// messages propagate verbatim so checkout can show them.
func (g *Gateway) CreateSession(ctx context.Context, order *models.Order) (*SessionResult, error) {
	charge := order.Total
	if g.Cfg.Variant == config.VariantPartialCOD {
		charge = Round2(order.Total * float64(g.Cfg.PartialPercent) / 100)
		order.PartialCOD = true
		order.PartialAmount = charge
	}

	// No remote session for a near-zero amount; checked before any network call.
	if charge < 1 {
		if g.Cfg.Variant == config.VariantPartialCOD {
			return nil, fmt.Errorf("Partial payment amount must be at least %s1.", g.symbol)
		}
		return nil, fmt.Errorf("Order total must be at least %s1 to process payment.", g.symbol)
	}

	remoteRef := fmt.Sprintf("%d-%d-%d", order.ID, time.Now().Unix(), 1000+rand.IntN(9000))
	if order.RemoteOrderID == remoteRef {
		return nil, fmt.Errorf("Duplicate order detected.")
	}

	req := smepay.CreateOrderRequest{
		Amount:      charge,
		OrderID:     remoteRef,
		CallbackURL: g.callbackURL,
		Customer: smepay.CustomerDetails{
			Email:  order.BillingEmail,
			Mobile: order.BillingPhone,
			Name:   order.BillingName,
		},
	}

	resp, err := g.Client.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	order.Gateway = g.Cfg.ID
	order.RemoteOrderID = remoteRef
	order.Slug = resp.Slug

	result := &SessionResult{Slug: resp.Slug, ChargedAmount: charge, Intents: map[string]string{}}

	// A session without a renderable QR is useless in inline mode, so an
	// initiate failure fails the whole operation.
	if g.Cfg.DisplayMode == "inline" {
		initiate, err := g.Client.Initiate(ctx, resp.Slug)
		if err != nil {
			return nil, err
		}

		result.QRCode = initiate.QRCode
		result.PaymentLink = initiate.PaymentLink
		result.Intents = initiate.Intents

		order.QRCode = initiate.QRCode
		order.PaymentLink = initiate.PaymentLink
		if len(initiate.Intents) > 0 {
			if data, err := json.Marshal(initiate.Intents); err == nil {
				order.Intents = data
			}
		}
	}

	if err := g.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	reqMeta, _ := json.Marshal(map[string]interface{}{
		"amount":       smepay.FormatAmount(charge),
		"order_id":     remoteRef,
		"callback_url": g.callbackURL,
	})
	respMeta, _ := json.Marshal(map[string]string{
		"order_slug": resp.Slug,
		"order_id":   resp.ProviderOrderID,
	})
	if err := g.orders.CreateSession(ctx, &models.PaymentSession{
		OrderID:          order.ID,
		Gateway:          g.Cfg.ID,
		RemoteOrderID:    remoteRef,
		Slug:             resp.Slug,
		IsActive:         true,
		RequestMetadata:  reqMeta,
		ResponseMetadata: respMeta,
	}); err != nil && telemetry.Logger != nil {
		telemetry.Logger.Warn("Failed to record payment session",
			zap.Uint("order_id", order.ID),
			zap.Error(err),
		)
	}

	return result, nil
}
