package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts outbound SMEPay API calls by operation and outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smepay_provider_requests_total",
		Help: "Outbound SMEPay API requests",
	}, []string{"operation", "outcome"})

	// Reconciliations counts reconciliation attempts by trigger and result.
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smepay_reconciliations_total",
		Help: "Order reconciliation attempts",
	}, []string{"trigger", "result"})

	// WebhookDeliveries counts inbound webhook requests by response class.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smepay_webhook_deliveries_total",
		Help: "Inbound provider webhook deliveries",
	}, []string{"result"})
)
