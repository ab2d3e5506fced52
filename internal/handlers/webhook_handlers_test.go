package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smepay_gateway/internal/models"
)

func TestWebhookMissingFields(t *testing.T) {
	env := newTestEnv()

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"transaction_id": "txn-1",
	})

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "Missing required fields", body["error"])
}

func TestWebhookInvalidOrderReference(t *testing.T) {
	env := newTestEnv()

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"ref_id": "abc-1700000000-4242",
		"status": "SUCCESS",
	})

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "Invalid order reference", body["error"])
}

func TestWebhookUnknownOrder(t *testing.T) {
	env := newTestEnv()

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"ref_id": "99-1700000000-4242",
		"status": "SUCCESS",
	})

	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, "Order not found", body["error"])
}

func TestWebhookMarksOrderPaid(t *testing.T) {
	env := newTestEnv()
	order := env.orders.put(&models.Order{Total: 500, Gateway: "smepfowo", RemoteOrderID: "1-1700000000-4242"})

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"ref_id":         order.RemoteOrderID,
		"transaction_id": "txn-1",
		"status":         "success",
	})

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Order marked as paid", body["message"])
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, "txn-1", order.TransactionID)
	require.Len(t, env.orders.callbacks, 1)
	assert.Equal(t, order.ID, env.orders.callbacks[0].OrderID)
}

func TestWebhookMarksPartialOrder(t *testing.T) {
	env := newTestEnv()
	order := env.orders.put(&models.Order{
		Total: 1000, PartialCOD: true, PartialAmount: 300,
		Gateway: "smepfowo_partial_cod", RemoteOrderID: "1-1700000000-4242",
	})

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"ref_id": order.RemoteOrderID,
		"status": "SUCCESS",
	})

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Order marked as partially paid", body["message"])
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.True(t, order.IsPaid())
}

func TestWebhookFailedStatus(t *testing.T) {
	env := newTestEnv()
	order := env.orders.put(&models.Order{Total: 500, Gateway: "smepfowo", RemoteOrderID: "1-1700000000-4242"})

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"ref_id": order.RemoteOrderID,
		"status": "FAILED",
	})

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Order marked as failed", body["message"])
	assert.Equal(t, models.OrderStatusFailed, order.Status)
}

func TestWebhookReplayIsHarmless(t *testing.T) {
	env := newTestEnv()
	order := env.orders.put(&models.Order{Total: 500, Gateway: "smepfowo", RemoteOrderID: "1-1700000000-4242"})

	payload := map[string]interface{}{
		"ref_id":         order.RemoteOrderID,
		"transaction_id": "txn-1",
		"status":         "SUCCESS",
	}

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", payload)
	require.Equal(t, 200, rec.Code)
	require.Equal(t, "Order marked as paid", body["message"])

	rec, body = env.postJSON(t, env.h.Webhook, "/webhook", payload)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Order already marked as paid", body["message"])
	assert.Len(t, env.orders.notes[order.ID], 1)
	assert.Len(t, env.orders.callbacks, 2)
}

func TestWebhookUnhandledStatus(t *testing.T) {
	env := newTestEnv()
	order := env.orders.put(&models.Order{Total: 500, Gateway: "smepfowo", RemoteOrderID: "1-1700000000-4242"})

	rec, body := env.postJSON(t, env.h.Webhook, "/webhook", map[string]interface{}{
		"ref_id": order.RemoteOrderID,
		"status": "PENDING",
	})

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Unhandled status: no action taken", body["message"])
	assert.Equal(t, models.OrderStatusPending, order.Status)
}
