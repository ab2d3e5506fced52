package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"smepay_gateway/internal/config"
	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/models"
	"smepay_gateway/internal/services"
	"smepay_gateway/internal/smepay"
)

type memOrders struct {
	mu        sync.Mutex
	seq       uint
	orders    map[uint]*models.Order
	notes     map[uint][]string
	sessions  []*models.PaymentSession
	callbacks []*models.PaymentCallbackHistory
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: make(map[uint]*models.Order),
		notes:  make(map[uint][]string),
	}
}

var _ interfaces.OrderRepository = (*memOrders)(nil)

func (m *memOrders) put(order *models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == 0 {
		m.seq++
		order.ID = m.seq
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.OrderKey == "" {
		order.OrderKey = fmt.Sprintf("key-%d", order.ID)
	}
	m.orders[order.ID] = order
	return order
}

func (m *memOrders) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return order, nil
}

func (m *memOrders) GetByKey(ctx context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.OrderKey == key {
			return order, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *memOrders) Save(ctx context.Context, order *models.Order) error {
	m.put(order)
	return nil
}

func (m *memOrders) TransitionStatus(ctx context.Context, orderID uint, from []models.OrderStatus, to models.OrderStatus, extra map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if order.Status == s {
			order.Status = to
			if tid, ok := extra["transaction_id"].(string); ok {
				order.TransactionID = tid
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrders) AddNote(ctx context.Context, orderID uint, author, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[orderID] = append(m.notes[orderID], author+": "+note)
	return nil
}

func (m *memOrders) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

func (m *memOrders) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *memOrders) RecordCallback(ctx context.Context, callback *models.PaymentCallbackHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
	return nil
}

type fakeProvider struct {
	createResp  *smepay.CreateOrderResponse
	createErr   error
	createCalls int

	initResp *smepay.InitiateResponse
	initErr  error

	validateResp  *smepay.StatusResponse
	validateErr   error
	validateCalls int

	statusResp  *smepay.StatusResponse
	statusErr   error
	statusCalls int
}

var _ interfaces.ProviderClient = (*fakeProvider)(nil)

func (f *fakeProvider) CreateOrder(ctx context.Context, req smepay.CreateOrderRequest) (*smepay.CreateOrderResponse, error) {
	f.createCalls++
	return f.createResp, f.createErr
}

func (f *fakeProvider) Initiate(ctx context.Context, slug string) (*smepay.InitiateResponse, error) {
	return f.initResp, f.initErr
}

func (f *fakeProvider) Validate(ctx context.Context, slug string, amount float64) (*smepay.StatusResponse, error) {
	f.validateCalls++
	return f.validateResp, f.validateErr
}

func (f *fakeProvider) CheckStatus(ctx context.Context, remoteOrderID string) (*smepay.StatusResponse, error) {
	f.statusCalls++
	return f.statusResp, f.statusErr
}

type fakeLocker struct{}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

type fakeNonces struct {
	valid bool
}

func (n *fakeNonces) Issue(ctx context.Context) (string, error) {
	return "nonce-1", nil
}

func (n *fakeNonces) Verify(ctx context.Context, nonce string) (bool, error) {
	return n.valid && nonce != "", nil
}

type testEnv struct {
	e        *echo.Echo
	h        *Handler
	orders   *memOrders
	provider *fakeProvider
	nonces   *fakeNonces
}

func gatewayConfig(id string, variant config.GatewayVariant) config.Gateway {
	return config.Gateway{
		ID:             id,
		Variant:        variant,
		Enabled:        true,
		Mode:           "development",
		DisplayMode:    "wizard",
		ClientID:       "cid",
		ClientSecret:   "secret",
		PartialPercent: 30,
		Result:         "success",
	}
}

func newTestEnv() *testEnv {
	orders := newMemOrders()
	provider := &fakeProvider{}
	nonces := &fakeNonces{valid: true}

	const base = "http://localhost:8080"
	gateways := map[string]*services.Gateway{
		"smepfowo": services.NewGateway(
			gatewayConfig("smepfowo", config.VariantFull), provider, orders, base+"/webhook", "₹"),
		"smepfowo_partial_cod": services.NewGateway(
			gatewayConfig("smepfowo_partial_cod", config.VariantPartialCOD), provider, orders, base+"/webhook", "₹"),
	}

	h := &Handler{
		Orders:         orders,
		Gateways:       gateways,
		Nonces:         nonces,
		Reconciler:     services.NewReconciler(orders, &fakeLocker{}, nil, "₹"),
		BaseURL:        base,
		CurrencySymbol: "₹",
		DefaultLayout:  "classic",
	}

	e := echo.New()
	e.Validator = NewRequestValidator()

	return &testEnv{e: e, h: h, orders: orders, provider: provider, nonces: nonces}
}

// postJSON runs a handler against a JSON POST and decodes the JSON response.
func (env *testEnv) postJSON(t *testing.T, handler echo.HandlerFunc, path string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	err = handler(c)
	if err != nil {
		env.e.HTTPErrorHandler(err, c)
	}

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}
