package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/models"
	"smepay_gateway/internal/smepay"
)

// memOrders is an in-memory OrderRepository for tests.
type memOrders struct {
	mu        sync.Mutex
	seq       uint
	orders    map[uint]*models.Order
	notes     map[uint][]string
	sessions  []*models.PaymentSession
	callbacks []*models.PaymentCallbackHistory
	saves     int
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
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, order := range m.orders {
		if order.Status == models.OrderStatusPending && order.RemoteOrderID != "" && order.UpdatedAt.Before(before) {
			out = append(out, *order)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
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

// fakeProvider is a scripted ProviderClient.
type fakeProvider struct {
	createResp  *smepay.CreateOrderResponse
	createErr   error
	createCalls int

	initResp  *smepay.InitiateResponse
	initErr   error
	initCalls int

	validateResp *smepay.StatusResponse
	validateErr  error

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
	f.initCalls++
	return f.initResp, f.initErr
}

func (f *fakeProvider) Validate(ctx context.Context, slug string, amount float64) (*smepay.StatusResponse, error) {
	return f.validateResp, f.validateErr
}

func (f *fakeProvider) CheckStatus(ctx context.Context, remoteOrderID string) (*smepay.StatusResponse, error) {
	f.statusCalls++
	return f.statusResp, f.statusErr
}

// fakeLocker grants or refuses every lock.
type fakeLocker struct {
	held bool
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	return func() {}, true, nil
}

// capturePublisher records published status events.
type capturePublisher struct {
	events []OrderStatusEvent
}

func (p *capturePublisher) PublishStatusChange(ctx context.Context, evt OrderStatusEvent) error {
	p.events = append(p.events, evt)
	return nil
}
