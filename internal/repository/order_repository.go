package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var _ interfaces.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("order_key = ?", key).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *OrderRepository) TransitionStatus(ctx context.Context, orderID uint, from []models.OrderStatus, to models.OrderStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderRepository) AddNote(ctx context.Context, orderID uint, author, note string) error {
	return r.db.WithContext(ctx).Create(&models.OrderNote{
		OrderID: orderID,
		Author:  author,
		Note:    note,
	}).Error
}

func (r *OrderRepository) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND remote_order_id <> '' AND updated_at < ?", models.OrderStatusPending, before).
		Order("updated_at asc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *OrderRepository) RecordCallback(ctx context.Context, callback *models.PaymentCallbackHistory) error {
	return r.db.WithContext(ctx).Create(callback).Error
}
