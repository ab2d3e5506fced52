package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentSession records one remote SMEPay session attempt for an order,
// including the raw request and response for audit. The order row carries
// only the live attempt; sessions are never overwritten.
type PaymentSession struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderID          uint            `gorm:"index;not null" json:"order_id"`
	Gateway          string          `gorm:"type:varchar(50);not null" json:"gateway"`
	RemoteOrderID    string          `gorm:"type:varchar(100);index" json:"remote_order_id"`
	Slug             string          `gorm:"type:varchar(100)" json:"slug"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	RequestMetadata  json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
