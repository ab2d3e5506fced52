package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory stores every inbound webhook delivery verbatim,
// including duplicates and ones that resulted in no state change.
type PaymentCallbackHistory struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Gateway   string          `gorm:"type:varchar(50);not null" json:"gateway"`
	OrderID   uint            `gorm:"index" json:"order_id"`
	Metadata  json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
