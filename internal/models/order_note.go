package models

import "time"

// OrderNote is an append-only audit entry on an order. Every reconciliation
// outcome and provider error lands here, whatever the trigger was.
type OrderNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Author    string    `gorm:"type:varchar(50)" json:"author"` // e.g. "webhook", "poll", "thankyou", "sweep"
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
