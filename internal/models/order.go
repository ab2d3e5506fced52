package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

// Order is the local commerce order being paid via SMEPay. Session fields
// (remote order id, slug, QR data) mirror the live payment attempt; the full
// attempt history lives in PaymentSession rows.
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderKey string      `gorm:"type:varchar(64);uniqueIndex" json:"order_key"`
	Status   OrderStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Total    float64     `gorm:"type:decimal(15,2)" json:"total"`
	Currency string      `gorm:"type:varchar(10)" json:"currency"`

	BillingEmail string `gorm:"type:varchar(255)" json:"billing_email"`
	BillingPhone string `gorm:"type:varchar(50)" json:"billing_phone"`
	BillingName  string `gorm:"type:varchar(255)" json:"billing_name"`

	Gateway       string          `gorm:"type:varchar(50);index" json:"gateway"`
	RemoteOrderID string          `gorm:"type:varchar(100);index" json:"remote_order_id"`
	Slug          string          `gorm:"type:varchar(100)" json:"slug"`
	QRCode        string          `gorm:"type:text" json:"qr_code,omitempty"`
	PaymentLink   string          `gorm:"type:text" json:"payment_link,omitempty"`
	Intents       json.RawMessage `gorm:"type:jsonb" json:"intents,omitempty"`

	PartialCOD    bool    `gorm:"default:false" json:"partial_cod"`
	PartialAmount float64 `gorm:"type:decimal(15,2)" json:"partial_amount"`

	TransactionID string     `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	Notes []OrderNote `gorm:"foreignKey:OrderID" json:"notes,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderKey == "" {
		o.OrderKey = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// IsPaid reports whether payment has been received. A partial-COD order in
// processing is paid in this sense: the advance came in, the balance is
// collected on delivery.
func (o *Order) IsPaid() bool {
	switch o.Status {
	case OrderStatusCompleted:
		return true
	case OrderStatusProcessing:
		return o.PartialCOD
	}
	return false
}

// AmountLeft is the balance still owed after the online payment, never negative.
func (o *Order) AmountLeft() float64 {
	left := o.Total - o.PartialAmount
	if !o.PartialCOD {
		return 0
	}
	if left < 0 {
		return 0
	}
	return left
}

// ChargeableAmount is the amount sent to the provider for this order.
func (o *Order) ChargeableAmount() float64 {
	if o.PartialCOD {
		return o.PartialAmount
	}
	return o.Total
}
