package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/enums"
	"github.com/graybeam/storefront-backend/pkg/types"
)

// Order represents a placed customer order. The row is created in
// pending_payment before the payment provider is called so a crash between
// charge and persistence can never lose a captured payment.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber           int64             `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID                uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	Email                 string            `gorm:"column:email;not null"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	Currency              enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	ShippingAddress       *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	SubtotalCents         int               `gorm:"column:subtotal_cents;not null"`
	ShippingCents         int               `gorm:"column:shipping_cents;not null"`
	TaxCents              int               `gorm:"column:tax_cents;not null"`
	TotalCents            int               `gorm:"column:total_cents;not null"`
	PaymentIdempotencyKey string            `gorm:"column:payment_idempotency_key;not null"`
	PaymentRef            *string           `gorm:"column:payment_ref"`
	PaymentFailureReason  *string           `gorm:"column:payment_failure_reason"`
	PaidAt                *time.Time        `gorm:"column:paid_at"`
	ShippedAt             *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt           *time.Time        `gorm:"column:delivered_at"`
	Items                 []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
