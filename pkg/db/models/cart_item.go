package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a single product line within a CartRecord. The unit price is
// snapshotted at add time so cart totals stay stable while browsing.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_product_key"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_cart_product_key"`
	Name           string    `gorm:"column:name;not null;default:''"`
	Category       string    `gorm:"column:category;not null;default:''"`
	ImageURL       *string   `gorm:"column:image_url"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	AddedOrdinal   int       `gorm:"column:added_ordinal;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
