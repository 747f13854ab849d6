package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a catalog listing.
type Product struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name           string         `gorm:"column:name;not null"`
	Description    string         `gorm:"column:description;not null;default:''"`
	Brand          string         `gorm:"column:brand;not null;default:''"`
	Category       string         `gorm:"column:category;not null;index:products_category_idx"`
	Tags           pq.StringArray `gorm:"column:tags;type:text[]"`
	PriceCents     int            `gorm:"column:price_cents;not null"`
	CompareAtCents *int           `gorm:"column:compare_at_cents"`
	ImageURL       *string        `gorm:"column:image_url"`
	IsFeatured     bool           `gorm:"column:is_featured;not null;default:false"`
	InStock        bool           `gorm:"column:in_stock;not null"`
	IsActive       bool           `gorm:"column:is_active;not null"`
	RatingAvg      float64        `gorm:"column:rating_avg;not null;default:0"`
	ReviewCount    int            `gorm:"column:review_count;not null;default:0"`
	CatalogOrdinal int            `gorm:"column:catalog_ordinal;not null;default:0;index:products_catalog_ordinal_idx"`
	Reviews        []Review       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
