package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a per-customer rating of a product. A customer may review a
// product at most once.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:reviews_product_id_idx;uniqueIndex:reviews_product_author_key"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_product_author_key"`
	AuthorName string    `gorm:"column:author_name;not null"`
	Rating     int       `gorm:"column:rating;not null"`
	Title      string    `gorm:"column:title;not null;default:''"`
	Comment    string    `gorm:"column:comment;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
