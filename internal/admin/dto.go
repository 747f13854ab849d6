package admin

// DashboardDTO is the at-a-glance storefront summary.
type DashboardDTO struct {
	TotalSalesCents int64 `json:"total_sales_cents"`
	PaidOrders      int64 `json:"paid_orders"`
	TotalOrders     int64 `json:"total_orders"`
	TotalUsers      int64 `json:"total_users"`
	TotalProducts   int64 `json:"total_products"`
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"description"`
	Brand          string   `json:"brand"`
	Category       string   `json:"category" validate:"required"`
	Tags           []string `json:"tags"`
	PriceCents     int      `json:"price_cents" validate:"gte=0"`
	CompareAtCents *int     `json:"compare_at_cents"`
	ImageURL       *string  `json:"image_url"`
	IsFeatured     bool     `json:"is_featured"`
	InStock        bool     `json:"in_stock"`
	IsActive       bool     `json:"is_active"`
}
