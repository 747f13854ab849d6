package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	"github.com/graybeam/storefront-backend/pkg/types"
)

// OrderLineDTO is the line item payload returned to clients.
type OrderLineDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	Category       string     `json:"category,omitempty"`
	UnitPriceCents int        `json:"unit_price_cents"`
	Qty            int        `json:"qty"`
	TotalCents     int        `json:"total_cents"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID                   uuid.UUID         `json:"id"`
	OrderNumber          int64             `json:"order_number"`
	UserID               uuid.UUID         `json:"user_id"`
	Email                string            `json:"email"`
	Status               enums.OrderStatus `json:"status"`
	Currency             enums.Currency    `json:"currency"`
	ShippingAddress      *types.Address    `json:"shipping_address,omitempty"`
	SubtotalCents        int               `json:"subtotal_cents"`
	ShippingCents        int               `json:"shipping_cents"`
	TaxCents             int               `json:"tax_cents"`
	TotalCents           int               `json:"total_cents"`
	PaymentRef           *string           `json:"payment_ref,omitempty"`
	PaymentFailureReason *string           `json:"payment_failure_reason,omitempty"`
	PaidAt               *time.Time        `json:"paid_at,omitempty"`
	ShippedAt            *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt          *time.Time        `json:"delivered_at,omitempty"`
	Items                []OrderLineDTO    `json:"items"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// OrderPageDTO is a cursor-paginated order listing.
type OrderPageDTO struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO builds the client payload from the persisted model.
func NewOrderDTO(order models.Order) OrderDTO {
	items := make([]OrderLineDTO, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderLineDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Category:       item.Category,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		}
	}
	return OrderDTO{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		UserID:               order.UserID,
		Email:                order.Email,
		Status:               order.Status,
		Currency:             order.Currency,
		ShippingAddress:      order.ShippingAddress,
		SubtotalCents:        order.SubtotalCents,
		ShippingCents:        order.ShippingCents,
		TaxCents:             order.TaxCents,
		TotalCents:           order.TotalCents,
		PaymentRef:           order.PaymentRef,
		PaymentFailureReason: order.PaymentFailureReason,
		PaidAt:               order.PaidAt,
		ShippedAt:            order.ShippedAt,
		DeliveredAt:          order.DeliveredAt,
		Items:                items,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

// NewOrderDTOs maps a page of orders.
func NewOrderDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, len(orders))
	for i, order := range orders {
		out[i] = NewOrderDTO(order)
	}
	return out
}
