package cart

import (
	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db/models"
)

// LineItem is one product entry in a cart with its add-time snapshot. The
// snapshot keeps cart math stable even when the catalog row changes later.
type LineItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	UnitPriceCents int       `json:"unit_price_cents"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	AddedOrdinal   int       `json:"added_ordinal"`
}

// Snapshot is the canonical cart state. The same shape backs authenticated
// carts in Postgres and guest carts serialized into Redis.
type Snapshot struct {
	Items         []LineItem `json:"items"`
	SubtotalCents int        `json:"subtotal_cents"`
	ItemCount     int        `json:"item_count"`
	Version       int64      `json:"version"`
}

// Recompute rewrites the derived totals from the item slice. Totals are
// never patched incrementally.
func (s *Snapshot) Recompute() {
	subtotal := 0
	count := 0
	for _, item := range s.Items {
		subtotal += item.UnitPriceCents * item.Quantity
		count += item.Quantity
	}
	s.SubtotalCents = subtotal
	s.ItemCount = count
}

// AddItem inserts the product or increments the existing line. Line items
// stay unique per product id.
func (s *Snapshot) AddItem(product *models.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	for i := range s.Items {
		if s.Items[i].ProductID == product.ID {
			s.Items[i].Quantity += quantity
			s.Recompute()
			return
		}
	}
	s.Items = append(s.Items, LineItem{
		ProductID:      product.ID,
		Name:           product.Name,
		Category:       product.Category,
		UnitPriceCents: product.PriceCents,
		ImageURL:       product.ImageURL,
		Quantity:       quantity,
		AddedOrdinal:   s.nextOrdinal(),
	})
	s.Recompute()
}

// MergeLine folds an existing line item from another cart into this one,
// summing quantities for duplicate products.
func (s *Snapshot) MergeLine(line LineItem) {
	for i := range s.Items {
		if s.Items[i].ProductID == line.ProductID {
			s.Items[i].Quantity += line.Quantity
			s.Recompute()
			return
		}
	}
	line.AddedOrdinal = s.nextOrdinal()
	s.Items = append(s.Items, line)
	s.Recompute()
}

// UpdateQuantity sets the line quantity. A value below 1 is a no-op so a
// cart can never store a zero or negative quantity; callers that want the
// line gone must remove it explicitly.
func (s *Snapshot) UpdateQuantity(productID uuid.UUID, quantity int) bool {
	if quantity < 1 {
		return false
	}
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			s.Items[i].Quantity = quantity
			s.Recompute()
			return true
		}
	}
	return false
}

// RemoveItem drops the line if present.
func (s *Snapshot) RemoveItem(productID uuid.UUID) bool {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.Recompute()
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (s *Snapshot) Clear() {
	s.Items = nil
	s.Recompute()
}

func (s *Snapshot) nextOrdinal() int {
	max := 0
	for _, item := range s.Items {
		if item.AddedOrdinal > max {
			max = item.AddedOrdinal
		}
	}
	return max + 1
}

// Find returns the line item for the product, if present.
func (s *Snapshot) Find(productID uuid.UUID) *LineItem {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return &s.Items[i]
		}
	}
	return nil
}

// snapshotFromRecord rebuilds the canonical shape from the persisted rows.
func snapshotFromRecord(record *models.CartRecord) Snapshot {
	snapshot := Snapshot{Version: record.Version}
	for _, item := range record.Items {
		snapshot.Items = append(snapshot.Items, LineItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Category:       item.Category,
			UnitPriceCents: item.UnitPriceCents,
			ImageURL:       item.ImageURL,
			Quantity:       item.Quantity,
			AddedOrdinal:   item.AddedOrdinal,
		})
	}
	snapshot.Recompute()
	return snapshot
}

// toCartItems converts the snapshot lines into rows for the given cart.
func (s *Snapshot) toCartItems(cartID uuid.UUID) []models.CartItem {
	items := make([]models.CartItem, 0, len(s.Items))
	for _, line := range s.Items {
		items = append(items, models.CartItem{
			ID:             uuid.New(),
			CartID:         cartID,
			ProductID:      line.ProductID,
			Name:           line.Name,
			Category:       line.Category,
			ImageURL:       line.ImageURL,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			AddedOrdinal:   line.AddedOrdinal,
		})
	}
	return items
}
