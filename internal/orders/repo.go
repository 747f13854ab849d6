package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	"github.com/graybeam/storefront-backend/pkg/pagination"
)

// ListParams filters and paginates order listings.
type ListParams struct {
	Status *enums.OrderStatus
	Page   pagination.Params
}

// OrdersRepository defines order persistence.
type OrdersRepository interface {
	WithTx(tx *gorm.DB) OrdersRepository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, string, error)
	List(ctx context.Context, params ListParams) ([]models.Order, string, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Count(ctx context.Context) (int64, error)
	SalesTotals(ctx context.Context) (totalCents int64, paidOrders int64, err error)
}

// Repository is the GORM-backed orders repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) OrdersRepository {
	return &Repository{db: tx}
}

// Create inserts the order and its line items. Two concurrent checkouts
// can compute the same auto-assigned order number; the colliding insert
// runs inside a savepoint so the surrounding transaction stays usable,
// and gets one retry with a recomputed number.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}

	autoNumber := order.OrderNumber == 0
	for attempt := 0; ; attempt++ {
		if autoNumber {
			number, err := r.nextOrderNumber(ctx)
			if err != nil {
				return nil, err
			}
			order.OrderNumber = number
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(order).Error
		})
		if err == nil {
			return order, nil
		}
		if !retryOrderNumber(err, autoNumber, attempt) {
			return nil, err
		}
	}
}

// retryOrderNumber reports whether a failed insert should run again with a
// recomputed order number. Only the first collision on an auto-assigned
// number qualifies; explicit numbers and unrelated errors surface as-is.
func retryOrderNumber(err error, autoNumber bool, attempt int) bool {
	return autoNumber && attempt == 0 && db.IsUniqueViolation(err, "orders_order_number_key")
}

// nextOrderNumber hands out the next customer-facing order number. Numbers
// start at 1001 and only ever move forward; callers creating orders inside
// a transaction get a number scoped to that transaction.
func (r *Repository) nextOrderNumber(ctx context.Context) (int64, error) {
	var current int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(MAX(order_number), 1000)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// FindByID loads the order with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUser loads the order only when it belongs to the user.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&order, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders newest first with a cursor for the
// next page.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return r.listPage(ctx, query, page)
}

// List returns orders across all customers, optionally filtered by status.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	return r.listPage(ctx, query, params.Page)
}

func (r *Repository) listPage(ctx context.Context, query *gorm.DB, page pagination.Params) ([]models.Order, string, error) {
	normalizedLimit := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(strings.TrimSpace(page.Cursor))
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).
		Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

// UpdateFields applies a partial update to the order row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Count returns the total number of orders.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}

// SalesTotals sums captured revenue across paid orders. Orders that never
// cleared payment are excluded.
func (r *Repository) SalesTotals(ctx context.Context) (int64, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total_cents), 0) AS total, COUNT(*) AS count").
		Where("paid_at IS NOT NULL").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Count, nil
}
