package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/outbox"
	"github.com/graybeam/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (*db.Client, Service) {
	t.Helper()

	client := newTestDB(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(client.DB()),
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), testLogger()),
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return client, svc
}

func TestGetForUserScopesToOwner(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	order := mustCreateOrder(t, client, owner, enums.OrderStatusPending)

	dto, err := svc.GetForUser(ctx, owner, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if dto.ID != order.ID || len(dto.Items) != 1 {
		t.Fatalf("unexpected order payload: %+v", dto)
	}

	_, err = svc.GetForUser(ctx, stranger, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
}

func TestListForUserNewestFirstWithCursor(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	var created []*models.Order
	for i := 0; i < 3; i++ {
		order := mustCreateOrder(t, client, owner, enums.OrderStatusPending)
		stamp := time.Now().UTC().Add(time.Duration(i-3) * time.Hour)
		if err := client.DB().Model(order).Update("created_at", stamp).Error; err != nil {
			t.Fatalf("stamp order: %v", err)
		}
		created = append(created, order)
	}
	mustCreateOrder(t, client, uuid.New(), enums.OrderStatusPending)

	page, err := svc.ListForUser(ctx, owner, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("page = %d items, cursor %q", len(page.Items), page.NextCursor)
	}
	if page.Items[0].ID != created[2].ID || page.Items[1].ID != created[1].ID {
		t.Fatalf("orders not newest first")
	}

	rest, err := svc.ListForUser(ctx, owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest.Items) != 1 || rest.Items[0].ID != created[0].ID || rest.NextCursor != "" {
		t.Fatalf("unexpected second page: %+v", rest)
	}
}

func TestTransitionShippedStampsAndEmits(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	admin := uuid.New()
	order := mustCreateOrder(t, client, uuid.New(), enums.OrderStatusPending)

	dto, err := svc.Transition(ctx, admin, order.ID, enums.OrderStatusShipped)
	if err != nil {
		t.Fatalf("transition order: %v", err)
	}
	if dto.Status != enums.OrderStatusShipped || dto.ShippedAt == nil {
		t.Fatalf("shipped transition missing stamp: %+v", dto)
	}

	dto, err = svc.Transition(ctx, admin, order.ID, enums.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("deliver order: %v", err)
	}
	if dto.Status != enums.OrderStatusDelivered || dto.DeliveredAt == nil {
		t.Fatalf("delivered transition missing stamp: %+v", dto)
	}

	var events []models.OutboxEvent
	if err := client.DB().Where("event_type = ?", enums.EventOrderStateChanged).Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("outbox rows = %d, want 2", len(events))
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	order := mustCreateOrder(t, client, uuid.New(), enums.OrderStatusDelivered)

	_, err := svc.Transition(ctx, uuid.New(), order.ID, enums.OrderStatusShipped)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var stored models.Order
	if err := client.DB().First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if stored.Status != enums.OrderStatusDelivered {
		t.Fatalf("status changed after rejected transition: %s", stored.Status)
	}

	_, err = svc.Transition(ctx, uuid.New(), uuid.New(), enums.OrderStatusShipped)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdminListFiltersByStatus(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	mustCreateOrder(t, client, uuid.New(), enums.OrderStatusPending)
	mustCreateOrder(t, client, uuid.New(), enums.OrderStatusShipped)
	mustCreateOrder(t, client, uuid.New(), enums.OrderStatusShipped)

	status := enums.OrderStatusShipped
	page, err := svc.List(ctx, ListParams{Status: &status})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("filtered items = %d, want 2", len(page.Items))
	}
	for _, item := range page.Items {
		if item.Status != enums.OrderStatusShipped {
			t.Fatalf("unexpected status in filtered page: %s", item.Status)
		}
	}

	all, err := svc.List(ctx, ListParams{})
	if err != nil {
		t.Fatalf("list all orders: %v", err)
	}
	if len(all.Items) != 3 {
		t.Fatalf("all items = %d, want 3", len(all.Items))
	}
}

func TestSalesTotalsCountPaidOnly(t *testing.T) {
	t.Parallel()

	client, _ := newTestService(t)
	ctx := context.Background()
	repo := NewRepository(client.DB())

	paid := mustCreateOrder(t, client, uuid.New(), enums.OrderStatusPending)
	now := time.Now().UTC()
	if err := client.DB().Model(paid).Update("paid_at", now).Error; err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	mustCreateOrder(t, client, uuid.New(), enums.OrderStatusPaymentFailed)

	total, count, err := repo.SalesTotals(ctx)
	if err != nil {
		t.Fatalf("sales totals: %v", err)
	}
	if total != 3299 || count != 1 {
		t.Fatalf("totals = %d/%d, want 3299/1", total, count)
	}
}
