package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
)

func TestCreateAssignsSequentialOrderNumbers(t *testing.T) {
	t.Parallel()

	client := newTestDB(t)
	userID := uuid.New()

	first := mustCreateOrder(t, client, userID, enums.OrderStatusPending)
	second := mustCreateOrder(t, client, userID, enums.OrderStatusPending)

	if first.OrderNumber != 1001 {
		t.Fatalf("first order number = %d, want 1001", first.OrderNumber)
	}
	if second.OrderNumber != 1002 {
		t.Fatalf("second order number = %d, want 1002", second.OrderNumber)
	}
}

func TestCreateExplicitDuplicateNumberSurfacesError(t *testing.T) {
	t.Parallel()

	client := newTestDB(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	existing := mustCreateOrder(t, client, uuid.New(), enums.OrderStatusPending)

	dup := &models.Order{
		UserID:                uuid.New(),
		Email:                 "dup@example.com",
		Status:                enums.OrderStatusPending,
		Currency:              enums.CurrencyUSD,
		OrderNumber:           existing.OrderNumber,
		PaymentIdempotencyKey: uuid.NewString(),
	}
	_, err := repo.Create(ctx, dup)
	if err == nil {
		t.Fatal("expected a unique violation for an explicit duplicate number")
	}
	if retryOrderNumber(err, false, 0) {
		t.Fatal("explicit numbers must never be silently reassigned")
	}
	if !retryOrderNumber(err, true, 0) {
		t.Fatalf("driver error not classified as a number collision: %v", err)
	}
}

func TestRetryOrderNumberPolicy(t *testing.T) {
	t.Parallel()

	collision := errors.New(`duplicate key value violates unique constraint "orders_order_number_key"`)
	if !retryOrderNumber(collision, true, 0) {
		t.Fatal("first collision on an auto number should retry")
	}
	if retryOrderNumber(collision, true, 1) {
		t.Fatal("a second collision should surface the error")
	}
	if retryOrderNumber(collision, false, 0) {
		t.Fatal("explicit numbers should not retry")
	}
	if retryOrderNumber(errors.New("connection refused"), true, 0) {
		t.Fatal("unrelated errors should not retry")
	}
}
