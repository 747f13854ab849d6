package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/internal/orders"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/outbox"
)

type testStack struct {
	client   *db.Client
	svc      Service
	cartRepo cart.CartRepository
	payments *stubPayments
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	client := newTestDB(t)
	payments := &stubPayments{}
	cartRepo := cart.NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Tx:       client,
		CartRepo: cartRepo,
		Orders:   orders.NewRepository(client.DB()),
		Payments: payments,
		Pricing:  testPricing(t),
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), testLogger()),
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &testStack{client: client, svc: svc, cartRepo: cartRepo, payments: payments}
}

func (ts *testStack) cartSnapshot(t *testing.T, userID uuid.UUID) cart.Snapshot {
	t.Helper()
	var snapshot cart.Snapshot
	err := ts.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		snapshot, err = cart.LoadUserSnapshot(context.Background(), tx, ts.cartRepo, userID)
		return err
	})
	if err != nil {
		t.Fatalf("load cart snapshot: %v", err)
	}
	return snapshot
}

func TestQuotePricesCart(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 1})

	quote, err := ts.svc.Quote(ctx, user.ID)
	if err != nil {
		t.Fatalf("quote cart: %v", err)
	}
	if quote.SubtotalCents != 2499 || quote.ShippingCents != 599 || quote.TaxCents != 200 {
		t.Fatalf("quote = %d/%d/%d, want 2499/599/200", quote.SubtotalCents, quote.ShippingCents, quote.TaxCents)
	}
	if quote.TotalCents != 3298 {
		t.Fatalf("total = %d, want 3298", quote.TotalCents)
	}
	if len(quote.Cart.Items) != 1 {
		t.Fatalf("quote cart items = %d, want 1", len(quote.Cart.Items))
	}
}

func TestQuoteEmptyCartRejected(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	user := mustCreateUser(t, ts.client)

	_, err := ts.svc.Quote(context.Background(), user.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitCapturesPaymentAndClearsCart(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	stove := mustCreateProduct(t, ts.client, "Camp Stove", 4500)
	mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 2, stove: 1})

	order, err := ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:           "Buyer@Example.com",
		ShippingAddress: testAddress(),
		SourceID:        "cnon:card-ok",
	})
	if err != nil {
		t.Fatalf("submit checkout: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.PaidAt == nil || order.PaymentRef == nil {
		t.Fatalf("paid order missing payment stamps: %+v", order)
	}
	if order.Email != "buyer@example.com" {
		t.Fatalf("email not normalized: %q", order.Email)
	}
	if order.OrderNumber != 1001 {
		t.Fatalf("order number = %d, want 1001", order.OrderNumber)
	}
	if order.SubtotalCents != 9498 || order.TotalCents != 9498+599+760 {
		t.Fatalf("totals = %d/%d", order.SubtotalCents, order.TotalCents)
	}
	if len(order.Items) != 2 {
		t.Fatalf("line items = %d, want 2", len(order.Items))
	}

	if len(ts.payments.requests) != 1 {
		t.Fatalf("charge attempts = %d, want 1", len(ts.payments.requests))
	}
	charge := ts.payments.requests[0]
	if charge.AmountCents != int64(order.TotalCents) || charge.SourceID != "cnon:card-ok" {
		t.Fatalf("unexpected charge params: %+v", charge)
	}
	if charge.ReferenceID != fmt.Sprintf("%d", order.OrderNumber) {
		t.Fatalf("charge reference = %q", charge.ReferenceID)
	}

	if snapshot := ts.cartSnapshot(t, user.ID); len(snapshot.Items) != 0 {
		t.Fatalf("cart not cleared after capture: %d items", len(snapshot.Items))
	}

	var events []models.OutboxEvent
	if err := ts.client.DB().Where("event_type = ?", enums.EventOrderPlaced).Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].AggregateID != order.ID {
		t.Fatalf("expected one order_placed event, got %+v", events)
	}
}

func TestSubmitDeclineParksOrderAndKeepsCart(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 1})

	ts.payments.failWith = pkgerrors.New(pkgerrors.CodePayment, "card declined")

	_, err := ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:           "buyer@example.com",
		ShippingAddress: testAddress(),
		SourceID:        "cnon:card-declined",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePayment {
		t.Fatalf("expected payment error, got %v", err)
	}

	var stored models.Order
	if err := ts.client.DB().First(&stored, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusPaymentFailed {
		t.Fatalf("status = %s, want payment_failed", stored.Status)
	}
	if stored.PaymentFailureReason == nil || *stored.PaymentFailureReason != "card declined" {
		t.Fatalf("failure reason = %v", stored.PaymentFailureReason)
	}
	if stored.PaidAt != nil {
		t.Fatalf("declined order has paid_at stamp")
	}

	if snapshot := ts.cartSnapshot(t, user.ID); len(snapshot.Items) != 1 {
		t.Fatalf("cart changed after decline: %d items", len(snapshot.Items))
	}

	var events []models.OutboxEvent
	if err := ts.client.DB().Where("event_type = ?", enums.EventOrderPaymentFailed).Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one payment_failed event, got %d", len(events))
	}
}

func TestRetryPaymentRotatesIdempotencyKey(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 1})

	ts.payments.failWith = pkgerrors.New(pkgerrors.CodePayment, "card declined")
	_, err := ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:           "buyer@example.com",
		ShippingAddress: testAddress(),
		SourceID:        "cnon:card-declined",
	})
	if pkgerrors.As(err) == nil {
		t.Fatalf("expected declined submit, got %v", err)
	}

	var parked models.Order
	if err := ts.client.DB().First(&parked, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load parked order: %v", err)
	}

	ts.payments.failWith = nil
	order, err := ts.svc.RetryPayment(ctx, user.ID, parked.ID, "cnon:card-ok")
	if err != nil {
		t.Fatalf("retry payment: %v", err)
	}
	if order.Status != enums.OrderStatusPending || order.PaidAt == nil {
		t.Fatalf("retry did not capture: %+v", order)
	}

	if len(ts.payments.requests) != 2 {
		t.Fatalf("charge attempts = %d, want 2", len(ts.payments.requests))
	}
	if ts.payments.requests[0].IdempotencyKey != parked.PaymentIdempotencyKey {
		t.Fatalf("submit did not use the persisted idempotency key")
	}
	if ts.payments.requests[1].IdempotencyKey == parked.PaymentIdempotencyKey {
		t.Fatalf("retry reused the failed attempt's idempotency key")
	}

	var retried models.Order
	if err := ts.client.DB().First(&retried, "id = ?", parked.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if retried.PaymentIdempotencyKey != ts.payments.requests[1].IdempotencyKey {
		t.Fatalf("rotated key was not persisted on the order")
	}
}

func TestRetryPaymentOnPaidOrderRejected(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 1})

	order, err := ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:           "buyer@example.com",
		ShippingAddress: testAddress(),
		SourceID:        "cnon:card-ok",
	})
	if err != nil {
		t.Fatalf("submit checkout: %v", err)
	}

	_, err = ts.svc.RetryPayment(ctx, user.ID, order.ID, "cnon:card-ok")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(ts.payments.requests) != 1 {
		t.Fatalf("paid order was charged again")
	}
}

func TestSubmitStaleCartVersionRejectedBeforeCharge(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	snapshot := mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 1})

	stale := snapshot.Version - 1
	_, err := ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:               "buyer@example.com",
		ShippingAddress:     testAddress(),
		SourceID:            "cnon:card-ok",
		ExpectedCartVersion: &stale,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if len(ts.payments.requests) != 0 {
		t.Fatalf("stale submit reached the payment provider")
	}
	var count int64
	if err := ts.client.DB().Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("stale submit created an order")
	}
}

func TestSubmitValidatesInputBeforeCharge(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, ts.client)
	tent := mustCreateProduct(t, ts.client, "Canopy Tent", 2499)
	mustFillCart(t, ts.client, ts.cartRepo, user.ID, map[*models.Product]int{tent: 1})

	address := testAddress()
	address.City = ""
	_, err := ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:           "buyer@example.com",
		ShippingAddress: address,
		SourceID:        "cnon:card-ok",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for address, got %v", err)
	}

	_, err = ts.svc.Submit(ctx, user.ID, SubmitInput{
		Email:           "not-an-email",
		ShippingAddress: testAddress(),
		SourceID:        "cnon:card-ok",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for email, got %v", err)
	}

	if len(ts.payments.requests) != 0 {
		t.Fatalf("invalid submit reached the payment provider")
	}
}
