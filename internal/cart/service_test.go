package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
)

type testStack struct {
	svc    Service
	client *db.Client
	guest  *memoryGuestStore
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	client := newTestDB(t)
	guest := newMemoryGuestStore()
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       client,
		Products: productFinder{client},
		Guest:    guest,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testStack{svc: svc, client: client, guest: guest}
}

type productFinder struct {
	client *db.Client
}

func (p productFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := p.client.DB().WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func TestServiceAddItemIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	p1 := mustCreateProduct(t, stack.client, "p1", 999)
	ref := CartRef{UserID: user.ID}

	if _, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 1}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	dto, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(dto.Items) != 1 || dto.Items[0].Quantity != 3 {
		t.Fatalf("expected one line with quantity 3, got %+v", dto.Items)
	}
	if dto.SubtotalCents != 2997 || dto.ItemCount != 3 {
		t.Fatalf("unexpected totals: %+v", dto)
	}
	if dto.Version != 2 {
		t.Fatalf("expected version 2 after two writes, got %d", dto.Version)
	}
}

func TestServiceUpdateQuantityBelowOneLeavesCartUntouched(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	p1 := mustCreateProduct(t, stack.client, "p1", 500)
	ref := CartRef{UserID: user.ID}

	if _, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	dto, err := stack.svc.UpdateQuantity(ctx, ref, UpdateQuantityInput{ProductID: p1.ID, Quantity: 0})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.Items[0].Quantity != 2 {
		t.Fatalf("quantity changed: %+v", dto.Items)
	}
	if dto.Version != 1 {
		t.Fatalf("no-op must not bump the version, got %d", dto.Version)
	}
}

func TestServiceUpdateQuantityMissingLine(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	mustCreateProduct(t, stack.client, "p1", 500)
	ref := CartRef{UserID: user.ID}

	_, err := stack.svc.UpdateQuantity(ctx, ref, UpdateQuantityInput{ProductID: uuid.New(), Quantity: 2})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceStaleVersionRejected(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	p1 := mustCreateProduct(t, stack.client, "p1", 1000)
	p2 := mustCreateProduct(t, stack.client, "p2", 2000)
	ref := CartRef{UserID: user.ID}

	first, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// A second writer commits against the version the first writer read.
	if _, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p2.ID, Quantity: 1, ExpectedVersion: &first.Version}); err != nil {
		t.Fatalf("concurrent add: %v", err)
	}

	// The first writer retries with its now-stale version.
	_, err = stack.svc.RemoveItem(ctx, ref, p1.ID, &first.Version)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected version conflict, got %v", err)
	}

	// The cart still holds both lines.
	dto, err := stack.svc.GetCart(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("stale write must not mutate, got %+v", dto.Items)
	}
}

func TestServiceRemoveMissingLineIsIdempotent(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	p1 := mustCreateProduct(t, stack.client, "p1", 1000)
	ref := CartRef{UserID: user.ID}

	if _, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	dto, err := stack.svc.RemoveItem(ctx, ref, uuid.New(), nil)
	if err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if len(dto.Items) != 1 || dto.Version != 1 {
		t.Fatalf("expected untouched cart, got %+v", dto)
	}
}

func TestServiceAddUnknownProduct(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	user := mustCreateUser(t, stack.client)

	_, err := stack.svc.AddItem(context.Background(), CartRef{UserID: user.ID}, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceGuestCartLifecycle(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	p1 := mustCreateProduct(t, stack.client, "p1", 999)
	ref := CartRef{GuestToken: "guest-abc"}

	if _, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 1}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	dto, err := stack.svc.AddItem(ctx, ref, AddItemInput{ProductID: p1.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("guest add: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].Quantity != 3 || dto.SubtotalCents != 2997 {
		t.Fatalf("unexpected guest cart: %+v", dto)
	}

	dto, err = stack.svc.Clear(ctx, ref)
	if err != nil {
		t.Fatalf("guest clear: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("guest cart not cleared: %+v", dto)
	}
}

func TestServiceMergeGuestCartIntoUserCart(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	shared := mustCreateProduct(t, stack.client, "shared", 1000)
	guestOnly := mustCreateProduct(t, stack.client, "guest-only", 2500)
	userRef := CartRef{UserID: user.ID}
	guestRef := CartRef{GuestToken: "guest-merge"}

	if _, err := stack.svc.AddItem(ctx, userRef, AddItemInput{ProductID: shared.ID, Quantity: 2}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := stack.svc.AddItem(ctx, guestRef, AddItemInput{ProductID: shared.ID, Quantity: 3}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	if _, err := stack.svc.AddItem(ctx, guestRef, AddItemInput{ProductID: guestOnly.ID, Quantity: 1}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	dto, err := stack.svc.MergeGuestCart(ctx, user.ID, "guest-merge")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected two lines after merge, got %+v", dto.Items)
	}
	byProduct := map[uuid.UUID]int{}
	for _, line := range dto.Items {
		byProduct[line.ProductID] = line.Quantity
	}
	if byProduct[shared.ID] != 5 || byProduct[guestOnly.ID] != 1 {
		t.Fatalf("quantities not summed: %+v", byProduct)
	}

	if _, ok := stack.guest.carts["guest-merge"]; ok {
		t.Fatal("guest cart should be deleted after merge")
	}
}

func TestServiceMergeEmptyGuestCart(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()
	user := mustCreateUser(t, stack.client)
	p1 := mustCreateProduct(t, stack.client, "p1", 100)

	if _, err := stack.svc.AddItem(ctx, CartRef{UserID: user.ID}, AddItemInput{ProductID: p1.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	dto, err := stack.svc.MergeGuestCart(ctx, user.ID, "no-such-guest")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("user cart should be unchanged, got %+v", dto.Items)
	}
}

func TestCartRefValidation(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()

	cases := []CartRef{
		{},
		{UserID: uuid.New(), GuestToken: "both"},
	}
	for _, ref := range cases {
		_, err := stack.svc.GetCart(ctx, ref)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("ref %+v: expected validation error, got %v", ref, err)
		}
	}
}
