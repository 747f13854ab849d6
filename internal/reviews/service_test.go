package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/internal/catalog"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/outbox"
)

type userFinder struct {
	client *db.Client
}

func (f userFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := f.client.DB().WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func newTestService(t *testing.T) (*db.Client, Service) {
	t.Helper()

	client := newTestDB(t)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(client.DB()),
		Catalog: catalog.NewRepository(client.DB()),
		Users:   userFinder{client: client},
		Tx:      client,
		Outbox:  outbox.NewService(outbox.NewRepository(client.DB()), testLogger()),
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return client, svc
}

func mustLoadProduct(t *testing.T, client *db.Client, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := client.DB().First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product
}

func TestCreateWritesReviewAggregateAndEvent(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	user := mustCreateUser(t, client, "Maya", "Linden")
	product := mustCreateProduct(t, client, "Canopy Tent")

	dto, err := svc.Create(ctx, user.ID, CreateReviewInput{
		ProductID: product.ID,
		Rating:    4,
		Title:     "Solid in the wind",
		Comment:   "Held up through a stormy weekend.",
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if dto.AuthorName != "Maya Linden" {
		t.Fatalf("author name = %q", dto.AuthorName)
	}
	if dto.Rating != 4 || dto.Title != "Solid in the wind" {
		t.Fatalf("unexpected review payload: %+v", dto)
	}

	stored := mustLoadProduct(t, client, product.ID)
	if stored.RatingAvg != 4 || stored.ReviewCount != 1 {
		t.Fatalf("aggregate = %.1f/%d, want 4.0/1", stored.RatingAvg, stored.ReviewCount)
	}

	var events []models.OutboxEvent
	if err := client.DB().Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(events))
	}
	if events[0].EventType != enums.EventReviewSubmitted || events[0].AggregateID != dto.ID {
		t.Fatalf("unexpected outbox event: %+v", events[0])
	}
}

func TestCreateSecondReviewSameAuthorConflicts(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	user := mustCreateUser(t, client, "Maya", "Linden")
	product := mustCreateProduct(t, client, "Canopy Tent")

	input := CreateReviewInput{ProductID: product.ID, Rating: 4}
	if _, err := svc.Create(ctx, user.ID, input); err != nil {
		t.Fatalf("first review: %v", err)
	}

	input.Rating = 1
	_, err := svc.Create(ctx, user.ID, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored := mustLoadProduct(t, client, product.ID)
	if stored.RatingAvg != 4 || stored.ReviewCount != 1 {
		t.Fatalf("aggregate changed after rejected review: %.1f/%d", stored.RatingAvg, stored.ReviewCount)
	}
}

func TestCreateAveragesAcrossAuthors(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	product := mustCreateProduct(t, client, "Canopy Tent")
	first := mustCreateUser(t, client, "Maya", "Linden")
	second := mustCreateUser(t, client, "Ines", "Vogel")

	if _, err := svc.Create(ctx, first.ID, CreateReviewInput{ProductID: product.ID, Rating: 4}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := svc.Create(ctx, second.ID, CreateReviewInput{ProductID: product.ID, Rating: 5}); err != nil {
		t.Fatalf("second review: %v", err)
	}

	stored := mustLoadProduct(t, client, product.ID)
	if stored.RatingAvg != 4.5 || stored.ReviewCount != 2 {
		t.Fatalf("aggregate = %.1f/%d, want 4.5/2", stored.RatingAvg, stored.ReviewCount)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	user := mustCreateUser(t, client, "Maya", "Linden")
	product := mustCreateProduct(t, client, "Canopy Tent")

	for _, rating := range []int{0, -1, 6} {
		_, err := svc.Create(ctx, user.ID, CreateReviewInput{ProductID: product.ID, Rating: rating})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("rating %d: expected validation error, got %v", rating, err)
		}
	}

	_, err := svc.Create(ctx, uuid.Nil, CreateReviewInput{ProductID: product.ID, Rating: 4})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, err = svc.Create(ctx, user.ID, CreateReviewInput{ProductID: uuid.New(), Rating: 4})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateOwnReviewRecomputesAggregate(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	user := mustCreateUser(t, client, "Maya", "Linden")
	product := mustCreateProduct(t, client, "Canopy Tent")

	created, err := svc.Create(ctx, user.ID, CreateReviewInput{
		ProductID: product.ID,
		Rating:    5,
		Title:     "Great",
		Comment:   "Loved it.",
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	rating := 2
	title := "Second trip changed my mind"
	updated, err := svc.Update(ctx, user.ID, created.ID, UpdateReviewInput{Rating: &rating, Title: &title})
	if err != nil {
		t.Fatalf("update review: %v", err)
	}
	if updated.Rating != 2 || updated.Title != title {
		t.Fatalf("unexpected updated review: %+v", updated)
	}
	if updated.Comment != "Loved it." {
		t.Fatalf("comment should be untouched, got %q", updated.Comment)
	}

	stored := mustLoadProduct(t, client, product.ID)
	if stored.RatingAvg != 2 || stored.ReviewCount != 1 {
		t.Fatalf("aggregate = %.1f/%d, want 2.0/1", stored.RatingAvg, stored.ReviewCount)
	}
}

func TestUpdateOtherAuthorsReviewForbidden(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	author := mustCreateUser(t, client, "Maya", "Linden")
	other := mustCreateUser(t, client, "Ines", "Vogel")
	product := mustCreateProduct(t, client, "Canopy Tent")

	created, err := svc.Create(ctx, author.ID, CreateReviewInput{ProductID: product.ID, Rating: 5})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	rating := 1
	_, err = svc.Update(ctx, other.ID, created.ID, UpdateReviewInput{Rating: &rating})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	stored := mustLoadProduct(t, client, product.ID)
	if stored.RatingAvg != 5 {
		t.Fatalf("aggregate changed after rejected edit: %.1f", stored.RatingAvg)
	}
}

func TestDeleteLastReviewClearsAggregate(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	user := mustCreateUser(t, client, "Maya", "Linden")
	product := mustCreateProduct(t, client, "Canopy Tent")

	created, err := svc.Create(ctx, user.ID, CreateReviewInput{ProductID: product.ID, Rating: 5})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if err := svc.Delete(ctx, user.ID, created.ID); err != nil {
		t.Fatalf("delete review: %v", err)
	}

	stored := mustLoadProduct(t, client, product.ID)
	if stored.RatingAvg != 0 || stored.ReviewCount != 0 {
		t.Fatalf("aggregate = %.1f/%d, want 0.0/0", stored.RatingAvg, stored.ReviewCount)
	}

	err = svc.Delete(ctx, user.ID, created.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteOtherAuthorsReviewForbidden(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	author := mustCreateUser(t, client, "Maya", "Linden")
	other := mustCreateUser(t, client, "Ines", "Vogel")
	product := mustCreateProduct(t, client, "Canopy Tent")

	created, err := svc.Create(ctx, author.ID, CreateReviewInput{ProductID: product.ID, Rating: 5})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	err = svc.Delete(ctx, other.ID, created.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListByProductNewestFirst(t *testing.T) {
	t.Parallel()

	client, svc := newTestService(t)
	ctx := context.Background()
	product := mustCreateProduct(t, client, "Canopy Tent")
	first := mustCreateUser(t, client, "Maya", "Linden")
	second := mustCreateUser(t, client, "Ines", "Vogel")

	older := models.Review{
		ID:         uuid.New(),
		ProductID:  product.ID,
		UserID:     first.ID,
		AuthorName: "Maya Linden",
		Rating:     4,
	}
	if err := client.DB().Create(&older).Error; err != nil {
		t.Fatalf("seed older review: %v", err)
	}
	if err := client.DB().Model(&older).Update("created_at", older.CreatedAt.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate older review: %v", err)
	}
	if _, err := svc.Create(ctx, second.ID, CreateReviewInput{ProductID: product.ID, Rating: 5}); err != nil {
		t.Fatalf("create newer review: %v", err)
	}

	page, err := svc.ListByProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.Items[0].UserID != second.ID || page.Items[1].UserID != first.ID {
		t.Fatalf("reviews not newest first: %+v", page.Items)
	}
	if page.ReviewCount != 2 || page.RatingAvg != 4.5 {
		t.Fatalf("aggregate = %.1f/%d, want 4.5/2", page.RatingAvg, page.ReviewCount)
	}

	_, err = svc.ListByProduct(ctx, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
