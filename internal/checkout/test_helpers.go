package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/pkg/config"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/square"
	"github.com/graybeam/storefront-backend/pkg/types"
)

func newTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn}, true, testLogger())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	err = client.DB().AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartRecord{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return client
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "checkout-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func testPricing(t *testing.T) *Pricing {
	t.Helper()
	pricing, err := NewPricing(config.CheckoutConfig{ShippingFlatCents: 599, TaxRatePercent: "8"})
	if err != nil {
		t.Fatalf("build pricing: %v", err)
	}
	return pricing
}

func mustCreateUser(t *testing.T, client *db.Client) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("checkout_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Checkout",
		LastName:     "Tester",
		IsActive:     true,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateProduct(t *testing.T, client *db.Client, name string, priceCents int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Category:   "outdoor",
		PriceCents: priceCents,
		InStock:    true,
		IsActive:   true,
	}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustFillCart(t *testing.T, client *db.Client, cartRepo cart.CartRepository, userID uuid.UUID, lines map[*models.Product]int) cart.Snapshot {
	t.Helper()
	var snapshot cart.Snapshot
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		snapshot, err = cart.ApplyUserMutation(context.Background(), tx, cartRepo, userID, nil, func(snap *cart.Snapshot) error {
			for product, qty := range lines {
				snap.AddItem(product, qty)
			}
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("fill cart: %v", err)
	}
	return snapshot
}

func testAddress() types.Address {
	return types.Address{
		FullName:   "Checkout Tester",
		Line1:      "400 Pine St",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97204",
	}
}

// stubPayments records charge attempts and can be primed to decline.
type stubPayments struct {
	failWith error
	requests []square.PaymentCreateParams
}

func (s *stubPayments) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.requests = append(s.requests, params)
	if s.failWith != nil {
		return nil, s.failWith
	}
	id := fmt.Sprintf("pay_%s", uuid.NewString())
	status := "COMPLETED"
	return &sq.Payment{ID: &id, Status: &status}, nil
}

func (s *stubPayments) LocationID() string {
	return "loc_test"
}
