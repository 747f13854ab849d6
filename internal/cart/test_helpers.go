package cart

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/graybeam/storefront-backend/pkg/config"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/logger"
)

func newTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn}, true, testLogger())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(&models.User{}, &models.Product{}, &models.CartRecord{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return client
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func mustCreateUser(t *testing.T, client *db.Client) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("cart_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Cart",
		LastName:     "Tester",
		IsActive:     true,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func testProduct(name string, priceCents int) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Category:   "misc",
		PriceCents: priceCents,
		InStock:    true,
		IsActive:   true,
	}
}

func mustCreateProduct(t *testing.T, client *db.Client, name string, priceCents int) *models.Product {
	t.Helper()
	product := testProduct(name, priceCents)
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// memoryGuestStore is an in-process stand-in for the Redis guest store.
type memoryGuestStore struct {
	carts map[string]Snapshot
}

func newMemoryGuestStore() *memoryGuestStore {
	return &memoryGuestStore{carts: map[string]Snapshot{}}
}

func (m *memoryGuestStore) Get(ctx context.Context, guestToken string) (Snapshot, error) {
	return m.carts[guestToken], nil
}

func (m *memoryGuestStore) Save(ctx context.Context, guestToken string, snapshot Snapshot) error {
	m.carts[guestToken] = snapshot
	return nil
}

func (m *memoryGuestStore) Delete(ctx context.Context, guestToken string) error {
	delete(m.carts, guestToken)
	return nil
}
