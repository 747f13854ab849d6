package orders

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
	"github.com/graybeam/storefront-backend/pkg/enums"
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

	err = client.DB().AutoMigrate(
		&models.User{},
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
	return logger.New(logger.Options{ServiceName: "orders-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func mustCreateOrder(t *testing.T, client *db.Client, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                    uuid.New(),
		UserID:                userID,
		Email:                 fmt.Sprintf("orders_%s@example.com", uuid.NewString()),
		Status:                status,
		Currency:              enums.CurrencyUSD,
		SubtotalCents:         2500,
		ShippingCents:         599,
		TaxCents:              200,
		TotalCents:            3299,
		PaymentIdempotencyKey: uuid.NewString(),
		Items: []models.OrderLineItem{
			{
				Name:           "Canopy Tent",
				Category:       "outdoor",
				UnitPriceCents: 2500,
				Qty:            1,
				TotalCents:     2500,
			},
		},
	}
	repo := NewRepository(client.DB())
	created, err := repo.Create(context.Background(), order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return created
}
