package catalog

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

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

	if err := client.DB().AutoMigrate(&models.User{}, &models.Product{}, &models.Review{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return client
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "catalog-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func mustCreateProduct(t *testing.T, tx *gorm.DB, product models.Product) models.Product {
	t.Helper()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Name == "" {
		product.Name = fmt.Sprintf("Product %s", product.ID)
	}
	if product.Category == "" {
		product.Category = "misc"
	}
	if err := tx.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func catalogProduct(name, brand, category string, priceCents, ordinal int) models.Product {
	return models.Product{
		ID:             uuid.New(),
		Name:           name,
		Brand:          brand,
		Category:       category,
		PriceCents:     priceCents,
		InStock:        true,
		IsActive:       true,
		CatalogOrdinal: ordinal,
	}
}
