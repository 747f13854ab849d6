package catalog

import (
	"context"
	_ "embed"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/pkg/db"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
)

//go:embed catalog_seed.json
var seedPayload []byte

// Seed loads the bundled catalog into an empty products table. Records use
// the legacy payload shapes on purpose so the normalization boundary is
// exercised on every fresh environment.
func Seed(ctx context.Context, client *db.Client, logg *logger.Logger) error {
	repo := NewRepository(client.DB())

	count, err := repo.Count(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count products")
	}
	if count > 0 {
		return nil
	}

	var raw []RawProduct
	if err := json.Unmarshal(seedPayload, &raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode catalog seed")
	}

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		for i, entry := range raw {
			product := entry.Normalize()
			product.CatalogOrdinal = i + 1
			if _, err := txRepo.Create(ctx, &product); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert seed product")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "seed_count", len(raw)), "catalog seeded")
	}
	return nil
}
