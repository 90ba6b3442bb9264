package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	"github.com/curamedis/caresupply-backend/pkg/enums"
)

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:stocktest?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  min_order_quantity INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 0,
  low_stock_alert_acknowledged INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	return db
}

func newProduct(t *testing.T, db *gorm.DB, name string, stock, threshold int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:                uuid.New(),
		Name:              name,
		Type:              enums.ProductTypeGlove,
		UnitPrice:         decimal.RequireFromString("2.50"),
		MinOrderQuantity:  1,
		IsActive:          true,
		StockQuantity:     stock,
		LowStockThreshold: threshold,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryUpdateStock(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := newProduct(t, db, "gloves", 10, 3)

	require.NoError(t, repo.UpdateStock(ctx, product.ID, map[string]any{
		"stock_quantity":               2,
		"low_stock_alert_acknowledged": false,
	}))

	reloaded, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.StockQuantity)
	assert.False(t, reloaded.LowStockAlertAcknowledged)
}

func TestRepositoryListBelowThreshold(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	newProduct(t, db, "bandages", 2, 5)
	newProduct(t, db, "wipes", 10, 5)
	newProduct(t, db, "aprons", 0, 1)

	low, err := repo.ListBelowThreshold(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	// ordered by name
	assert.Equal(t, "aprons", low[0].Name)
	assert.Equal(t, "bandages", low[1].Name)
}

func TestRepositoryFindProductMissing(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
