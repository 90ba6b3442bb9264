package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
)

func TestLedgerDeductRejectsInsufficientStock(t *testing.T) {
	db := setupStockTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()

	product := newProduct(t, db, "gloves", 3, 0)

	err := ledger.Deduct(ctx, db, product.ID, 5)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var reloaded models.Product
	require.NoError(t, db.Where("id = ?", product.ID).First(&reloaded).Error)
	assert.Equal(t, 3, reloaded.StockQuantity)
}

func TestLedgerDeductThenReturnIsExactInverse(t *testing.T) {
	db := setupStockTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()

	product := newProduct(t, db, "gloves", 5, 0)

	require.NoError(t, ledger.Deduct(ctx, db, product.ID, 5))
	require.NoError(t, ledger.Return(ctx, db, product.ID, 5))

	var reloaded models.Product
	require.NoError(t, db.Where("id = ?", product.ID).First(&reloaded).Error)
	assert.Equal(t, 5, reloaded.StockQuantity)
}

func TestLedgerReturnRestoresStock(t *testing.T) {
	db := setupStockTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()

	product := newProduct(t, db, "pads", 2, 0)

	require.NoError(t, ledger.Return(ctx, db, product.ID, 4))

	var reloaded models.Product
	require.NoError(t, db.Where("id = ?", product.ID).First(&reloaded).Error)
	assert.Equal(t, 6, reloaded.StockQuantity)
}

func TestLedgerDeductClearsAcknowledgementBelowThreshold(t *testing.T) {
	db := setupStockTestDB(t)
	ledger := NewLedger()
	ctx := context.Background()

	product := newProduct(t, db, "wipes", 10, 5)
	require.NoError(t, db.Model(product).Update("low_stock_alert_acknowledged", true).Error)

	require.NoError(t, ledger.Deduct(ctx, db, product.ID, 7))

	var reloaded models.Product
	require.NoError(t, db.Where("id = ?", product.ID).First(&reloaded).Error)
	assert.Equal(t, 3, reloaded.StockQuantity)
	assert.False(t, reloaded.LowStockAlertAcknowledged)
}

func TestLedgerRequiresTransaction(t *testing.T) {
	ledger := NewLedger()
	err := ledger.Deduct(context.Background(), nil, uuid.New(), 2)
	assert.Error(t, err)
}
