package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
)

// Ledger applies stock side effects inside an order transaction. Deduct
// refuses to take stock below zero, so the Return a cancellation issues
// is always its exact inverse. Manual corrections that do go negative
// run through the stock service instead.
type Ledger struct{}

// NewLedger exposes the default ledger implementation.
func NewLedger() Ledger {
	return Ledger{}
}

func (Ledger) Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return adjust(ctx, tx, productID, -qty, true)
}

func (Ledger) Return(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return adjust(ctx, tx, productID, qty, false)
}

func adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta int, strict bool) error {
	if delta == 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock adjustment")
	}

	var product models.Product
	if err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for stock adjustment")
	}

	next := product.StockQuantity + delta
	if strict && next < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("insufficient stock for %s: have %d, need %d", product.Name, product.StockQuantity, -delta))
	}

	updates := map[string]any{"stock_quantity": next}
	if next < product.LowStockThreshold {
		updates["low_stock_alert_acknowledged"] = false
	}

	err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	return nil
}
