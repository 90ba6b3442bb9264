package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the per-product stock counters and the low-stock alert flag.
type Service interface {
	Increase(ctx context.Context, productID uuid.UUID, amount int) (*models.Product, error)
	Decrease(ctx context.Context, productID uuid.UUID, amount int) (*models.Product, error)
	SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*models.Product, error)
	SetThreshold(ctx context.Context, productID uuid.UUID, threshold int) (*models.Product, error)
	Acknowledge(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a stock service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Increase(ctx context.Context, productID uuid.UUID, amount int) (*models.Product, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "increase amount must be positive")
	}
	return s.mutate(ctx, productID, func(product *models.Product) {
		applyQuantity(product, product.StockQuantity+amount)
	})
}

func (s *service) Decrease(ctx context.Context, productID uuid.UUID, amount int) (*models.Product, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decrease amount must be positive")
	}
	return s.mutate(ctx, productID, func(product *models.Product) {
		next := product.StockQuantity - amount
		if next < 0 {
			next = 0
		}
		applyQuantity(product, next)
	})
}

// SetQuantity is the manual corrective entry: the result is not floored,
// a negative value records backlog debt.
func (s *service) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*models.Product, error) {
	return s.mutate(ctx, productID, func(product *models.Product) {
		applyQuantity(product, quantity)
	})
}

func (s *service) SetThreshold(ctx context.Context, productID uuid.UUID, threshold int) (*models.Product, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
	}
	return s.mutate(ctx, productID, func(product *models.Product) {
		product.LowStockThreshold = threshold
		if threshold > product.StockQuantity {
			product.LowStockAlertAcknowledged = false
		}
	})
}

func (s *service) Acknowledge(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	return s.mutate(ctx, productID, func(product *models.Product) {
		product.LowStockAlertAcknowledged = true
	})
}

func (s *service) ListLowStock(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListBelowThreshold(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}
	return products, nil
}

func (s *service) mutate(ctx context.Context, productID uuid.UUID, apply func(product *models.Product)) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	var result *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		apply(product)

		updates := map[string]any{
			"stock_quantity":               product.StockQuantity,
			"low_stock_threshold":          product.LowStockThreshold,
			"low_stock_alert_acknowledged": product.LowStockAlertAcknowledged,
		}
		if err := repo.UpdateStock(ctx, product.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		result = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyQuantity sets the new counter and re-evaluates the alert flag:
// acknowledgement is cleared whenever the resulting quantity sits below
// the threshold, and left untouched otherwise.
func applyQuantity(product *models.Product, quantity int) {
	product.StockQuantity = quantity
	if quantity < product.LowStockThreshold {
		product.LowStockAlertAcknowledged = false
	}
}
