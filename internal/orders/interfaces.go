package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	"github.com/curamedis/caresupply-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	ListOrders(ctx context.Context, institutionID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// StockLedger applies inventory side effects inside the order transaction.
type StockLedger interface {
	Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Return(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}
