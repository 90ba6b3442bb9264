package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	"github.com/curamedis/caresupply-backend/pkg/enums"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
	"github.com/curamedis/caresupply-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID, actorInstitutionID *uuid.UUID) error
	GetOrder(ctx context.Context, orderID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, institutionID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	RecomputeTotal(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger StockLedger
	now    func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger StockLedger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		ledger: ledger,
		now:    time.Now,
	}, nil
}

// allowedTransitions is the full status state machine. Anything not in
// this table is rejected.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.InstitutionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institution id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if input.CreatedByUserID != nil && input.CreatedByWorkerID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order creator cannot be both user and worker")
	}
	if input.CreatedByUserID == nil && input.CreatedByWorkerID == nil && !input.IsRecurring {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order creator required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		items := make([]models.OrderItem, 0, len(input.Items))
		total := decimal.Zero
		for _, line := range input.Items {
			if line.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
			}
			product, err := repo.FindProduct(ctx, line.ProductID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is unavailable", product.Name))
			}
			if line.Quantity > product.StockQuantity {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("requested quantity %d exceeds stock for %s", line.Quantity, product.Name))
			}
			if line.Quantity < product.MinOrderQuantity {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity %d is below minimum order quantity %d for %s", line.Quantity, product.MinOrderQuantity, product.Name))
			}

			subtotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, models.OrderItem{
				ProductID:    product.ID,
				Quantity:     line.Quantity,
				PricePerUnit: product.UnitPrice,
				Subtotal:     subtotal,
			})
			total = total.Add(subtotal)
		}

		order := &models.Order{
			InstitutionID:     input.InstitutionID,
			PatientID:         input.PatientID,
			CreatedByUserID:   input.CreatedByUserID,
			CreatedByWorkerID: input.CreatedByWorkerID,
			Status:            enums.OrderStatusPending,
			IsRecurring:       input.IsRecurring,
			ScheduledDate:     input.ScheduledDate,
			TotalAmount:       total,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.NewStatus))
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.ActorInstitutionID != nil && order.InstitutionID != *input.ActorInstitutionID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another institution")
		}
		if !canTransition(order.Status, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("transition from %s to %s is not allowed", order.Status, input.NewStatus))
		}

		now := s.now().UTC()
		updates := map[string]any{"status": input.NewStatus}

		switch {
		case order.Status == enums.OrderStatusPending && input.NewStatus == enums.OrderStatusConfirmed:
			for _, item := range order.Items {
				if err := s.ledger.Deduct(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
			updates["is_confirmed"] = true
			updates["approved_at"] = now
			if input.ActorUserID != nil {
				updates["approved_by_user_id"] = *input.ActorUserID
			}
		case order.Status == enums.OrderStatusConfirmed && input.NewStatus == enums.OrderStatusCancelled:
			for _, item := range order.Items {
				if err := s.ledger.Return(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		case input.NewStatus == enums.OrderStatusShipped:
			updates["shipped_at"] = now
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		order.Status = input.NewStatus
		if confirmed, ok := updates["is_confirmed"].(bool); ok {
			order.IsConfirmed = confirmed
			order.ApprovedAt = &now
			order.ApprovedByUserID = input.ActorUserID
		}
		if _, ok := updates["shipped_at"]; ok {
			order.ShippedAt = &now
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an order that has not moved stock yet. Only PENDING
// orders qualify; everything else would need a compensating action.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID, actorInstitutionID *uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if actorInstitutionID != nil && order.InstitutionID != *actorInstitutionID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another institution")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeValidation, "only pending orders can be deleted")
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if actorInstitutionID != nil && order.InstitutionID != *actorInstitutionID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another institution")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, institutionID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if institutionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institution id required")
	}
	list, err := s.repo.ListOrders(ctx, institutionID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// RecomputeTotal repairs the cached total from the persisted items. The
// invariant total_amount == sum(item subtotals) must hold at every
// observation point.
func (s *service) RecomputeTotal(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		items, err := repo.FindOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}
		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.Subtotal)
		}
		if !total.Equal(order.TotalAmount) {
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"total_amount": total}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order total")
			}
		}
		order.TotalAmount = total
		order.Items = items
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
