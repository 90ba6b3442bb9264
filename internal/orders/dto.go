package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curamedis/caresupply-backend/pkg/enums"
)

// OrderItemInput is one requested product line.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput captures everything needed to place an order. Exactly
// one of CreatedByUserID / CreatedByWorkerID must be set unless the
// order is scheduler-generated (IsRecurring).
type CreateOrderInput struct {
	InstitutionID     uuid.UUID
	PatientID         *uuid.UUID
	CreatedByUserID   *uuid.UUID
	CreatedByWorkerID *uuid.UUID
	Items             []OrderItemInput
	ScheduledDate     *time.Time
	IsRecurring       bool
}

// TransitionInput moves an order to a new status. ActorInstitutionID nil
// means an unscoped administrative actor.
type TransitionInput struct {
	OrderID            uuid.UUID
	NewStatus          enums.OrderStatus
	ActorUserID        *uuid.UUID
	ActorInstitutionID *uuid.UUID
}

// OrderFilters describe the inputs supported by the order list.
type OrderFilters struct {
	Status      *enums.OrderStatus
	IsRecurring *bool
	DateFrom    *time.Time
	DateTo      *time.Time
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	ID            uuid.UUID         `json:"id"`
	PatientID     *uuid.UUID        `json:"patient_id,omitempty"`
	Status        enums.OrderStatus `json:"status"`
	IsRecurring   bool              `json:"is_recurring"`
	ScheduledDate *time.Time        `json:"scheduled_date,omitempty"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	TotalItems    int               `json:"total_items"`
	CreatedAt     time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
