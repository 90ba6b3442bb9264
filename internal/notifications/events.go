package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdvanceNoticeItem is one template line as priced at notice time.
type AdvanceNoticeItem struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// AdvanceNoticeEvent is the heads-up sent to an institution some days
// before a recurring template executes. The consumer renders and mails
// it; this service only publishes.
type AdvanceNoticeEvent struct {
	ExecutionID   uuid.UUID           `json:"executionId"`
	TemplateID    uuid.UUID           `json:"templateId"`
	TemplateName  string              `json:"templateName"`
	InstitutionID uuid.UUID           `json:"institutionId"`
	PatientID     *uuid.UUID          `json:"patientId,omitempty"`
	PatientCount  int64               `json:"patientCount"`
	ExecutionDate time.Time           `json:"executionDate"`
	DeliveryDate  time.Time           `json:"deliveryDate"`
	Items         []AdvanceNoticeItem `json:"items"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

// EventType tags the payload on the wire.
const AdvanceNoticeEventType = "recurring_order.advance_notice"
