package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRefund is one refund applied against a completed payment. Records
// are created only after the processor confirms the refund and are never
// mutated afterwards except for error annotation.
type PaymentRefund struct {
	ID           uuid.UUID
	PaymentID    uuid.UUID
	RefundRef    *string
	Amount       decimal.Decimal
	Status       PaymentStatus
	Reason       *string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
