package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// legalTransitions encodes the payment lifecycle. FAILED and REFUNDED are
// terminal; a failed payment is recreated, never retried in place.
var legalTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:         {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusFailed:            nil,
	PaymentStatusRefunded:          nil,
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0
}

// Payment is one attempted money movement from a payer to the merchant.
// ProcessorRef is the processor-assigned reference, immutable once set.
// Version backs the optimistic-concurrency check on updates.
type Payment struct {
	ID            uuid.UUID
	ProcessorRef  *string
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	PayerEmail    *string
	PayerID       *string
	PaymentMethod string
	Description   string
	ErrorMessage  *string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
