package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oluseyi-dev/payflow/internal/domain"
	"github.com/oluseyi-dev/payflow/internal/gateway"
	"github.com/oluseyi-dev/payflow/internal/logging"
)

type RefundPaymentRequest struct {
	PaymentID uuid.UUID
	// Amount, when nil, means the full remaining refundable balance.
	Amount *decimal.Decimal
	Reason string
}

// RefundPayment refunds part or all of a completed payment through the
// processor's sale record, then appends a refund record and advances the
// payment to PARTIALLY_REFUNDED or REFUNDED. The cumulative refunded amount
// can never exceed the payment amount.
func (s *Service) RefundPayment(ctx context.Context, req RefundPaymentRequest) (*domain.PaymentRefund, error) {
	log := logging.FromContext(ctx)

	p, err := s.payments.GetByID(ctx, req.PaymentID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("RefundPayment: %w", notFoundPayment())
		}
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}

	unlock := s.locks.Lock(p.ID)
	defer unlock()

	p, err = s.payments.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}

	if !p.Status.CanTransitionTo(domain.PaymentStatusRefunded) {
		return nil, fmt.Errorf("RefundPayment: %w",
			domain.NewRefundError("not_completed", "only completed payments can be refunded"))
	}
	if p.ProcessorRef == nil {
		return nil, fmt.Errorf("RefundPayment: %w",
			domain.NewRefundError("no_capture_found", "payment has no processor reference"))
	}

	remaining, err := s.remainingRefundable(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}

	amount := remaining
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("RefundPayment: %w",
			domain.NewValidationError("invalid_amount", "refund amount must be greater than zero"))
	}
	if amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("RefundPayment: %w",
			domain.NewRefundError("refund_exceeds_balance",
				fmt.Sprintf("refund of %s exceeds remaining refundable balance of %s", amount.StringFixed(2), remaining.StringFixed(2))))
	}

	saleID, err := s.processor.FindSale(ctx, *p.ProcessorRef)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			return nil, fmt.Errorf("RefundPayment: %w",
				domain.NewRefundError("no_capture_found", "no completed sale exists for this payment"))
		case errors.Is(err, gateway.ErrUnavailable):
			return nil, fmt.Errorf("RefundPayment: %w",
				domain.NewRefundError("processor_unreachable", "payment processor is unreachable"))
		default:
			log.Error("unexpected gateway error resolving sale", "payment_id", p.ID, "error", err)
			return nil, fmt.Errorf("RefundPayment: %w",
				domain.NewRefundError("refund_failed", "refund failed"))
		}
	}

	view, err := s.processor.RefundSale(ctx, saleID, amount, p.Currency)
	if err != nil {
		var rejected *gateway.RejectedError
		switch {
		case errors.As(err, &rejected):
			return nil, fmt.Errorf("RefundPayment: %w",
				domain.NewRefundError("refund_failed", "processor rejected refund: "+rejected.Reason))
		case errors.Is(err, gateway.ErrUnavailable):
			return nil, fmt.Errorf("RefundPayment: %w",
				domain.NewRefundError("processor_unreachable", "payment processor is unreachable"))
		default:
			log.Error("unexpected gateway error during refund", "payment_id", p.ID, "sale_id", saleID, "error", err)
			return nil, fmt.Errorf("RefundPayment: %w",
				domain.NewRefundError("refund_failed", "refund failed"))
		}
	}

	now := time.Now().UTC()
	refundRef := view.RefundID
	refund := &domain.PaymentRefund{
		ID:        uuid.New(),
		PaymentID: p.ID,
		RefundRef: &refundRef,
		Amount:    amount,
		Status:    domain.PaymentStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Reason != "" {
		reason := req.Reason
		refund.Reason = &reason
	}

	if err := s.refunds.Create(ctx, refund); err != nil {
		// The processor already honored the refund; the missing local record
		// is a genuine inconsistency and must not be silent.
		log.Error("refund succeeded remotely but local record creation failed",
			"payment_id", p.ID,
			"refund_ref", refundRef,
			"error", err,
		)
		return nil, fmt.Errorf("RefundPayment: %w",
			domain.NewRefundError("refund_failed", "refund processed but local record creation failed"))
	}

	next := domain.PaymentStatusPartiallyRefunded
	if amount.Equal(remaining) {
		next = domain.PaymentStatusRefunded
	}
	p.Status = next

	if err := s.payments.Update(ctx, p); err != nil {
		log.Error("failed to update payment status after refund",
			"payment_id", p.ID,
			"status", next,
			"error", err,
		)
		return nil, fmt.Errorf("RefundPayment: %w",
			domain.NewRefundError("refund_failed", "refund processed but payment status update failed"))
	}

	log.Info("payment refunded",
		"payment_id", p.ID,
		"refund_id", refund.ID,
		"refund_ref", refundRef,
		"amount", amount.StringFixed(2),
		"status", next,
	)

	return refund, nil
}

// remainingRefundable is the payment amount minus all recorded refunds.
// Refund records exist only for processor-confirmed refunds, so the sum is
// authoritative.
func (s *Service) remainingRefundable(ctx context.Context, p *domain.Payment) (decimal.Decimal, error) {
	refunds, err := s.refunds.ListByPaymentID(ctx, p.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("remainingRefundable: %w", err)
	}

	refunded := decimal.Zero
	for _, r := range refunds {
		refunded = refunded.Add(r.Amount)
	}
	return p.Amount.Sub(refunded), nil
}
