package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/oluseyi-dev/payflow/internal/domain"
	"github.com/oluseyi-dev/payflow/internal/gateway"
	"github.com/oluseyi-dev/payflow/internal/logging"
)

// ExecutePayment captures an approved payment on behalf of the payer and
// transitions the local record to COMPLETED or FAILED. Calls against an
// already-completed payment return the record without contacting the
// processor, so a double submission cannot trigger a double capture.
func (s *Service) ExecutePayment(ctx context.Context, processorRef, payerID string) (*domain.Payment, error) {
	log := logging.FromContext(ctx)

	if processorRef == "" || payerID == "" {
		return nil, fmt.Errorf("ExecutePayment: %w",
			domain.NewValidationError("missing_identifier", "payment_id and payer_id are required"))
	}

	// Resolve the local record before contacting the processor: payments this
	// system never initiated must not be confirmed.
	p, err := s.payments.GetByProcessorRef(ctx, processorRef)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("ExecutePayment: %w", notFoundPayment())
		}
		return nil, fmt.Errorf("ExecutePayment: %w", err)
	}

	unlock := s.locks.Lock(p.ID)
	defer unlock()

	// Re-read under the lock; a concurrent execute may have won the race.
	p, err = s.payments.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("ExecutePayment: %w", err)
	}

	switch {
	case p.Status.CanTransitionTo(domain.PaymentStatusCompleted):
		// only a pending payment can be captured
	case p.Status == domain.PaymentStatusFailed:
		return nil, fmt.Errorf("ExecutePayment: %w",
			domain.NewProcessingError("payment_failed", "payment previously failed and cannot be executed"))
	default:
		// Already captured (completed or since refunded); idempotent return.
		return p, nil
	}

	view, err := s.processor.ExecutePayment(ctx, processorRef, payerID)
	if err != nil {
		var rejected *gateway.RejectedError
		switch {
		case errors.As(err, &rejected):
			p.Status = domain.PaymentStatusFailed
			p.ErrorMessage = &rejected.Reason
			if uerr := s.payments.Update(ctx, p); uerr != nil {
				log.Error("failed to record execution failure", "payment_id", p.ID, "error", uerr)
			}
			return nil, fmt.Errorf("ExecutePayment: %w",
				domain.NewProcessingError("execution_failed", "processor rejected payment execution: "+rejected.Reason))
		case errors.Is(err, gateway.ErrUnavailable):
			// Never assume either outcome on timeout; local state stays PENDING.
			return nil, fmt.Errorf("ExecutePayment: %w",
				domain.NewProcessingError("processor_unreachable", "payment processor is unreachable"))
		case errors.Is(err, gateway.ErrNotFound):
			return nil, fmt.Errorf("ExecutePayment: %w",
				domain.NewProcessingError("execution_failed", "processor has no record of this payment"))
		default:
			log.Error("unexpected gateway error during payment execution", "payment_id", p.ID, "error", err)
			return nil, fmt.Errorf("ExecutePayment: %w",
				domain.NewProcessingError("execution_failed", "payment execution failed"))
		}
	}

	p.Status = domain.PaymentStatusCompleted
	p.PayerID = &payerID
	if view.PayerEmail != "" {
		email := view.PayerEmail
		p.PayerEmail = &email
	}

	if err := s.payments.Update(ctx, p); err != nil {
		// Captured remotely but not recorded locally. No compensating
		// transaction exists; the inconsistency is surfaced, not hidden.
		log.Error("payment captured remotely but local update failed",
			"payment_id", p.ID,
			"processor_ref", processorRef,
			"error", err,
		)
		return nil, fmt.Errorf("ExecutePayment: %w",
			domain.NewProcessingError("execution_failed", "payment captured but local record update failed"))
	}

	log.Info("payment executed",
		"payment_id", p.ID,
		"processor_ref", processorRef,
		"payer_id", payerID,
	)

	return p, nil
}
