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

type CreatePaymentRequest struct {
	Amount      decimal.Decimal
	Description string
}

type CreatePaymentResult struct {
	Payment     *domain.Payment
	ApprovalURL string
}

// CreatePayment registers the payment with the processor, then persists a
// PENDING record carrying the processor reference. Nothing is persisted when
// the processor rejects the request, so no orphaned record without a
// reference can exist.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	log := logging.FromContext(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("CreatePayment: %w",
			domain.NewValidationError("invalid_amount", "amount must be greater than zero"))
	}

	created, err := s.processor.CreatePayment(ctx, req.Amount, s.currency, req.Description)
	if err != nil {
		var rejected *gateway.RejectedError
		switch {
		case errors.As(err, &rejected):
			return nil, fmt.Errorf("CreatePayment: %w",
				domain.NewProcessingError("payment_creation_failed", "processor rejected payment creation: "+rejected.Reason))
		case errors.Is(err, gateway.ErrUnavailable):
			return nil, fmt.Errorf("CreatePayment: %w",
				domain.NewProcessingError("processor_unreachable", "payment processor is unreachable"))
		default:
			log.Error("unexpected gateway error during payment creation", "error", err)
			return nil, fmt.Errorf("CreatePayment: %w",
				domain.NewProcessingError("payment_creation_failed", "payment creation failed"))
		}
	}

	now := time.Now().UTC()
	ref := created.RemoteID
	p := &domain.Payment{
		ID:            uuid.New(),
		ProcessorRef:  &ref,
		Amount:        req.Amount,
		Currency:      s.currency,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: paymentMethod,
		Description:   req.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.payments.Create(ctx, p); err != nil {
		log.Error("failed to persist payment after remote creation",
			"processor_ref", ref,
			"error", err,
		)
		return nil, fmt.Errorf("CreatePayment: %w",
			domain.NewProcessingError("payment_creation_failed", "payment creation failed"))
	}

	if created.ApprovalURL == "" {
		// The PENDING record already exists and is kept; the window is
		// accepted rather than rolled back.
		msg := "processor response did not include an approval link"
		p.ErrorMessage = &msg
		if uerr := s.payments.Update(ctx, p); uerr != nil {
			log.Warn("failed to annotate payment missing approval url", "payment_id", p.ID, "error", uerr)
		}
		return nil, fmt.Errorf("CreatePayment: %w",
			domain.NewProcessingError("approval_url_missing", msg))
	}

	log.Info("payment created",
		"payment_id", p.ID,
		"processor_ref", ref,
		"amount", req.Amount.StringFixed(2),
		"currency", s.currency,
	)

	return &CreatePaymentResult{Payment: p, ApprovalURL: created.ApprovalURL}, nil
}
