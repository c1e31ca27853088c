package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oluseyi-dev/payflow/internal/config"
	"github.com/oluseyi-dev/payflow/internal/domain"
	"github.com/oluseyi-dev/payflow/internal/gateway"
)

// paymentMethod tags every record created through this orchestrator. The
// system fronts a single processor; multi-processor routing is out of scope.
const paymentMethod = "paypal"

type paymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByProcessorRef(ctx context.Context, ref string) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	List(ctx context.Context, limit, offset int) ([]domain.Payment, error)
}

type refundRepo interface {
	Create(ctx context.Context, refund *domain.PaymentRefund) error
	ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentRefund, error)
}

type processorGateway interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description string) (*gateway.CreateResult, error)
	ExecutePayment(ctx context.Context, remoteID, payerID string) (*gateway.RemotePaymentView, error)
	FindSale(ctx context.Context, remoteID string) (string, error)
	RefundSale(ctx context.Context, saleID string, amount decimal.Decimal, currency string) (*gateway.RemoteRefundView, error)
}

// Service owns the payment state machine. It sequences processor calls with
// record-store writes and translates gateway failures into the domain error
// taxonomy; raw gateway errors never leave this package.
type Service struct {
	payments  paymentRepo
	refunds   refundRepo
	processor processorGateway
	locks     *paymentLocks
	currency  string
}

func NewService(payments paymentRepo, refunds refundRepo, processor processorGateway, cfg *config.Config) *Service {
	return &Service{
		payments:  payments,
		refunds:   refunds,
		processor: processor,
		locks:     newPaymentLocks(),
		currency:  cfg.Currency,
	}
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("GetPayment: %w", notFoundPayment())
		}
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, limit, offset int) ([]domain.Payment, error) {
	payments, err := s.payments.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	return payments, nil
}

func (s *Service) ListRefunds(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentRefund, error) {
	if _, err := s.payments.GetByID(ctx, paymentID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("ListRefunds: %w", notFoundPayment())
		}
		return nil, fmt.Errorf("ListRefunds: %w", err)
	}

	refunds, err := s.refunds.ListByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("ListRefunds: %w", err)
	}
	return refunds, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func notFoundPayment() *domain.Error {
	return domain.NewNotFoundError("payment_not_found", "payment not found")
}
