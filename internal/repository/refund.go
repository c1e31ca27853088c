package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/oluseyi-dev/payflow/internal/domain"
)

const refundColumns = `id, payment_id, refund_ref, amount, status, reason,
	error_message, created_at, updated_at`

type RefundRepository struct {
	db *sql.DB
}

func NewRefundRepository(db *sql.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) Create(ctx context.Context, refund *domain.PaymentRefund) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_refunds (
			id, payment_id, refund_ref, amount, status, reason,
			error_message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		refund.ID, refund.PaymentID, refund.RefundRef, refund.Amount, refund.Status,
		refund.Reason, refund.ErrorMessage, refund.CreatedAt, refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RefundRepository) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentRefund, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refundColumns+` FROM payment_refunds WHERE payment_id = $1 ORDER BY created_at DESC`,
		paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByPaymentID: %w", err)
	}
	defer rows.Close()

	var refunds []domain.PaymentRefund
	for rows.Next() {
		var ref domain.PaymentRefund
		err := rows.Scan(
			&ref.ID, &ref.PaymentID, &ref.RefundRef, &ref.Amount, &ref.Status,
			&ref.Reason, &ref.ErrorMessage, &ref.CreatedAt, &ref.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ListByPaymentID: %w", err)
		}
		refunds = append(refunds, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByPaymentID: %w", err)
	}
	return refunds, nil
}
