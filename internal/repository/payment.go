package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/oluseyi-dev/payflow/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

const paymentColumns = `id, processor_ref, amount, currency, status, payer_email,
	payer_id, payment_method, description, error_message, version, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (
			id, processor_ref, amount, currency, status, payer_email,
			payer_id, payment_method, description, error_message, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.ProcessorRef, p.Amount, p.Currency, p.Status, p.PayerEmail,
		p.PayerID, p.PaymentMethod, p.Description, p.ErrorMessage, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByProcessorRef(ctx context.Context, ref string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE processor_ref = $1`, ref,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByProcessorRef: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByProcessorRef: %w", err)
	}
	return p, nil
}

// Update persists the mutable payment fields with a compare-and-swap on the
// version column. On success the in-memory record's version is bumped to
// match the stored row.
func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		SET processor_ref = $1, status = $2, payer_email = $3, payer_id = $4,
			error_message = $5, version = version + 1, updated_at = now()
		WHERE id = $6 AND version = $7`,
		p.ProcessorRef, p.Status, p.PayerEmail, p.PayerID,
		p.ErrorMessage, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, p.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("Update: existence check: %w", err)
		}
		if exists {
			return fmt.Errorf("Update: %w", domain.ErrVersionConflict)
		}
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}

	p.Version++
	return nil
}

func (r *PaymentRepository) List(ctx context.Context, limit, offset int) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return payments, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	err := s.Scan(
		&p.ID, &p.ProcessorRef, &p.Amount, &p.Currency, &p.Status, &p.PayerEmail,
		&p.PayerID, &p.PaymentMethod, &p.Description, &p.ErrorMessage, &p.Version,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
