package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oluseyi-dev/payflow/internal/domain"
)

func SeedPayment(t *testing.T, db *sql.DB, processorRef, amount string, status domain.PaymentStatus) *domain.Payment {
	t.Helper()

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:            uuid.New(),
		ProcessorRef:  &processorRef,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "EUR",
		Status:        status,
		PaymentMethod: "paypal",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := db.Exec(
		`INSERT INTO payments (id, processor_ref, amount, currency, status, payment_method, description, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ProcessorRef, p.Amount, p.Currency, p.Status, p.PaymentMethod, p.Description, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed payment %s: %v", processorRef, err)
	}
	return p
}

func SeedRefund(t *testing.T, db *sql.DB, paymentID uuid.UUID, refundRef, amount string) *domain.PaymentRefund {
	t.Helper()

	now := time.Now().UTC()
	r := &domain.PaymentRefund{
		ID:        uuid.New(),
		PaymentID: paymentID,
		RefundRef: &refundRef,
		Amount:    decimal.RequireFromString(amount),
		Status:    domain.PaymentStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.Exec(
		`INSERT INTO payment_refunds (id, payment_id, refund_ref, amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.PaymentID, r.RefundRef, r.Amount, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed refund %s: %v", refundRef, err)
	}
	return r
}

func GetPaymentStatus(t *testing.T, db *sql.DB, paymentID uuid.UUID) domain.PaymentStatus {
	t.Helper()

	var status domain.PaymentStatus
	err := db.QueryRow(`SELECT status FROM payments WHERE id = $1`, paymentID).Scan(&status)
	if err != nil {
		t.Fatalf("get payment status %s: %v", paymentID, err)
	}
	return status
}

func CountRefunds(t *testing.T, db *sql.DB, paymentID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM payment_refunds WHERE payment_id = $1`, paymentID).Scan(&count)
	if err != nil {
		t.Fatalf("count refunds for payment %s: %v", paymentID, err)
	}
	return count
}
