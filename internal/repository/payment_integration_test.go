package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oluseyi-dev/payflow/internal/domain"
	"github.com/oluseyi-dev/payflow/internal/repository"
	"github.com/oluseyi-dev/payflow/internal/testutil"
)

func TestPaymentRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	ref := "PAY-abc"
	desc := "order 42"
	now := time.Now().UTC()
	p := &domain.Payment{
		ID:            uuid.New(),
		ProcessorRef:  &ref,
		Amount:        decimal.RequireFromString("19.99"),
		Currency:      "EUR",
		Status:        domain.PaymentStatusPending,
		PaymentMethod: "paypal",
		Description:   desc,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	require.NoError(t, repo.Create(ctx, p))

	byID, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byID.ID)
	assert.True(t, byID.Amount.Equal(p.Amount))
	assert.Equal(t, domain.PaymentStatusPending, byID.Status)
	require.NotNil(t, byID.ProcessorRef)
	assert.Equal(t, ref, *byID.ProcessorRef)
	assert.Equal(t, desc, byID.Description)

	byRef, err := repo.GetByProcessorRef(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)
}

func TestPaymentRepository_GetMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByProcessorRef(ctx, "PAY-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentRepository_UpdateBumpsVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	p := testutil.SeedPayment(t, db, "PAY-upd", "10.00", domain.PaymentStatusPending)

	p.Status = domain.PaymentStatusCompleted
	payerID := "payer1"
	p.PayerID = &payerID

	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.PayerID)
	assert.Equal(t, "payer1", *got.PayerID)
}

func TestPaymentRepository_UpdateStaleVersionConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	seeded := testutil.SeedPayment(t, db, "PAY-cas", "10.00", domain.PaymentStatusPending)

	first, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	first.Status = domain.PaymentStatusCompleted
	require.NoError(t, repo.Update(ctx, first))

	second.Status = domain.PaymentStatusFailed
	err = repo.Update(ctx, second)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	got, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status, "stale writer must not clobber the winner")
}

func TestPaymentRepository_UpdateMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	p := &domain.Payment{
		ID:       uuid.New(),
		Amount:   decimal.NewFromInt(5),
		Currency: "EUR",
		Status:   domain.PaymentStatusPending,
	}

	err := repo.Update(ctx, p)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	testutil.SeedPayment(t, db, "PAY-1", "1.00", domain.PaymentStatusPending)
	testutil.SeedPayment(t, db, "PAY-2", "2.00", domain.PaymentStatusCompleted)
	testutil.SeedPayment(t, db, "PAY-3", "3.00", domain.PaymentStatusFailed)

	all, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestRefundRepository_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	refundRepo := repository.NewRefundRepository(db)
	ctx := context.Background()

	p := testutil.SeedPayment(t, db, "PAY-ref", "100.00", domain.PaymentStatusCompleted)

	ref := "REF-1"
	reason := "customer request"
	now := time.Now().UTC()
	refund := &domain.PaymentRefund{
		ID:        uuid.New(),
		PaymentID: p.ID,
		RefundRef: &ref,
		Amount:    decimal.RequireFromString("40.00"),
		Status:    domain.PaymentStatusCompleted,
		Reason:    &reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, refundRepo.Create(ctx, refund))

	testutil.SeedRefund(t, db, p.ID, "REF-2", "25.00")

	refunds, err := refundRepo.ListByPaymentID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 2)

	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount)
	}
	assert.True(t, total.Equal(decimal.RequireFromString("65.00")))

	none, err := refundRepo.ListByPaymentID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
