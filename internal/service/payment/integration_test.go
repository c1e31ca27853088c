package payment_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oluseyi-dev/payflow/internal/config"
	"github.com/oluseyi-dev/payflow/internal/domain"
	"github.com/oluseyi-dev/payflow/internal/gateway"
	"github.com/oluseyi-dev/payflow/internal/repository"
	"github.com/oluseyi-dev/payflow/internal/service/payment"
	"github.com/oluseyi-dev/payflow/internal/testutil"
)

// fakeProcessor emulates the processor's REST surface in-process so the full
// stack, gateway client included, runs against real wire traffic.
type fakeProcessor struct {
	mu           sync.Mutex
	states       map[string]string // payment id -> created | approved
	sales        map[string]string // payment id -> sale id
	saleBalances map[string]decimal.Decimal
	amounts      map[string]string
	executeCalls int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		states:       make(map[string]string),
		sales:        make(map[string]string),
		saleBalances: make(map[string]decimal.Decimal),
		amounts:      make(map[string]string),
	}
}

func (f *fakeProcessor) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transactions []struct {
				Amount struct {
					Total string `json:"total"`
				} `json:"amount"`
			} `json:"transactions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		id := "PAY-" + uuid.NewString()
		f.mu.Lock()
		f.states[id] = "created"
		f.amounts[id] = req.Transactions[0].Amount.Total
		f.mu.Unlock()

		writeJSON(t, w, http.StatusCreated, map[string]any{
			"id":    id,
			"state": "created",
			"links": []map[string]string{
				{"href": "https://processor.test/approve/" + id, "rel": "approval_url"},
			},
		})
	})

	mux.HandleFunc("POST /v1/payments/payment/{id}/execute", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		f.mu.Lock()
		defer f.mu.Unlock()
		f.executeCalls++

		state, ok := f.states[id]
		if !ok {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"name": "INVALID_RESOURCE_ID", "message": "payment not found"})
			return
		}
		if state != "created" {
			writeJSON(t, w, http.StatusBadRequest, map[string]string{"name": "PAYMENT_ALREADY_DONE", "message": "payment has already been executed"})
			return
		}

		saleID := "SALE-" + uuid.NewString()
		f.states[id] = "approved"
		f.sales[id] = saleID
		f.saleBalances[saleID] = decimal.RequireFromString(f.amounts[id])

		writeJSON(t, w, http.StatusOK, f.paymentBody(id))
	})

	mux.HandleFunc("GET /v1/payments/payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.states[id]; !ok {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"name": "INVALID_RESOURCE_ID", "message": "payment not found"})
			return
		}
		writeJSON(t, w, http.StatusOK, f.paymentBody(id))
	})

	mux.HandleFunc("POST /v1/payments/sale/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		saleID := r.PathValue("id")
		amount := decimal.RequireFromString(req.Amount.Total)

		f.mu.Lock()
		defer f.mu.Unlock()
		balance, ok := f.saleBalances[saleID]
		if !ok {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"name": "INVALID_RESOURCE_ID", "message": "sale not found"})
			return
		}
		if amount.GreaterThan(balance) {
			writeJSON(t, w, http.StatusBadRequest, map[string]string{"name": "TRANSACTION_REFUSED", "message": "refund amount exceeds transaction balance"})
			return
		}
		f.saleBalances[saleID] = balance.Sub(amount)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":     "REF-" + uuid.NewString(),
			"state":  "completed",
			"amount": map[string]string{"total": req.Amount.Total, "currency": req.Amount.Currency},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// caller must hold f.mu
func (f *fakeProcessor) paymentBody(id string) map[string]any {
	body := map[string]any{
		"id":    id,
		"state": f.states[id],
	}
	if f.states[id] == "approved" {
		body["payer"] = map[string]any{
			"payment_method": "paypal",
			"payer_info":     map[string]string{"email": "buyer@test.example", "payer_id": "payer1"},
		}
		body["transactions"] = []map[string]any{{
			"amount": map[string]string{"total": f.amounts[id], "currency": "EUR"},
			"related_resources": []map[string]any{{
				"sale": map[string]string{"id": f.sales[id], "state": "completed"},
			}},
		}}
	}
	return body
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(payload))
}

func setupPaymentService(t *testing.T, db *sql.DB, processorURL string) *payment.Service {
	t.Helper()
	return payment.NewService(
		repository.NewPaymentRepository(db),
		repository.NewRefundRepository(db),
		gateway.NewClient(gateway.Options{
			BaseURL:   processorURL,
			ClientID:  "test-client",
			Secret:    "test-secret",
			ReturnURL: "http://localhost/return",
			CancelURL: "http://localhost/cancel",
		}),
		&config.Config{Currency: "EUR"},
	)
}

func TestPaymentLifecycle_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proc := newFakeProcessor()
	svc := setupPaymentService(t, db, proc.server(t).URL)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, payment.CreatePaymentRequest{
		Amount:      decimal.RequireFromString("100.00"),
		Description: "order 42",
	})
	require.NoError(t, err)
	require.NotNil(t, created.Payment.ProcessorRef)
	assert.NotEmpty(t, created.ApprovalURL)
	assert.Equal(t, domain.PaymentStatusPending, testutil.GetPaymentStatus(t, db, created.Payment.ID))

	executed, err := svc.ExecutePayment(ctx, *created.Payment.ProcessorRef, "payer1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, executed.Status)
	require.NotNil(t, executed.PayerEmail)
	assert.Equal(t, "buyer@test.example", *executed.PayerEmail)
	assert.Equal(t, domain.PaymentStatusCompleted, testutil.GetPaymentStatus(t, db, created.Payment.ID))

	partial := decimal.RequireFromString("40.00")
	ref1, err := svc.RefundPayment(ctx, payment.RefundPaymentRequest{
		PaymentID: created.Payment.ID,
		Amount:    &partial,
		Reason:    "customer request",
	})
	require.NoError(t, err)
	assert.True(t, ref1.Amount.Equal(partial))
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, testutil.GetPaymentStatus(t, db, created.Payment.ID))

	ref2, err := svc.RefundPayment(ctx, payment.RefundPaymentRequest{PaymentID: created.Payment.ID})
	require.NoError(t, err)
	assert.True(t, ref2.Amount.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, domain.PaymentStatusRefunded, testutil.GetPaymentStatus(t, db, created.Payment.ID))
	assert.Equal(t, 2, testutil.CountRefunds(t, db, created.Payment.ID))

	one := decimal.RequireFromString("1.00")
	_, err = svc.RefundPayment(ctx, payment.RefundPaymentRequest{PaymentID: created.Payment.ID, Amount: &one})
	require.ErrorIs(t, err, domain.ErrRefund)
}

func TestPaymentLifecycle_ConcurrentExecutes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proc := newFakeProcessor()
	svc := setupPaymentService(t, db, proc.server(t).URL)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, payment.CreatePaymentRequest{
		Amount: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ExecutePayment(ctx, *created.Payment.ProcessorRef, "payer1")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("worker %d", i))
	}

	assert.Equal(t, domain.PaymentStatusCompleted, testutil.GetPaymentStatus(t, db, created.Payment.ID))

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Equal(t, 1, proc.executeCalls, "only one capture may reach the processor")
}

func TestPaymentLifecycle_ConcurrentRefundsNeverExceedBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proc := newFakeProcessor()
	svc := setupPaymentService(t, db, proc.server(t).URL)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, payment.CreatePaymentRequest{
		Amount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	_, err = svc.ExecutePayment(ctx, *created.Payment.ProcessorRef, "payer1")
	require.NoError(t, err)

	const workers = 5
	chunk := decimal.RequireFromString("30.00")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RefundPayment(ctx, payment.RefundPaymentRequest{
				PaymentID: created.Payment.ID,
				Amount:    &chunk,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrRefund)
		}
	}

	// 100.00 holds exactly three 30.00 refunds.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 3, testutil.CountRefunds(t, db, created.Payment.ID))
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, testutil.GetPaymentStatus(t, db, created.Payment.ID))
}

func TestRefundPendingPayment_NeverReachesProcessor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proc := newFakeProcessor()
	svc := setupPaymentService(t, db, proc.server(t).URL)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, payment.CreatePaymentRequest{
		Amount: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	_, err = svc.RefundPayment(ctx, payment.RefundPaymentRequest{PaymentID: created.Payment.ID})
	require.ErrorIs(t, err, domain.ErrRefund)
	assert.Equal(t, 0, testutil.CountRefunds(t, db, created.Payment.ID))
	assert.Equal(t, domain.PaymentStatusPending, testutil.GetPaymentStatus(t, db, created.Payment.ID))
}
