// A small in-memory stand-in for the external payment processor. It speaks
// just enough of the processor's REST surface for local development: create
// a sale-intent payment, execute it, look it up, and refund its sale.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oluseyi-dev/payflow/internal/logging"
)

type amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type sale struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type relatedResource struct {
	Sale *sale `json:"sale,omitempty"`
}

type transaction struct {
	Amount           amount            `json:"amount"`
	Description      string            `json:"description,omitempty"`
	RelatedResources []relatedResource `json:"related_resources,omitempty"`
}

type payerInfo struct {
	Email   string `json:"email"`
	PayerID string `json:"payer_id"`
}

type payer struct {
	PaymentMethod string     `json:"payment_method"`
	PayerInfo     *payerInfo `json:"payer_info,omitempty"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paymentRecord struct {
	ID           string        `json:"id"`
	Intent       string        `json:"intent"`
	State        string        `json:"state"`
	Payer        payer         `json:"payer"`
	Transactions []transaction `json:"transactions"`
	Links        []link        `json:"links,omitempty"`
}

type processorError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type store struct {
	mu       sync.Mutex
	payments map[string]*paymentRecord
	// saleID -> remaining refundable amount
	saleBalances map[string]decimal.Decimal
}

func newStore() *store {
	return &store{
		payments:     make(map[string]*paymentRecord),
		saleBalances: make(map[string]decimal.Decimal),
	}
}

func main() {
	logging.Init("mock-processor", "info", os.Getenv("APP_ENV"))

	s := newStore()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /v1/payments/payment", s.createPayment)
	mux.HandleFunc("GET /v1/payments/payment/{id}", s.getPayment)
	mux.HandleFunc("POST /v1/payments/payment/{id}/execute", s.executePayment)
	mux.HandleFunc("POST /v1/payments/sale/{id}/refund", s.refundSale)

	addr := ":8081"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	slog.Info("mock processor started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (s *store) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MALFORMED_REQUEST", "request body is not valid JSON")
		return
	}
	if len(req.Transactions) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "at least one transaction is required")
		return
	}
	total, err := decimal.NewFromString(req.Transactions[0].Amount.Total)
	if err != nil || !total.IsPositive() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "transaction amount must be a positive decimal")
		return
	}

	id := "PAY-" + uuid.NewString()
	rec := &paymentRecord{
		ID:           id,
		Intent:       req.Intent,
		State:        "created",
		Payer:        payer{PaymentMethod: req.Payer.PaymentMethod},
		Transactions: req.Transactions,
		Links: []link{
			{Href: "http://" + r.Host + "/approve/" + id, Rel: "approval_url"},
			{Href: "http://" + r.Host + "/v1/payments/payment/" + id + "/execute", Rel: "execute"},
		},
	}

	s.mu.Lock()
	s.payments[id] = rec
	s.mu.Unlock()

	slog.Info("payment created", "id", id, "amount", req.Transactions[0].Amount.Total)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *store) getPayment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec, ok := s.payments[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "INVALID_RESOURCE_ID", "payment not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *store) executePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayerID string `json:"payer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PayerID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "payer_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "INVALID_RESOURCE_ID", "payment not found")
		return
	}
	if rec.State != "created" {
		writeError(w, http.StatusBadRequest, "PAYMENT_ALREADY_DONE", "payment has already been executed")
		return
	}

	saleID := "SALE-" + uuid.NewString()
	rec.State = "approved"
	rec.Payer.PayerInfo = &payerInfo{
		Email:   fmt.Sprintf("%s@sandbox.example", req.PayerID),
		PayerID: req.PayerID,
	}
	rec.Transactions[0].RelatedResources = []relatedResource{
		{Sale: &sale{ID: saleID, State: "completed"}},
	}

	total, _ := decimal.NewFromString(rec.Transactions[0].Amount.Total)
	s.saleBalances[saleID] = total

	slog.Info("payment executed", "id", rec.ID, "sale_id", saleID, "payer_id", req.PayerID)
	writeJSON(w, http.StatusOK, rec)
}

func (s *store) refundSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount amount `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MALFORMED_REQUEST", "request body is not valid JSON")
		return
	}
	refundAmount, err := decimal.NewFromString(req.Amount.Total)
	if err != nil || !refundAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "refund amount must be a positive decimal")
		return
	}

	saleID := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.saleBalances[saleID]
	if !ok {
		writeError(w, http.StatusNotFound, "INVALID_RESOURCE_ID", "sale not found")
		return
	}
	if refundAmount.GreaterThan(balance) {
		writeError(w, http.StatusBadRequest, "TRANSACTION_REFUSED", "refund amount exceeds transaction balance")
		return
	}
	s.saleBalances[saleID] = balance.Sub(refundAmount)

	refundID := "REF-" + uuid.NewString()
	slog.Info("sale refunded", "sale_id", saleID, "refund_id", refundID, "amount", req.Amount.Total)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     refundID,
		"state":  "completed",
		"amount": req.Amount,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, name, message string) {
	writeJSON(w, status, processorError{Name: name, Message: message})
}
