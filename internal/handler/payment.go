package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oluseyi-dev/payflow/internal/domain"
	"github.com/oluseyi-dev/payflow/internal/logging"
	"github.com/oluseyi-dev/payflow/internal/service/payment"
)

type paymentService interface {
	CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.CreatePaymentResult, error)
	ExecutePayment(ctx context.Context, processorRef, payerID string) (*domain.Payment, error)
	RefundPayment(ctx context.Context, req payment.RefundPaymentRequest) (*domain.PaymentRefund, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, limit, offset int) ([]domain.Payment, error)
	ListRefunds(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentRefund, error)
}

type PaymentHandler struct {
	payments paymentService
}

func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createPaymentRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type executePaymentRequest struct {
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id"`
}

type refundPaymentRequest struct {
	Amount *string `json:"amount"`
	Reason string  `json:"reason"`
}

type paymentDTO struct {
	ID            uuid.UUID `json:"id"`
	ProcessorRef  *string   `json:"processor_ref"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PayerEmail    *string   `json:"payer_email,omitempty"`
	PayerID       *string   `json:"payer_id,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	Description   string    `json:"description,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type refundDTO struct {
	ID        uuid.UUID `json:"id"`
	PaymentID uuid.UUID `json:"payment_id"`
	RefundRef *string   `json:"refund_ref"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type createPaymentDTO struct {
	Payment     paymentDTO `json:"payment"`
	ApprovalURL string     `json:"approval_url"`
}

func toPaymentDTO(p *domain.Payment) paymentDTO {
	return paymentDTO{
		ID:            p.ID,
		ProcessorRef:  p.ProcessorRef,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		Status:        string(p.Status),
		PayerEmail:    p.PayerEmail,
		PayerID:       p.PayerID,
		PaymentMethod: p.PaymentMethod,
		Description:   p.Description,
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toRefundDTO(r *domain.PaymentRefund) refundDTO {
	return refundDTO{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		RefundRef: r.RefundRef,
		Amount:    r.Amount.StringFixed(2),
		Status:    string(r.Status),
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondAppError(w, &AppError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_amount",
			Message: "amount must be a decimal number",
		})
		return
	}

	result, err := h.payments.CreatePayment(r.Context(), payment.CreatePaymentRequest{
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		log.Warn("payment creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, createPaymentDTO{
		Payment:     toPaymentDTO(result.Payment),
		ApprovalURL: result.ApprovalURL,
	})
}

func (h *PaymentHandler) Execute(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req executePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	p, err := h.payments.ExecutePayment(r.Context(), req.PaymentID, req.PayerID)
	if err != nil {
		log.Warn("payment execution failed", "processor_ref", req.PaymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondDomainError(w, domain.NewNotFoundError("payment_not_found", "payment not found"))
		return
	}

	var req refundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	svcReq := payment.RefundPaymentRequest{
		PaymentID: paymentID,
		Reason:    req.Reason,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			RespondAppError(w, &AppError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_amount",
				Message: "amount must be a decimal number",
			})
			return
		}
		svcReq.Amount = &amount
	}

	refund, err := h.payments.RefundPayment(r.Context(), svcReq)
	if err != nil {
		log.Warn("refund failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toRefundDTO(refund))
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondDomainError(w, domain.NewNotFoundError("payment_not_found", "payment not found"))
		return
	}

	p, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment lookup failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p))
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	payments, err := h.payments.ListPayments(r.Context(), limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]paymentDTO, 0, len(payments))
	for i := range payments {
		dtos = append(dtos, toPaymentDTO(&payments[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *PaymentHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondDomainError(w, domain.NewNotFoundError("payment_not_found", "payment not found"))
		return
	}

	refunds, err := h.payments.ListRefunds(r.Context(), paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("refund listing failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]refundDTO, 0, len(refunds))
	for i := range refunds {
		dtos = append(dtos, toRefundDTO(&refunds[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
