package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oluseyi-dev/payflow/internal/logging"
)

// Client talks to the external payment processor's REST API. It is the only
// component in the repository that performs network I/O.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	returnURL  string
	cancelURL  string
	httpClient *http.Client
}

type Options struct {
	BaseURL   string
	ClientID  string
	Secret    string
	ReturnURL string
	CancelURL string
	Timeout   time.Duration
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   opts.BaseURL,
		clientID:  opts.ClientID,
		secret:    opts.Secret,
		returnURL: opts.ReturnURL,
		cancelURL: opts.CancelURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type amountPayload struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type transactionPayload struct {
	Amount           amountPayload     `json:"amount"`
	Description      string            `json:"description,omitempty"`
	RelatedResources []relatedResource `json:"related_resources,omitempty"`
}

type relatedResource struct {
	Sale *salePayload `json:"sale,omitempty"`
}

type salePayload struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type linkPayload struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type payerPayload struct {
	PaymentMethod string            `json:"payment_method"`
	PayerInfo     *payerInfoPayload `json:"payer_info,omitempty"`
}

type payerInfoPayload struct {
	Email   string `json:"email"`
	PayerID string `json:"payer_id"`
}

type remotePaymentPayload struct {
	ID           string               `json:"id,omitempty"`
	Intent       string               `json:"intent"`
	State        string               `json:"state,omitempty"`
	Payer        payerPayload         `json:"payer"`
	Transactions []transactionPayload `json:"transactions"`
	RedirectURLs *redirectURLs        `json:"redirect_urls,omitempty"`
	Links        []linkPayload        `json:"links,omitempty"`
}

type redirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type processorErrorPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// CreatePayment registers a sale-intent payment with the processor and
// returns its reference plus the payer approval redirect target.
func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description string) (*CreateResult, error) {
	req := remotePaymentPayload{
		Intent: "sale",
		Payer:  payerPayload{PaymentMethod: "paypal"},
		Transactions: []transactionPayload{{
			Amount:      amountPayload{Total: amount.StringFixed(2), Currency: currency},
			Description: description,
		}},
		RedirectURLs: &redirectURLs{ReturnURL: c.returnURL, CancelURL: c.cancelURL},
	}

	var resp remotePaymentPayload
	if err := c.doJSON(ctx, http.MethodPost, "/v1/payments/payment", req, &resp); err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	result := &CreateResult{RemoteID: resp.ID}
	for _, link := range resp.Links {
		if link.Rel == "approval_url" {
			result.ApprovalURL = link.Href
			break
		}
	}
	return result, nil
}

// FindPayment fetches the processor's current view of a payment.
func (c *Client) FindPayment(ctx context.Context, remoteID string) (*RemotePaymentView, error) {
	var resp remotePaymentPayload
	path := "/v1/payments/payment/" + url.PathEscape(remoteID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("FindPayment: %w", err)
	}
	return toView(&resp), nil
}

// ExecutePayment captures an approved payment on behalf of the given payer.
func (c *Client) ExecutePayment(ctx context.Context, remoteID, payerID string) (*RemotePaymentView, error) {
	req := map[string]string{"payer_id": payerID}

	var resp remotePaymentPayload
	path := "/v1/payments/payment/" + url.PathEscape(remoteID) + "/execute"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("ExecutePayment: %w", err)
	}
	return toView(&resp), nil
}

// FindSale resolves the sale backing a captured payment. Returns
// ErrNotFound when no capture exists yet.
func (c *Client) FindSale(ctx context.Context, remoteID string) (string, error) {
	view, err := c.FindPayment(ctx, remoteID)
	if err != nil {
		return "", fmt.Errorf("FindSale: %w", err)
	}
	if view.SaleID == "" {
		return "", fmt.Errorf("FindSale: no sale recorded for payment %s: %w", remoteID, ErrNotFound)
	}
	return view.SaleID, nil
}

type refundRequestPayload struct {
	Amount amountPayload `json:"amount"`
}

type refundResponsePayload struct {
	ID     string        `json:"id"`
	State  string        `json:"state"`
	Amount amountPayload `json:"amount"`
}

// RefundSale issues a full or partial refund against a sale.
func (c *Client) RefundSale(ctx context.Context, saleID string, amount decimal.Decimal, currency string) (*RemoteRefundView, error) {
	req := refundRequestPayload{
		Amount: amountPayload{Total: amount.StringFixed(2), Currency: currency},
	}

	var resp refundResponsePayload
	path := "/v1/payments/sale/" + url.PathEscape(saleID) + "/refund"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("RefundSale: %w", err)
	}

	return &RemoteRefundView{
		RefundID: resp.ID,
		State:    resp.State,
		Amount:   resp.Amount.Total,
		Currency: resp.Amount.Currency,
	}, nil
}

func toView(p *remotePaymentPayload) *RemotePaymentView {
	view := &RemotePaymentView{
		RemoteID: p.ID,
		State:    p.State,
	}
	if info := p.Payer.PayerInfo; info != nil {
		view.PayerID = info.PayerID
		view.PayerEmail = info.Email
	}
	for _, tx := range p.Transactions {
		for _, res := range tx.RelatedResources {
			if res.Sale != nil && res.Sale.ID != "" {
				view.SaleID = res.Sale.ID
				return view
			}
		}
	}
	return view
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	log := logging.FromContext(ctx)

	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("doJSON: marshal: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("doJSON: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.clientID, c.secret)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts, refused connections and DNS failures all land here. A
		// timed-out capture may still have gone through remotely, so the
		// caller must not assume either outcome.
		log.Warn("processor request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("doJSON: %s %s: %v: %w", method, path, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	log.Debug("processor response received",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("doJSON: read body: %v: %w", err, ErrUnavailable)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if respBody == nil {
			return nil
		}
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("doJSON: decode: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("doJSON: %s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("doJSON: %s %s: status %d: %w", method, path, resp.StatusCode, ErrUnavailable)
	default:
		return fmt.Errorf("doJSON: %s %s: %w", method, path, &RejectedError{Reason: rejectionReason(raw, resp.StatusCode)})
	}
}

func rejectionReason(raw []byte, status int) string {
	var perr processorErrorPayload
	if err := json.Unmarshal(raw, &perr); err == nil && perr.Message != "" {
		return perr.Message
	}
	return fmt.Sprintf("status %d", status)
}
