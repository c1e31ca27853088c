package gateway

// CreateResult is the outcome of a remote payment creation. ApprovalURL is
// the redirect target the payer must visit before the payment can be
// executed; it may be empty if the processor response lacked the link.
type CreateResult struct {
	RemoteID    string
	ApprovalURL string
}

// RemotePaymentView is the processor's view of a payment. SaleID is set only
// once a capture exists.
type RemotePaymentView struct {
	RemoteID   string
	State      string
	PayerID    string
	PayerEmail string
	SaleID     string
}

// RemoteRefundView is the processor's record of a refund issued against a sale.
type RemoteRefundView struct {
	RefundID string
	State    string
	Amount   string
	Currency string
}
