package payment

import (
	"context"
	"errors"
)

type Method string

const (
	MethodCard   Method = "card"
	MethodWallet Method = "wallet"
	MethodBank   Method = "bank_transfer"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCard, MethodWallet, MethodBank:
		return true
	}
	return false
}

// Details carries the payer's instrument data as sent by the client
// (card token, wallet handle, ...). It is passed to the gateway untouched.
type Details map[string]string

// PayerRef identifies the payer towards the refund provider.
func (d Details) PayerRef() string {
	for _, k := range []string{"payer_ref", "card_token", "account"} {
		if v := d[k]; v != "" {
			return v
		}
	}
	return ""
}

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Gateway captures money. A false result with a nil error is a decline.
type Gateway interface {
	ProcessPayment(ctx context.Context, method Method, details Details, amount float64) (bool, error)
}

type RefundResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
}

type RefundGateway interface {
	ProcessExternalRefund(ctx context.Context, transactionID string, method Method, amount float64, payerRef string) (RefundResult, error)
}
