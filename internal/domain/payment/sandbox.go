package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DeclinedToken is the card token the sandbox always declines.
	DeclinedToken = "tok_declined"
	// UnavailableToken makes the sandbox behave as if the provider were down.
	UnavailableToken = "tok_unavailable"
)

// Sandbox is an in-process gateway used in development and tests. It approves
// every charge except those made with DeclinedToken or UnavailableToken and
// keeps a running total of captured and refunded amounts.
type Sandbox struct {
	log logrus.FieldLogger

	mu       sync.Mutex
	captured float64
	refunded float64
	refunds  map[string]string
}

func NewSandbox(log logrus.FieldLogger) *Sandbox {
	return &Sandbox{log: log, refunds: make(map[string]string)}
}

func (s *Sandbox) ProcessPayment(ctx context.Context, method Method, details Details, amount float64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if amount <= 0 {
		return false, nil
	}
	if strings.EqualFold(details["card_token"], UnavailableToken) {
		return false, ErrGatewayUnavailable
	}
	if strings.EqualFold(details["card_token"], DeclinedToken) {
		s.log.WithFields(logrus.Fields{"method": method, "amount": amount}).Warn("sandbox: charge declined")
		return false, nil
	}

	s.mu.Lock()
	s.captured += amount
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"method": method, "amount": amount}).Debug("sandbox: charge captured")
	return true, nil
}

// ProcessExternalRefund refunds a captured transaction once. Repeating a
// refund for the same transaction returns the original refund id.
func (s *Sandbox) ProcessExternalRefund(ctx context.Context, transactionID string, method Method, amount float64, payerRef string) (RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return RefundResult{}, err
	}
	if strings.EqualFold(payerRef, UnavailableToken) {
		return RefundResult{}, ErrGatewayUnavailable
	}
	if transactionID == "" || amount <= 0 {
		return RefundResult{Success: false}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.refunds[transactionID]; ok {
		return RefundResult{Success: true, RefundID: id}, nil
	}
	id := "rfnd_" + uuid.NewString()
	s.refunds[transactionID] = id
	s.refunded += amount

	s.log.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"method":         method,
		"amount":         amount,
		"payer_ref":      payerRef,
	}).Info("sandbox: refund issued")
	return RefundResult{Success: true, RefundID: id}, nil
}

// Totals returns the captured and refunded sums seen so far.
func (s *Sandbox) Totals() (captured, refunded float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured, s.refunded
}
