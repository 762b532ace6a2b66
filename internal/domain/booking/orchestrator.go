package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
)

// PaymentOutcome is what the orchestrator decided and captured for a new booking.
type PaymentOutcome struct {
	Status           PaymentStatus `json:"payment_status"`
	Transactions     []Transaction `json:"transactions"`
	RemainingBalance float64       `json:"remaining_balance"`
	PayAtVenue       bool          `json:"pay_at_venue"`
}

// Orchestrator decides how much to charge and records every capture.
type Orchestrator struct {
	gateway payment.Gateway
	refunds payment.RefundGateway
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewOrchestrator(gateway payment.Gateway, refunds payment.RefundGateway, log logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{gateway: gateway, refunds: refunds, log: log, now: time.Now}
}

// ResolvePayment charges the deposit or the full amount as the service's
// settings require. Any decline aborts with ErrPayment and nothing captured.
func (o *Orchestrator) ResolvePayment(ctx context.Context, svc *catalog.Service, pricing PricingBreakdown, method payment.Method, details payment.Details, requiresApproval bool) (*PaymentOutcome, error) {
	settings := svc.PaymentSettings
	out := &PaymentOutcome{Status: PaymentPending, RemainingBalance: pricing.TotalAmount}

	if !settings.AcceptOnlinePayment {
		out.PayAtVenue = true
		return out, nil
	}
	if method == "" || len(details) == 0 {
		return nil, validationf("payment method and details are required for online payment")
	}
	if !method.Valid() {
		return nil, validationf("unsupported payment method %q", method)
	}

	deposit := settings.DepositEnabled && pricing.DepositAmount > 0
	switch {
	case deposit:
		txn, err := o.Charge(ctx, method, details, pricing.DepositAmount, TxnDeposit)
		if err != nil {
			return nil, err
		}
		out.Status = PaymentDepositPaid
		out.Transactions = append(out.Transactions, txn)
		out.RemainingBalance = payment.Round(pricing.TotalAmount - pricing.DepositAmount)
	case requiresApproval:
		// charged after the owner approves
	default:
		txn, err := o.Charge(ctx, method, details, pricing.TotalAmount, TxnFullPayment)
		if err != nil {
			return nil, err
		}
		out.Status = PaymentFullyPaid
		out.Transactions = append(out.Transactions, txn)
		out.RemainingBalance = 0
	}
	return out, nil
}

// Charge captures amount through the gateway and returns the completed
// transaction record.
func (o *Orchestrator) Charge(ctx context.Context, method payment.Method, details payment.Details, amount float64, kind TransactionType) (Transaction, error) {
	amount = payment.Round(amount)
	ok, err := o.gateway.ProcessPayment(ctx, method, details, amount)
	if err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{"amount": amount, "type": kind}).Error("payment gateway error")
		return Transaction{}, fmt.Errorf("%w: %w", ErrPayment, err)
	}
	if !ok {
		o.log.WithFields(logrus.Fields{"amount": amount, "type": kind, "method": method}).Warn("payment declined")
		return Transaction{}, fmt.Errorf("%w: %s of %.2f declined", ErrPayment, kind, amount)
	}
	return Transaction{
		Type:          kind,
		Amount:        amount,
		Status:        TxnCompleted,
		PaymentMethod: method,
		TransactionID: payment.NewTransactionID(),
		PayerRef:      details.PayerRef(),
		CreatedAt:     o.now().UTC(),
	}, nil
}

// Refund returns money for a captured transaction.
func (o *Orchestrator) Refund(ctx context.Context, txn *Transaction, amount float64) (string, error) {
	res, err := o.refunds.ProcessExternalRefund(ctx, txn.TransactionID, txn.PaymentMethod, payment.Round(amount), txn.PayerRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPayment, err)
	}
	if !res.Success {
		return "", fmt.Errorf("%w: refund for %s rejected", ErrPayment, txn.TransactionID)
	}
	return res.RefundID, nil
}

// Compensate refunds captures that no longer back a stored booking.
func (o *Orchestrator) Compensate(ctx context.Context, txns []Transaction, reason string) {
	for i := range txns {
		t := &txns[i]
		if t.Status != TxnCompleted || t.TransactionID == "" {
			continue
		}
		log := o.log.WithFields(logrus.Fields{"transaction_id": t.TransactionID, "amount": t.Amount, "reason": reason})
		if id, err := o.Refund(context.WithoutCancel(ctx), t, t.Amount); err != nil {
			log.WithError(err).Error("compensating refund failed")
		} else {
			log.WithField("refund_id", id).Warn("capture refunded")
		}
	}
}
