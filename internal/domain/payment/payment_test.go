package payment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odysseum/internal/logger"
)

func TestNewTransactionID_Format(t *testing.T) {
	now := time.UnixMilli(1735689600123)
	id := newTransactionID(now)
	assert.Regexp(t, regexp.MustCompile(`^txn_1735689600123_[0-9a-f]{13}$`), id)
	assert.NotEqual(t, id, newTransactionID(now))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 10.01, Round(10.005000001))
	assert.Equal(t, 33.33, Round(100.0/3))
	assert.Equal(t, 0.0, Round(0))
}

func TestSandbox_ChargeAndDecline(t *testing.T) {
	s := NewSandbox(logger.Discard())
	ctx := context.Background()

	ok, err := s.ProcessPayment(ctx, MethodCard, Details{"card_token": "tok_visa"}, 40)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ProcessPayment(ctx, MethodCard, Details{"card_token": DeclinedToken}, 40)
	require.NoError(t, err)
	assert.False(t, ok)

	captured, _ := s.Totals()
	assert.Equal(t, 40.0, captured)
}

func TestSandbox_RefundIsIdempotent(t *testing.T) {
	s := NewSandbox(logger.Discard())
	ctx := context.Background()

	first, err := s.ProcessExternalRefund(ctx, "txn_1_abc", MethodCard, 25, "tok_visa")
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.Contains(t, first.RefundID, "rfnd_")

	second, err := s.ProcessExternalRefund(ctx, "txn_1_abc", MethodCard, 25, "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, first.RefundID, second.RefundID)

	_, refunded := s.Totals()
	assert.Equal(t, 25.0, refunded)

	res, err := s.ProcessExternalRefund(ctx, "", MethodCard, 25, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestDetails_PayerRef(t *testing.T) {
	assert.Equal(t, "tok_visa", Details{"card_token": "tok_visa"}.PayerRef())
	assert.Equal(t, "p-1", Details{"payer_ref": "p-1", "card_token": "tok_visa"}.PayerRef())
	assert.Empty(t, Details{}.PayerRef())
}

func TestMethodValid(t *testing.T) {
	assert.True(t, MethodCard.Valid())
	assert.False(t, Method("cash").Valid())
}

func TestSandbox_Unavailable(t *testing.T) {
	s := NewSandbox(logger.Discard())
	ctx := context.Background()

	ok, err := s.ProcessPayment(ctx, MethodCard, Details{"card_token": UnavailableToken}, 40)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.False(t, ok)

	_, err = s.ProcessExternalRefund(ctx, "txn_1_abc", MethodCard, 25, UnavailableToken)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	captured, refunded := s.Totals()
	assert.Zero(t, captured)
	assert.Zero(t, refunded)
}
