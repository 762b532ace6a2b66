package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
	"odysseum/internal/logger"
)

func timedService(f *fixture) *catalog.Service {
	return f.service(func(r *catalog.CreateServiceRequest) {
		r.RequiresApproval = true
		r.BookingTimeout = intPtr(15)
	})
}

func TestSweeper_CancelsUnpaidAfterTimeout(t *testing.T) {
	f := newFixture(t)
	svc := timedService(f)

	b, err := f.book(svc.ID, 2, nil)
	require.NoError(t, err)
	assert.Nil(t, b.ExpiresAt)
	assert.Equal(t, 2, f.bookingsMade(svc.ID, "2030-01-05"))

	sweeper := NewSweeper(f.svc, logger.Discard(), time.Minute, 10)

	f.clock = f.clock.Add(time.Hour)
	assert.Zero(t, sweeper.RunOnce(context.Background()), "awaiting approval")

	res, err := f.svc.ApproveBooking(context.Background(), f.owner, b.ID, svc.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Booking.ExpiresAt)
	assert.True(t, f.clock.Add(15*time.Minute).Equal(*res.Booking.ExpiresAt))

	assert.Zero(t, sweeper.RunOnce(context.Background()), "not expired yet")

	f.clock = f.clock.Add(16 * time.Minute)
	assert.Equal(t, 1, sweeper.RunOnce(context.Background()))

	got := f.reload(b.ID)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.True(t, got.Cancellation.Cancelled)
	assert.Equal(t, TimeoutReason, got.Cancellation.Reason)
	assert.Zero(t, got.Cancellation.RefundAmount)
	assert.Zero(t, f.bookingsMade(svc.ID, "2030-01-05"))

	assert.Zero(t, sweeper.RunOnce(context.Background()), "second pass finds nothing")
}

func TestSweeper_LeavesSlowApprovalAlone(t *testing.T) {
	f := newFixture(t)
	svc := timedService(f)

	b, err := f.book(svc.ID, 1, nil)
	require.NoError(t, err)

	f.clock = f.clock.Add(24 * time.Hour)
	assert.Zero(t, NewSweeper(f.svc, logger.Discard(), time.Minute, 10).RunOnce(context.Background()))

	res, err := f.svc.ApproveBooking(context.Background(), f.owner, b.ID, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Booking.Status)
	assert.Equal(t, 1, f.bookingsMade(svc.ID, "2030-01-05"))
}

func TestSweeper_SkipsBookingPaidInTime(t *testing.T) {
	f := newFixture(t)
	svc := timedService(f)

	b, err := f.book(svc.ID, 1, nil)
	require.NoError(t, err)

	_, err = f.svc.ApproveBooking(context.Background(), f.owner, b.ID, svc.ID)
	require.NoError(t, err)

	f.clock = f.clock.Add(5 * time.Minute)
	_, err = f.svc.UpdatePayment(context.Background(), f.customer, b.ID, UpdatePaymentRequest{
		PaymentMethod:  payment.MethodCard,
		PaymentDetails: payment.Details{"card_token": "tok_visa"},
	})
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	assert.Zero(t, NewSweeper(f.svc, logger.Discard(), time.Minute, 10).RunOnce(context.Background()))

	got := f.reload(b.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, PaymentFullyPaid, got.PaymentStatus)
	assert.Nil(t, got.ExpiresAt)
	assert.Equal(t, 1, f.bookingsMade(svc.ID, "2030-01-05"))
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	s := NewSweeper(f.svc, logger.Discard(), 10*time.Millisecond, 0)

	s.Stop()
	s.Stop()

	s = NewSweeper(f.svc, logger.Discard(), 10*time.Millisecond, 0)
	s.Start()
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
