package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"odysseum/internal/domain/auth"
	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
	"odysseum/internal/logger"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ProcessPayment(ctx context.Context, method payment.Method, details payment.Details, amount float64) (bool, error) {
	args := m.Called(ctx, method, details, amount)
	return args.Bool(0), args.Error(1)
}

func (m *mockGateway) ProcessExternalRefund(ctx context.Context, transactionID string, method payment.Method, amount float64, payerRef string) (payment.RefundResult, error) {
	args := m.Called(ctx, transactionID, method, amount, payerRef)
	return args.Get(0).(payment.RefundResult), args.Error(1)
}

// staleCatalog serves a snapshot of the service taken before other bookings
// consumed its capacity.
type staleCatalog struct {
	svc *catalog.Service
}

func (s staleCatalog) GetService(_ context.Context, id int64) (*catalog.Service, error) {
	if id != s.svc.ID {
		return nil, catalog.ErrNotFound
	}
	cp := *s.svc
	return &cp, nil
}

func onlineService(deposit bool, approval bool) *catalog.Service {
	return &catalog.Service{
		ID:       1,
		Capacity: 4,
		PaymentSettings: catalog.PaymentSettings{
			AcceptOnlinePayment: true,
			DepositEnabled:      deposit,
			DepositPercentage:   30,
		},
		BookingSettings: catalog.BookingSettings{RequiresApproval: approval},
	}
}

func TestResolvePayment_Branches(t *testing.T) {
	pricing := PricingBreakdown{TotalAmount: 100, DepositAmount: 30}
	card := payment.Details{"card_token": "tok_visa"}

	tests := []struct {
		name     string
		svc      *catalog.Service
		approval bool
		charge   float64
		status   PaymentStatus
		balance  float64
	}{
		{"deposit", onlineService(true, false), false, 30, PaymentDepositPaid, 70},
		{"deposit before approval", onlineService(true, true), true, 30, PaymentDepositPaid, 70},
		{"full", onlineService(false, false), false, 100, PaymentFullyPaid, 0},
		{"approval without deposit", onlineService(false, true), true, 0, PaymentPending, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			if tt.charge > 0 {
				gw.On("ProcessPayment", mock.Anything, payment.MethodCard, card, tt.charge).Return(true, nil).Once()
			}
			o := NewOrchestrator(gw, gw, logger.Discard())

			out, err := o.ResolvePayment(context.Background(), tt.svc, pricing, payment.MethodCard, card, tt.approval)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.balance, out.RemainingBalance)
			assert.False(t, out.PayAtVenue)
			if tt.charge > 0 {
				require.Len(t, out.Transactions, 1)
				assert.Equal(t, tt.charge, out.Transactions[0].Amount)
				assert.Equal(t, "tok_visa", out.Transactions[0].PayerRef)
			} else {
				assert.Empty(t, out.Transactions)
			}
			gw.AssertExpectations(t)
		})
	}
}

func TestResolvePayment_PayAtVenueSkipsGateway(t *testing.T) {
	gw := new(mockGateway)
	o := NewOrchestrator(gw, gw, logger.Discard())

	svc := &catalog.Service{}
	out, err := o.ResolvePayment(context.Background(), svc, PricingBreakdown{TotalAmount: 80}, "", nil, false)
	require.NoError(t, err)
	assert.True(t, out.PayAtVenue)
	assert.Equal(t, PaymentPending, out.Status)
	assert.Equal(t, 80.0, out.RemainingBalance)
	gw.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolvePayment_RequiresMethod(t *testing.T) {
	o := NewOrchestrator(new(mockGateway), new(mockGateway), logger.Discard())
	svc := onlineService(false, false)

	_, err := o.ResolvePayment(context.Background(), svc, PricingBreakdown{TotalAmount: 10}, "", nil, false)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = o.ResolvePayment(context.Background(), svc, PricingBreakdown{TotalAmount: 10}, "cheque", payment.Details{"x": "y"}, false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCharge_GatewayFailure(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ProcessPayment", mock.Anything, payment.MethodWallet, mock.Anything, 12.5).
		Return(false, payment.ErrGatewayUnavailable).Once()
	o := NewOrchestrator(gw, gw, logger.Discard())

	_, err := o.Charge(context.Background(), payment.MethodWallet, payment.Details{"account": "w-1"}, 12.5, TxnPartialPayment)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayment)
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	gw.AssertExpectations(t)
}

func TestRefund_Rejected(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ProcessExternalRefund", mock.Anything, "txn_1", payment.MethodCard, 40.0, "tok_visa").
		Return(payment.RefundResult{Success: false}, nil).Once()
	o := NewOrchestrator(gw, gw, logger.Discard())

	_, err := o.Refund(context.Background(), &Transaction{TransactionID: "txn_1", PaymentMethod: payment.MethodCard, PayerRef: "tok_visa"}, 40)
	assert.ErrorIs(t, err, ErrPayment)
	gw.AssertExpectations(t)
}

func TestCompensate_SkipsFailedAndKeepsGoing(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ProcessExternalRefund", mock.Anything, "txn_a", payment.MethodCard, 10.0, "").
		Return(payment.RefundResult{}, errors.New("provider down")).Once()
	gw.On("ProcessExternalRefund", mock.Anything, "txn_b", payment.MethodCard, 20.0, "").
		Return(payment.RefundResult{Success: true, RefundID: "rfnd_b"}, nil).Once()
	o := NewOrchestrator(gw, gw, logger.Discard())

	o.Compensate(context.Background(), []Transaction{
		{TransactionID: "txn_a", Amount: 10, Status: TxnCompleted, PaymentMethod: payment.MethodCard},
		{TransactionID: "txn_x", Amount: 5, Status: TxnFailed, PaymentMethod: payment.MethodCard},
		{TransactionID: "txn_b", Amount: 20, Status: TxnCompleted, PaymentMethod: payment.MethodCard},
	}, "test")
	gw.AssertExpectations(t)
}

// A capture made for a booking that then loses the race for the last spots
// is refunded before the conflict is reported.
func TestCreateBooking_CompensatesWhenReservationFails(t *testing.T) {
	f := newFixture(t)
	created := f.service(nil)
	snapshot, err := f.services.GetService(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = f.book(created.ID, 2, nil)
	require.NoError(t, err)

	gw := new(mockGateway)
	gw.On("ProcessPayment", mock.Anything, payment.MethodCard, mock.Anything, 110.0).Return(true, nil).Once()
	gw.On("ProcessExternalRefund", mock.Anything, mock.AnythingOfType("string"), payment.MethodCard, 110.0, "tok_visa").
		Return(payment.RefundResult{Success: true, RefundID: "rfnd_1"}, nil).Once()

	svc := NewService(NewRepository(f.db), staleCatalog{svc: snapshot}, auth.NewUserRepository(f.db),
		NewOrchestrator(gw, gw, logger.Discard()), logger.Discard(),
		Options{Now: func() time.Time { return f.clock }})

	_, err = svc.CreateBooking(context.Background(), f.customer, bookingRequest(created.ID, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	gw.AssertExpectations(t)

	var count int64
	require.NoError(t, f.db.Model(&Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 2, f.bookingsMade(created.ID, "2030-01-05"))
}
