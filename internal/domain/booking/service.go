package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"odysseum/internal/domain/auth"
	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
)

const (
	PageSize = 10

	// fee applied inside the paid cancellation window when the policy sets none
	defaultCancellationFeeRate = 0.20

	TimeoutReason = "Payment timeout"
)

type Options struct {
	MatchMode MatchMode
	Now       func() time.Time
}

// Service is the booking lifecycle: creation, approval, cancellation,
// payments and refunds, keeping catalog capacity counters consistent.
type Service struct {
	bookings *Repository
	services ServiceCatalog
	users    UserDirectory
	payments *Orchestrator
	log      logrus.FieldLogger

	matchMode MatchMode
	now       func() time.Time
}

func NewService(bookings *Repository, services ServiceCatalog, users UserDirectory, payments *Orchestrator, log logrus.FieldLogger, opts Options) *Service {
	s := &Service{
		bookings:  bookings,
		services:  services,
		users:     users,
		payments:  payments,
		log:       log,
		matchMode: opts.MatchMode,
		now:       opts.Now,
	}
	if !s.matchMode.Valid() {
		s.matchMode = MatchAny
	}
	if s.now == nil {
		s.now = time.Now
	}
	payments.now = s.now
	return s
}

// CheckAvailability reports remaining capacity of a service on date (YYYY-MM-DD).
func (s *Service) CheckAvailability(ctx context.Context, serviceID int64, date string) (*Availability, error) {
	day, err := time.Parse(catalog.DateLayout, date)
	if err != nil {
		return nil, validationf("date must be YYYY-MM-DD")
	}
	svc, err := s.getService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	a := Evaluate(svc, day)
	return &a, nil
}

func (s *Service) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*Booking, error) {
	if req.ServiceID <= 0 {
		return nil, validationf("service_id is required")
	}
	if req.NumberOfPeople <= 0 {
		return nil, validationf("number_of_people must be positive")
	}
	if _, err := s.users.GetByID(ctx, actor.UserID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, err
	}
	svc, err := s.getService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	sched, err := newSchedule(req)
	if err != nil {
		return nil, err
	}
	_, isHotel := sched.(HotelStay)
	if isHotel != svc.IsHotel() {
		return nil, validationf("hotel booking details do not match the service category")
	}

	now := s.now().UTC()
	start, _ := sched.Window()
	settings := svc.BookingSettings
	if start.Before(now.Add(time.Duration(settings.MinAdvanceBooking) * time.Hour)) {
		return nil, validationf("booking must be made at least %d hours in advance", settings.MinAdvanceBooking)
	}
	if settings.MaxAdvanceBooking > 0 && start.After(now.AddDate(0, 0, settings.MaxAdvanceBooking)) {
		return nil, validationf("booking must be made at most %d days in advance", settings.MaxAdvanceBooking)
	}
	if req.NumberOfPeople > svc.Capacity {
		return nil, ErrInsufficientCapacity
	}

	days := sched.Days()
	for _, day := range days {
		a := Evaluate(svc, day)
		if svc.EntryFor(day) == nil || svc.StartsAfter(day) {
			return nil, fmt.Errorf("%s: %w", a.RequestedDate, ErrNotAvailable)
		}
		if a.RemainingSpots < req.NumberOfPeople {
			return nil, fmt.Errorf("%s has %d spots left: %w", a.RequestedDate, a.RemainingSpots, ErrInsufficientCapacity)
		}
	}

	pricing := CalculatePrice(svc, req.NumberOfPeople, sched, s.matchMode)

	requiresApproval := settings.RequiresApproval
	outcome, err := s.payments.ResolvePayment(ctx, svc, pricing, req.PaymentMethod, req.PaymentDetails, requiresApproval)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		UserID:         actor.UserID,
		ServiceID:      svc.ID,
		BusinessID:     svc.BusinessID,
		BookingDate:    days[0],
		NumberOfPeople: req.NumberOfPeople,
		Status:         StatusConfirmed,
		Pricing:        pricing,
		PaymentStatus:  outcome.Status,
		Transactions:   outcome.Transactions,
	}
	for _, t := range outcome.Transactions {
		b.AmountPaid += t.Amount
	}
	b.StartTime, b.EndTime = sched.Window()
	if stay, ok := sched.(HotelStay); ok {
		checkOut := catalog.Day(stay.CheckOut)
		b.IsHotel = true
		b.NumberOfNights = stay.Nights
		b.CheckOutDate = &checkOut
	}
	if requiresApproval {
		b.Status = StatusPending
	}
	b.ExpiresAt = paymentDeadline(svc, b, now)

	if err := s.bookings.Create(ctx, b, svc, days); err != nil {
		s.payments.Compensate(ctx, outcome.Transactions, "booking write failed")
		return nil, err
	}

	fields := logrus.Fields{
		"booking_id":     b.ID,
		"service_id":     b.ServiceID,
		"user_id":        b.UserID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
		"total":          b.Pricing.TotalAmount,
	}
	if b.ExpiresAt != nil {
		fields["expires_at"] = b.ExpiresAt.Format(time.RFC3339)
	}
	s.log.WithFields(fields).Info("booking created")
	return b, nil
}

// ApproveBooking confirms a pending booking on behalf of the business owner.
// It reports what remains to be paid but never charges.
func (s *Service) ApproveBooking(ctx context.Context, actor Actor, bookingID, serviceID int64) (*ApproveResult, error) {
	b, svc, err := s.loadForService(ctx, bookingID, serviceID)
	if err != nil {
		return nil, err
	}
	if !isBusinessOwner(svc, actor) {
		return nil, ErrForbidden
	}
	if b.Status != StatusPending {
		return nil, fmt.Errorf("booking is %s: %w", b.Status, ErrInvalidStatusTransition)
	}
	if svc.Capacity < b.NumberOfPeople {
		return nil, ErrInsufficientCapacity
	}
	b.Status = StatusConfirmed
	b.ExpiresAt = paymentDeadline(svc, b, s.now().UTC())
	if err := s.bookings.Confirm(ctx, b.ID, StatusPending, b.ExpiresAt); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "approved_by": actor.UserID}).Info("booking approved")
	return &ApproveResult{Booking: b, PaymentInfo: paymentInfo(b, svc)}, nil
}

// RejectBooking removes a pending booking and frees its capacity.
func (s *Service) RejectBooking(ctx context.Context, actor Actor, bookingID, serviceID int64) error {
	b, svc, err := s.loadForService(ctx, bookingID, serviceID)
	if err != nil {
		return err
	}
	if !isBusinessOwner(svc, actor) {
		return ErrForbidden
	}
	if b.Status != StatusPending {
		return fmt.Errorf("booking is %s: %w", b.Status, ErrInvalidStatusTransition)
	}
	if err := s.bookings.DeletePending(ctx, b, svc); err != nil {
		return err
	}
	if b.PaidAmount() > 0 {
		s.payments.Compensate(ctx, b.Transactions, "booking rejected")
	}

	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "rejected_by": actor.UserID}).Info("booking rejected")
	return nil
}

// CancelBooking cancels the caller's booking under the service's policy.
func (s *Service) CancelBooking(ctx context.Context, actor Actor, bookingID int64, reason string) (*CancelResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	if b.Status.IsTerminal() {
		return nil, fmt.Errorf("booking is %s: %w", b.Status, ErrInvalidStatusTransition)
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.CancellationPolicy.AllowCancellation {
		return nil, ErrCancellationNotAllowed
	}

	now := s.now().UTC()
	refund, fee := computeRefund(b, svc.CancellationPolicy, now)
	c := Cancellation{
		Cancelled:    true,
		Date:         &now,
		Reason:       reason,
		RefundAmount: refund,
		Fee:          fee,
	}
	if err := s.bookings.Cancel(ctx, b, svc, c); err != nil {
		return nil, err
	}
	b.Status = StatusCancelled
	b.Cancellation = c
	b.ExpiresAt = nil

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"refund":     refund,
		"fee":        fee,
	}).Info("booking cancelled")
	return &CancelResult{Booking: b, RefundAmount: refund, CancellationFee: fee}, nil
}

// computeRefund applies the cancellation policy. Nothing is refunded when
// nothing was paid. Inside the free window everything paid comes back; after
// it the fee, capped at what was paid, is kept and the rest refunded.
func computeRefund(b *Booking, policy catalog.CancellationPolicy, now time.Time) (refund, fee float64) {
	paid := b.PaidAmount()
	if paid <= 0 || (b.PaymentStatus != PaymentDepositPaid && b.PaymentStatus != PaymentFullyPaid) {
		return 0, 0
	}
	if b.StartTime.Sub(now) >= time.Duration(policy.FreeCancellationHours)*time.Hour {
		return paid, 0
	}

	fee = policy.CancellationFee
	if fee <= 0 {
		fee = b.Pricing.TotalAmount * defaultCancellationFeeRate
	}
	fee = payment.Round(math.Min(fee, paid))
	return payment.Round(paid - fee), fee
}

// paymentDeadline is when a confirmed booking still owing online payment gets
// swept. Bookings awaiting approval have no deadline; it starts when the owner
// confirms them.
func paymentDeadline(svc *catalog.Service, b *Booking, now time.Time) *time.Time {
	timeout := svc.BookingSettings.BookingTimeout
	if timeout <= 0 || !svc.PaymentSettings.AcceptOnlinePayment {
		return nil
	}
	if b.Status != StatusConfirmed || b.PaymentStatus != PaymentPending {
		return nil
	}
	deadline := now.Add(time.Duration(timeout) * time.Minute)
	return &deadline
}

// UpdateBookingStatus moves a booking along the state machine on behalf of
// the business owner or an admin. Cancellation has its own operation.
func (s *Service) UpdateBookingStatus(ctx context.Context, actor Actor, bookingID int64, status string) (*Booking, error) {
	to := Status(status)
	if !to.Valid() {
		return nil, validationf("invalid status %q", status)
	}
	if to == StatusCancelled {
		return nil, validationf("use the cancel operation to cancel a booking")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	if !isBusinessOwner(svc, actor) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !b.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%s -> %s: %w", b.Status, to, ErrInvalidStatusTransition)
	}
	if to == StatusConfirmed {
		if svc.Capacity < b.NumberOfPeople {
			return nil, ErrInsufficientCapacity
		}
		for _, day := range b.Schedule().Days() {
			if svc.EntryFor(day) == nil {
				return nil, fmt.Errorf("%s: %w", day.Format(catalog.DateLayout), ErrNotAvailable)
			}
		}
	}
	from := b.Status
	if to == StatusConfirmed {
		b.Status = to
		b.ExpiresAt = paymentDeadline(svc, b, s.now().UTC())
		err = s.bookings.Confirm(ctx, b.ID, from, b.ExpiresAt)
	} else {
		err = s.bookings.UpdateStatus(ctx, b.ID, from, to)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "from": from, "to": to, "by": actor.UserID}).Info("booking status updated")
	b.Status = to
	return b, nil
}

func (s *Service) MarkAsConfirmed(ctx context.Context, actor Actor, bookingID int64) (*Booking, error) {
	return s.UpdateBookingStatus(ctx, actor, bookingID, string(StatusConfirmed))
}

func (s *Service) MarkAsCompleted(ctx context.Context, actor Actor, bookingID int64) (*Booking, error) {
	return s.UpdateBookingStatus(ctx, actor, bookingID, string(StatusCompleted))
}

func (s *Service) MarkAsNoShow(ctx context.Context, actor Actor, bookingID int64) (*Booking, error) {
	return s.UpdateBookingStatus(ctx, actor, bookingID, string(StatusNoShow))
}

// UpdatePayment pays down the remaining balance, in full when no amount is given.
func (s *Service) UpdatePayment(ctx context.Context, actor Actor, bookingID int64, req UpdatePaymentRequest) (*PaymentResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	if b.Status == StatusCancelled || b.Status == StatusNoShow {
		return nil, fmt.Errorf("booking is %s: %w", b.Status, ErrConflict)
	}
	switch b.PaymentStatus {
	case PaymentFullyPaid:
		return nil, ErrAlreadyFullyPaid
	case PaymentRefunded:
		return nil, fmt.Errorf("booking was refunded: %w", ErrConflict)
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.PaymentSettings.AcceptOnlinePayment {
		return nil, ErrOnlinePaymentDisabled
	}
	if !req.PaymentMethod.Valid() || len(req.PaymentDetails) == 0 {
		return nil, validationf("a supported payment method and payment details are required")
	}

	paid := b.PaidAmount()
	remaining := b.RemainingBalance()
	amount := remaining
	if req.Amount != nil {
		amount = payment.Round(*req.Amount)
	}
	if amount <= 0 {
		return nil, validationf("amount must be positive")
	}
	if amount > remaining {
		return nil, fmt.Errorf("%.2f > %.2f: %w", amount, remaining, ErrAmountExceedsBalance)
	}

	kind := TxnPartialPayment
	switch {
	case paid == 0 && amount == b.Pricing.TotalAmount:
		kind = TxnFullPayment
	case paid > 0 && amount == remaining:
		kind = TxnBalancePayment
	}

	txn, err := s.payments.Charge(ctx, req.PaymentMethod, req.PaymentDetails, amount, kind)
	if err != nil {
		return nil, err
	}

	// the balance read above may be stale; AddPayment re-checks it atomically
	paidNow, newStatus, err := s.bookings.AddPayment(ctx, b, &txn)
	if err != nil {
		s.payments.Compensate(ctx, []Transaction{txn}, "payment write failed")
		return nil, err
	}

	left := payment.Round(math.Max(0, b.Pricing.TotalAmount-paidNow))
	s.log.WithFields(logrus.Fields{
		"booking_id":     b.ID,
		"amount":         amount,
		"type":           kind,
		"payment_status": newStatus,
		"remaining":      left,
	}).Info("booking payment recorded")
	return &PaymentResult{AmountPaid: amount, RemainingBalance: left, PaymentStatus: newStatus, Transaction: txn}, nil
}

// ProcessRefund pays out the refund computed at cancellation through the
// refund gateway, against the most recent completed payment.
func (s *Service) ProcessRefund(ctx context.Context, actor Actor, bookingID int64) (*RefundResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	if !isBusinessOwner(svc, actor) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if b.Status != StatusCancelled {
		return nil, fmt.Errorf("booking is %s: %w", b.Status, ErrInvalidStatusTransition)
	}
	if b.Cancellation.RefundProcessed {
		return nil, ErrRefundAlreadyProcessed
	}
	amount := b.Cancellation.RefundAmount
	if amount <= 0 {
		return nil, ErrRefundNotDue
	}
	last := b.LastPayment()
	if last == nil {
		return nil, ErrNoCompletedPayment
	}

	if err := s.bookings.ClaimRefund(ctx, b.ID); err != nil {
		return nil, err
	}
	refundID, err := s.payments.Refund(ctx, last, amount)
	if err != nil {
		if relErr := s.bookings.ReleaseRefund(context.WithoutCancel(ctx), b.ID); relErr != nil {
			s.log.WithError(relErr).WithField("booking_id", b.ID).Error("failed to release refund claim")
		}
		return nil, err
	}

	now := s.now().UTC()
	txn := &Transaction{
		Type:          TxnRefund,
		Amount:        -amount,
		Status:        TxnCompleted,
		PaymentMethod: last.PaymentMethod,
		TransactionID: refundID,
		CreatedAt:     now,
	}
	if err := s.bookings.RecordRefund(context.WithoutCancel(ctx), b, txn, actor.UserID, refundID, now); err != nil {
		// the money has left; the claim stays so nobody pays it out again
		s.log.WithError(err).WithFields(logrus.Fields{"booking_id": b.ID, "refund_id": refundID}).Error("refund paid but not recorded")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"refund_id":  refundID,
		"amount":     amount,
		"by":         actor.UserID,
	}).Info("refund processed")
	return &RefundResult{RefundAmount: amount, RefundID: refundID}, nil
}

// DeleteBooking hard-deletes the caller's booking regardless of its status.
func (s *Service) DeleteBooking(ctx context.Context, actor Actor, bookingID, serviceID int64) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != actor.UserID {
		return ErrForbidden
	}
	if serviceID != b.ServiceID {
		return validationf("booking does not belong to service %d", serviceID)
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, b, svc, b.Status != StatusCancelled); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "status": b.Status}).Info("booking deleted")
	return nil
}

// GetBooking is visible to the customer, the business owner and admins.
func (s *Service) GetBooking(ctx context.Context, actor Actor, bookingID int64) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID == actor.UserID || actor.IsAdmin() {
		return b, nil
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	if !isBusinessOwner(svc, actor) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) GetBookingStatus(ctx context.Context, actor Actor, bookingID int64) (*StatusView, error) {
	b, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		ID:            b.ID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Cancelled:     b.Cancellation.Cancelled,
		ExpiresAt:     b.ExpiresAt,
	}, nil
}

func (s *Service) ListMyBookings(ctx context.Context, actor Actor, page int) (*Page, error) {
	page = normalizePage(page)
	rows, total, err := s.bookings.ListByUser(ctx, actor.UserID, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	return newPage(rows, page, total), nil
}

func (s *Service) ListServiceBookings(ctx context.Context, actor Actor, serviceID int64, page int) (*Page, error) {
	svc, err := s.getService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !isBusinessOwner(svc, actor) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	page = normalizePage(page)
	rows, total, err := s.bookings.ListByService(ctx, serviceID, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	return newPage(rows, page, total), nil
}

// ExpireUnpaid cancels up to limit bookings whose payment timeout elapsed and
// returns how many were cancelled. Bookings paid in the meantime are skipped.
func (s *Service) ExpireUnpaid(ctx context.Context, limit int) (int, error) {
	now := s.now().UTC()
	expired, err := s.bookings.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	services := make(map[int64]*catalog.Service)
	n := 0
	for i := range expired {
		b := &expired[i]
		log := s.log.WithField("booking_id", b.ID)

		svc, ok := services[b.ServiceID]
		if !ok {
			svc, err = s.getService(ctx, b.ServiceID)
			if err != nil {
				log.WithError(err).Error("failed to load service for expired booking")
				continue
			}
			services[b.ServiceID] = svc
		}

		cancelled, err := s.bookings.CancelExpired(ctx, b, svc, now, TimeoutReason)
		if err != nil {
			log.WithError(err).Error("failed to cancel expired booking")
			continue
		}
		if cancelled {
			n++
			log.Info("unpaid booking cancelled after timeout")
		}
	}
	return n, nil
}

func (s *Service) getService(ctx context.Context, id int64) (*catalog.Service, error) {
	svc, err := s.services.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("service: %w", ErrNotFound)
		}
		return nil, err
	}
	return svc, nil
}

func (s *Service) loadForService(ctx context.Context, bookingID, serviceID int64) (*Booking, *catalog.Service, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if serviceID != 0 && serviceID != b.ServiceID {
		return nil, nil, validationf("booking does not belong to service %d", serviceID)
	}
	svc, err := s.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, nil, err
	}
	return b, svc, nil
}

func isBusinessOwner(svc *catalog.Service, actor Actor) bool {
	return svc.Business != nil && svc.Business.OwnerID == actor.UserID
}

func paymentInfo(b *Booking, svc *catalog.Service) PaymentInfo {
	remaining := b.RemainingBalance()
	return PaymentInfo{
		TotalAmount:         b.Pricing.TotalAmount,
		PaidAmount:          b.PaidAmount(),
		RemainingBalance:    remaining,
		AcceptOnlinePayment: svc.PaymentSettings.AcceptOnlinePayment,
		PaymentRequired:     remaining > 0,
	}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func newPage(rows []Booking, page int, total int64) *Page {
	if rows == nil {
		rows = []Booking{}
	}
	return &Page{
		Bookings:   rows,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: int((total + PageSize - 1) / PageSize),
	}
}
