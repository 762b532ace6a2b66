package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"odysseum/internal/database"
	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
)

// amountTolerance absorbs float noise when money columns are compared in SQL.
const amountTolerance = 0.005

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores the booking with its transactions and reserves capacity on
// every affected day in one database transaction.
func (r *Repository) Create(ctx context.Context, b *Booking, svc *catalog.Service, days []time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := catalog.ReserveCapacity(tx, svc, days, b.NumberOfPeople); err != nil {
			return mapCapacityErr(err)
		}
		return tx.Create(b).Error
	})
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&b, id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("user_id = ?", userID), limit, offset)
}

func (r *Repository) ListByService(ctx context.Context, serviceID int64, limit, offset int) ([]Booking, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("service_id = ?", serviceID), limit, offset)
}

func (r *Repository) list(ctx context.Context, q *gorm.DB, limit, offset int) ([]Booking, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Model(&Booking{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Booking
	err := q.Session(&gorm.Session{}).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateStatus moves the booking from one status to another. The update is
// conditional on the current status so concurrent transitions cannot both win.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	res := r.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidStatusTransition
	}
	return nil
}

// Confirm moves the booking to confirmed and sets its payment deadline.
func (r *Repository) Confirm(ctx context.Context, id int64, from Status, expiresAt *time.Time) error {
	res := r.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": StatusConfirmed, "expires_at": expiresAt, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidStatusTransition
	}
	return nil
}

// Cancel marks the booking cancelled and releases its capacity atomically.
func (r *Repository) Cancel(ctx context.Context, b *Booking, svc *catalog.Service, c Cancellation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Booking{}).
			Where("id = ? AND status IN ?", b.ID, []Status{StatusPending, StatusConfirmed}).
			Updates(map[string]any{
				"status":                     StatusCancelled,
				"expires_at":                 nil,
				"cancellation_cancelled":     true,
				"cancellation_date":          c.Date,
				"cancellation_reason":        c.Reason,
				"cancellation_refund_amount": c.RefundAmount,
				"cancellation_fee":           c.Fee,
				"updated_at":                 time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStatusTransition
		}
		return catalog.ReleaseCapacity(tx, svc, b.Schedule().Days(), b.NumberOfPeople)
	})
}

// CancelExpired cancels an unpaid booking whose timeout elapsed. It reports
// false when the booking was paid, cancelled or otherwise changed meanwhile.
func (r *Repository) CancelExpired(ctx context.Context, b *Booking, svc *catalog.Service, now time.Time, reason string) (bool, error) {
	cancelled := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Booking{}).
			Where("id = ? AND status IN ? AND payment_status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
				b.ID, []Status{StatusPending, StatusConfirmed}, PaymentPending, now).
			Updates(map[string]any{
				"status":                 StatusCancelled,
				"expires_at":             nil,
				"cancellation_cancelled": true,
				"cancellation_date":      now,
				"cancellation_reason":    reason,
				"updated_at":             now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cancelled = true
		return catalog.ReleaseCapacity(tx, svc, b.Schedule().Days(), b.NumberOfPeople)
	})
	return cancelled, err
}

// ListExpired returns unpaid bookings whose timeout elapsed, oldest first.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var out []Booking
	err := r.db.WithContext(ctx).
		Where("status IN ? AND payment_status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			[]Status{StatusPending, StatusConfirmed}, PaymentPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Delete hard-deletes the booking and its transactions, releasing capacity
// when release is set.
func (r *Repository) Delete(ctx context.Context, b *Booking, svc *catalog.Service, release bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", b.ID).Delete(&Transaction{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Booking{}, b.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if !release {
			return nil
		}
		return catalog.ReleaseCapacity(tx, svc, b.Schedule().Days(), b.NumberOfPeople)
	})
}

// DeletePending hard-deletes a booking that is still pending.
func (r *Repository) DeletePending(ctx context.Context, b *Booking, svc *catalog.Service) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", b.ID).Delete(&Transaction{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", b.ID, StatusPending).Delete(&Booking{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStatusTransition
		}
		return catalog.ReleaseCapacity(tx, svc, b.Schedule().Days(), b.NumberOfPeople)
	})
}

// AddPayment appends a completed charge. The paid counter grows only while it
// stays within the booking total and the payment status is derived from it in
// the same statement, so concurrent payments cannot overpay. It returns the
// stored paid amount and payment status.
func (r *Repository) AddPayment(ctx context.Context, b *Booking, txn *Transaction) (float64, PaymentStatus, error) {
	var cur Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Booking{}).
			Where("id = ? AND status NOT IN ? AND payment_status IN ?",
				b.ID, []Status{StatusCancelled, StatusNoShow}, []PaymentStatus{PaymentPending, PaymentFailed, PaymentDepositPaid}).
			Where("amount_paid + ? <= pricing_total_amount + ?", txn.Amount, amountTolerance).
			Updates(map[string]any{
				"payment_status": gorm.Expr("CASE WHEN amount_paid + ? >= pricing_total_amount - ? THEN ? ELSE ? END",
					txn.Amount, amountTolerance, PaymentFullyPaid, PaymentDepositPaid),
				"amount_paid": gorm.Expr("amount_paid + ?", txn.Amount),
				"expires_at":  nil,
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Select("id", "status", "payment_status", "amount_paid").First(&cur, b.ID).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return paymentRejection(&cur)
		}
		txn.BookingID = b.ID
		return tx.Create(txn).Error
	})
	if err != nil {
		return 0, "", err
	}
	return payment.Round(cur.AmountPaid), cur.PaymentStatus, nil
}

// paymentRejection explains why a guarded payment update matched no row.
func paymentRejection(cur *Booking) error {
	switch {
	case cur.Status == StatusCancelled || cur.Status == StatusNoShow:
		return fmt.Errorf("booking is %s: %w", cur.Status, ErrConflict)
	case cur.PaymentStatus == PaymentFullyPaid:
		return ErrAlreadyFullyPaid
	case cur.PaymentStatus == PaymentRefunded:
		return fmt.Errorf("booking was refunded: %w", ErrConflict)
	}
	return ErrAmountExceedsBalance
}

// ClaimRefund marks the refund of a cancelled booking as in progress. Exactly
// one caller wins the claim; the rest learn whether it is done or running.
func (r *Repository) ClaimRefund(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Booking{}).
			Where("id = ? AND status = ? AND cancellation_refund_processed = ? AND cancellation_refund_pending = ?",
				id, StatusCancelled, false, false).
			Updates(map[string]any{"cancellation_refund_pending": true, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var cur Booking
		if err := tx.Select("id", "status", "cancellation_refund_processed").First(&cur, id).Error; err != nil {
			return err
		}
		switch {
		case cur.Status != StatusCancelled:
			return fmt.Errorf("booking is %s: %w", cur.Status, ErrInvalidStatusTransition)
		case cur.Cancellation.RefundProcessed:
			return ErrRefundAlreadyProcessed
		}
		return ErrRefundInProgress
	})
}

// ReleaseRefund drops an in-progress claim after the gateway refused the refund.
func (r *Repository) ReleaseRefund(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND cancellation_refund_pending = ? AND cancellation_refund_processed = ?", id, true, false).
		Updates(map[string]any{"cancellation_refund_pending": false, "updated_at": time.Now().UTC()}).Error
}

// RecordRefund appends the negative refund transaction and stamps the audit
// fields. It completes a claim taken with ClaimRefund.
func (r *Repository) RecordRefund(ctx context.Context, b *Booking, txn *Transaction, refundedBy int64, refundID string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Booking{}).
			Where("id = ? AND status = ? AND cancellation_refund_processed = ? AND cancellation_refund_pending = ?",
				b.ID, StatusCancelled, false, true).
			Updates(map[string]any{
				"payment_status":                PaymentRefunded,
				"cancellation_refund_pending":   false,
				"cancellation_refund_processed": true,
				"cancellation_refund_date":      at,
				"cancellation_refunded_by":      refundedBy,
				"cancellation_refund_id":        refundID,
				"updated_at":                    at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefundAlreadyProcessed
		}
		txn.BookingID = b.ID
		return tx.Create(txn).Error
	})
}

func mapCapacityErr(err error) error {
	if errors.Is(err, catalog.ErrCapacityExhausted) {
		return ErrInsufficientCapacity
	}
	return err
}
