package catalog

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ReserveCapacity adds people to the bookings counter of every day's entry.
// Each increment is a single conditional UPDATE that only succeeds while the
// counter stays within capacity, so concurrent reservations cannot overbook.
// Callers run it inside the transaction that persists the booking.
func ReserveCapacity(tx *gorm.DB, svc *Service, days []time.Time, people int) error {
	for _, day := range days {
		dow, date := EntryKey(svc.Recurring, day)
		res := tx.Model(&AvailabilityEntry{}).
			Where("service_id = ? AND day_of_week = ? AND date = ?", svc.ID, dow, date).
			Where("bookings_made + ? <= CASE WHEN capacity > 0 THEN capacity ELSE ? END", people, svc.Capacity).
			UpdateColumn("bookings_made", gorm.Expr("bookings_made + ?", people))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrCapacityExhausted, day.Format(DateLayout))
		}
	}
	return nil
}

// ReleaseCapacity mirrors ReserveCapacity. Counters never drop below zero and
// missing entries are skipped.
func ReleaseCapacity(tx *gorm.DB, svc *Service, days []time.Time, people int) error {
	for _, day := range days {
		dow, date := EntryKey(svc.Recurring, day)
		res := tx.Model(&AvailabilityEntry{}).
			Where("service_id = ? AND day_of_week = ? AND date = ?", svc.ID, dow, date).
			UpdateColumn("bookings_made", gorm.Expr("CASE WHEN bookings_made >= ? THEN bookings_made - ? ELSE 0 END", people, people))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}
