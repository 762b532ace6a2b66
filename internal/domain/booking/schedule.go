package booking

import (
	"math"
	"time"

	"odysseum/internal/domain/catalog"
)

// Schedule is what a booking occupies: either a RegularSlot on one day or a
// HotelStay spanning nights. Capacity is counted once per affected day.
type Schedule interface {
	Window() (start, end time.Time)
	Days() []time.Time
	isSchedule()
}

type RegularSlot struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

func (s RegularSlot) Window() (time.Time, time.Time) { return s.Start, s.End }

func (s RegularSlot) Days() []time.Time { return []time.Time{catalog.Day(s.Date)} }

func (RegularSlot) isSchedule() {}

// Hours is the slot length rounded up to whole hours.
func (s RegularSlot) Hours() int {
	return int(math.Ceil(s.End.Sub(s.Start).Hours()))
}

// DaysSpanned is the slot length rounded up to whole days.
func (s RegularSlot) DaysSpanned() int {
	return int(math.Ceil(s.End.Sub(s.Start).Hours() / 24))
}

type HotelStay struct {
	// Date is the check-in calendar day as the client sent it.
	Date     time.Time
	CheckIn  time.Time
	CheckOut time.Time
	Nights   int
}

func (s HotelStay) Window() (time.Time, time.Time) { return s.CheckIn, s.CheckOut }

// Days lists every night of the stay, starting with the check-in date.
func (s HotelStay) Days() []time.Time {
	first := catalog.Day(s.Date)
	days := make([]time.Time, 0, s.Nights)
	for i := 0; i < s.Nights; i++ {
		days = append(days, first.AddDate(0, 0, i))
	}
	return days
}

func (HotelStay) isSchedule() {}

// newSchedule validates the request's time fields and builds the schedule.
func newSchedule(req CreateBookingRequest) (Schedule, error) {
	date, err := time.Parse(catalog.DateLayout, req.BookingDate)
	if err != nil {
		return nil, validationf("booking_date must be YYYY-MM-DD")
	}
	// calendar checks use the offset the client sent; storage is UTC
	start, end := req.TimeSlot.StartTime, req.TimeSlot.EndTime
	if start.IsZero() || end.IsZero() {
		return nil, validationf("time_slot start_time and end_time are required")
	}
	if !end.After(start) {
		return nil, validationf("end time must be after start time")
	}
	if !catalog.Day(start).Equal(date) {
		return nil, validationf("time slot must start on the booking date")
	}

	if req.HotelBooking == nil || !req.HotelBooking.IsHotel {
		return RegularSlot{Date: date, Start: start.UTC(), End: end.UTC()}, nil
	}

	h := req.HotelBooking
	if h.NumberOfNights <= 0 {
		return nil, validationf("number_of_nights must be positive for hotel bookings")
	}
	checkOut, err := time.Parse(catalog.DateLayout, h.CheckOutDate)
	if err != nil {
		return nil, validationf("check_out_date must be YYYY-MM-DD")
	}
	if !checkOut.Equal(date.AddDate(0, 0, h.NumberOfNights)) {
		return nil, validationf("check_out_date does not match number_of_nights")
	}
	if !catalog.Day(end).Equal(checkOut) {
		return nil, validationf("time slot must end on the check-out date")
	}
	return HotelStay{Date: date, CheckIn: start.UTC(), CheckOut: end.UTC(), Nights: h.NumberOfNights}, nil
}
