package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"odysseum/internal/domain/catalog"
)

func pricedService(model catalog.PricingModel, base, tax float64) *catalog.Service {
	return &catalog.Service{
		Pricing:         catalog.Pricing{BasePrice: base, Model: model},
		PaymentSettings: catalog.PaymentSettings{TaxRate: tax},
	}
}

// 2030-01-05 is a Saturday.
func slot(hours float64) RegularSlot {
	start := time.Date(2030, 1, 5, 10, 0, 0, 0, time.UTC)
	return RegularSlot{
		Date:  catalog.Day(start),
		Start: start,
		End:   start.Add(time.Duration(hours * float64(time.Hour))),
	}
}

func stay(nights int) HotelStay {
	in := time.Date(2030, 1, 5, 14, 0, 0, 0, time.UTC)
	return HotelStay{Date: catalog.Day(in), CheckIn: in, CheckOut: in.AddDate(0, 0, nights).Add(-3 * time.Hour), Nights: nights}
}

func TestCalculatePrice_Models(t *testing.T) {
	tests := []struct {
		name     string
		model    catalog.PricingModel
		people   int
		sched    Schedule
		subtotal float64
	}{
		{"per person", catalog.PricingPerPerson, 3, slot(2), 60},
		{"per hour rounds up", catalog.PricingPerHour, 1, slot(2.5), 60},
		{"per day rounds up", catalog.PricingPerDay, 1, slot(30), 40},
		{"fixed ignores people and length", catalog.PricingFixed, 4, slot(5), 20},
		{"hotel per hour counts 24h nights", catalog.PricingPerHour, 1, stay(2), 960},
		{"hotel per day counts nights", catalog.PricingPerDay, 2, stay(3), 60},
		{"hotel fixed multiplies nights", catalog.PricingFixed, 2, stay(2), 40},
		{"hotel per person", catalog.PricingPerPerson, 2, stay(2), 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CalculatePrice(pricedService(tt.model, 20, 0), tt.people, tt.sched, MatchAny)
			assert.Equal(t, tt.subtotal, p.BasePrice)
			assert.Equal(t, tt.subtotal, p.TotalAmount)
			assert.False(t, p.SpecialPrice.Applied)
		})
	}
}

func TestCalculatePrice_TaxAndDeposit(t *testing.T) {
	svc := pricedService(catalog.PricingPerPerson, 40, 7.5)
	svc.PaymentSettings.DepositEnabled = true
	svc.PaymentSettings.DepositPercentage = 25

	p := CalculatePrice(svc, 3, slot(1), MatchAny)
	assert.Equal(t, 120.0, p.BasePrice)
	assert.Equal(t, 9.0, p.TaxAmount)
	assert.Equal(t, 30.0, p.DepositAmount)
	assert.Equal(t, 129.0, p.TotalAmount)
	assert.InDelta(t, p.BasePrice+p.TaxAmount, p.TotalAmount, 1e-9)
}

func TestCalculatePrice_IsDeterministic(t *testing.T) {
	svc := pricedService(catalog.PricingPerHour, 12.5, 13)
	svc.SpecialPrices = []catalog.SpecialPrice{{Name: "Weekend", Price: 15, DaysOfWeek: datatypes.JSONSlice[string]{"Saturday"}}}

	first := CalculatePrice(svc, 2, slot(3.2), MatchAny)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, CalculatePrice(svc, 2, slot(3.2), MatchAny))
	}
}

func TestCalculatePrice_SpecialPrices(t *testing.T) {
	weekendOrGroup := catalog.SpecialPrice{
		Name:       "Weekend group",
		Price:      10,
		DaysOfWeek: datatypes.JSONSlice[string]{"Saturday", "Sunday"},
		MinPeople:  5,
	}
	weekdayOrGroup := catalog.SpecialPrice{
		Name:       "Midweek group",
		Price:      12,
		DaysOfWeek: datatypes.JSONSlice[string]{"Wednesday"},
		MinPeople:  4,
	}
	newYear := catalog.SpecialPrice{
		Name:          "Holiday",
		Price:         30,
		SpecificDates: datatypes.JSONSlice[string]{"2030-01-05"},
	}

	tests := []struct {
		name    string
		rules   []catalog.SpecialPrice
		people  int
		mode    MatchMode
		applied string
	}{
		{"any: weekday condition alone", []catalog.SpecialPrice{weekendOrGroup}, 1, MatchAny, "Weekend group"},
		{"all: weekday without group size", []catalog.SpecialPrice{weekendOrGroup}, 1, MatchAll, ""},
		{"all: weekday and group size", []catalog.SpecialPrice{weekendOrGroup}, 5, MatchAll, "Weekend group"},
		{"any: group size alone on wrong weekday", []catalog.SpecialPrice{weekdayOrGroup}, 4, MatchAny, "Midweek group"},
		{"any: no condition holds", []catalog.SpecialPrice{weekdayOrGroup}, 2, MatchAny, ""},
		{"first match wins", []catalog.SpecialPrice{newYear, weekendOrGroup}, 1, MatchAny, "Holiday"},
		{"unconditional rule", []catalog.SpecialPrice{{Name: "Flat", Price: 5}}, 1, MatchAll, "Flat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := pricedService(catalog.PricingPerPerson, 20, 0)
			svc.SpecialPrices = tt.rules
			p := CalculatePrice(svc, tt.people, slot(1), tt.mode)
			if tt.applied == "" {
				assert.False(t, p.SpecialPrice.Applied)
				assert.Equal(t, 20.0*float64(tt.people), p.BasePrice)
				return
			}
			assert.True(t, p.SpecialPrice.Applied)
			assert.Equal(t, tt.applied, p.SpecialPrice.Name)
			assert.Equal(t, p.SpecialPrice.Price*float64(tt.people), p.BasePrice)
		})
	}
}

func TestHotelStayDays(t *testing.T) {
	days := stay(3).Days()
	assert.Equal(t, []time.Time{
		time.Date(2030, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC),
	}, days)
}

func TestNewSchedule(t *testing.T) {
	req := bookingRequest(1, 1)
	sched, err := newSchedule(req)
	assert.NoError(t, err)
	assert.IsType(t, RegularSlot{}, sched)

	req.HotelBooking = &HotelBooking{IsHotel: true, NumberOfNights: 2, CheckOutDate: "2030-01-08"}
	req.TimeSlot.EndTime = time.Date(2030, 1, 8, 11, 0, 0, 0, time.UTC)
	_, err = newSchedule(req)
	assert.ErrorIs(t, err, ErrValidation)

	req.HotelBooking.CheckOutDate = "2030-01-07"
	_, err = newSchedule(req)
	assert.ErrorIs(t, err, ErrValidation)

	req.TimeSlot.EndTime = time.Date(2030, 1, 7, 11, 0, 0, 0, time.UTC)
	sched, err = newSchedule(req)
	assert.NoError(t, err)
	assert.Equal(t, 2, sched.(HotelStay).Nights)

	req = bookingRequest(1, 1)
	req.BookingDate = "2030-01-06"
	_, err = newSchedule(req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewSchedule_ComparesDatesInSlotOffset(t *testing.T) {
	almaty := time.FixedZone("+05", 5*60*60)
	req := bookingRequest(1, 1)
	req.BookingDate = "2030-01-20"
	req.TimeSlot = TimeSlot{
		StartTime: time.Date(2030, 1, 20, 1, 0, 0, 0, almaty),
		EndTime:   time.Date(2030, 1, 20, 3, 0, 0, 0, almaty),
	}
	sched, err := newSchedule(req)
	require.NoError(t, err)
	slot := sched.(RegularSlot)
	assert.Equal(t, time.Date(2030, 1, 20, 0, 0, 0, 0, time.UTC), slot.Date)
	assert.Equal(t, time.Date(2030, 1, 19, 20, 0, 0, 0, time.UTC), slot.Start)
	assert.Equal(t, time.UTC, slot.Start.Location())

	req.HotelBooking = &HotelBooking{IsHotel: true, NumberOfNights: 2, CheckOutDate: "2030-01-22"}
	req.TimeSlot.EndTime = time.Date(2030, 1, 22, 2, 0, 0, 0, almaty)
	sched, err = newSchedule(req)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2030, 1, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 21, 0, 0, 0, 0, time.UTC),
	}, sched.Days())

	req.HotelBooking = nil
	req.BookingDate = "2030-01-19"
	req.TimeSlot.EndTime = time.Date(2030, 1, 20, 3, 0, 0, 0, almaty)
	_, err = newSchedule(req)
	assert.ErrorIs(t, err, ErrValidation, "the UTC date no longer counts")
}
