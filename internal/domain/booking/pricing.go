package booking

import (
	"strings"
	"time"

	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
)

// MatchMode decides how the declared conditions of a special price combine.
type MatchMode string

const (
	// MatchAny applies a rule when any declared condition holds.
	MatchAny MatchMode = "any"
	// MatchAll applies a rule only when every declared condition holds.
	MatchAll MatchMode = "all"
)

func (m MatchMode) Valid() bool { return m == MatchAny || m == MatchAll }

// CalculatePrice derives the price snapshot for a booking. It has no side
// effects and returns the same breakdown for the same inputs.
func CalculatePrice(svc *catalog.Service, people int, sched Schedule, mode MatchMode) PricingBreakdown {
	var out PricingBreakdown

	unit := svc.Pricing.BasePrice
	date := sched.Days()[0]
	if sp := matchSpecialPrice(svc.SpecialPrices, people, date, mode); sp != nil {
		out.SpecialPrice = AppliedSpecialPrice{Applied: true, Name: sp.Name, Price: sp.Price}
		unit = sp.Price
	}

	subtotal := unit * float64(multiplier(svc.Pricing.Model, people, sched))
	subtotal = payment.Round(subtotal)

	out.BasePrice = subtotal
	out.TaxAmount = payment.Round(subtotal * svc.PaymentSettings.TaxRate / 100)
	if svc.PaymentSettings.DepositEnabled {
		out.DepositAmount = payment.Round(subtotal * svc.PaymentSettings.DepositPercentage / 100)
	}
	out.TotalAmount = payment.Round(out.BasePrice + out.TaxAmount)
	return out
}

func multiplier(model catalog.PricingModel, people int, sched Schedule) int {
	switch s := sched.(type) {
	case HotelStay:
		switch model {
		case catalog.PricingPerPerson:
			return people
		case catalog.PricingPerHour:
			return s.Nights * 24
		default:
			return s.Nights
		}
	case RegularSlot:
		switch model {
		case catalog.PricingPerPerson:
			return people
		case catalog.PricingPerHour:
			return s.Hours()
		case catalog.PricingPerDay:
			return s.DaysSpanned()
		}
	}
	return 1
}

// matchSpecialPrice returns the first rule that applies. A rule without any
// declared condition always applies.
func matchSpecialPrice(rules []catalog.SpecialPrice, people int, date time.Time, mode MatchMode) *catalog.SpecialPrice {
	weekday := date.Weekday().String()
	day := date.Format(catalog.DateLayout)

	for i := range rules {
		r := &rules[i]
		var checks []bool
		if len(r.DaysOfWeek) > 0 {
			checks = append(checks, containsFold(r.DaysOfWeek, weekday))
		}
		if len(r.SpecificDates) > 0 {
			checks = append(checks, containsFold(r.SpecificDates, day))
		}
		if r.MinPeople > 0 {
			checks = append(checks, people >= r.MinPeople)
		}
		if len(checks) == 0 || combine(checks, mode) {
			return r
		}
	}
	return nil
}

func combine(checks []bool, mode MatchMode) bool {
	if mode == MatchAll {
		for _, ok := range checks {
			if !ok {
				return false
			}
		}
		return true
	}
	for _, ok := range checks {
		if ok {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
