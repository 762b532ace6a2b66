package booking

import (
	"fmt"
	"sort"
	"time"

	"odysseum/internal/domain/catalog"
)

const upcomingDatesCount = 5

type UpcomingDate struct {
	Date           string `json:"date"`
	RemainingSpots int    `json:"remaining_spots"`
}

type Availability struct {
	ServiceID          int64          `json:"service_id"`
	ServiceName        string         `json:"service_name"`
	RequestedDate      string         `json:"requested_date"`
	IsAvailable        bool           `json:"is_available"`
	RemainingSpots     int            `json:"remaining_spots"`
	Status             string         `json:"availability_status"`
	NextAvailableDate  string         `json:"next_available_date,omitempty"`
	UpcomingDates      []UpcomingDate `json:"upcoming_dates"`
	IsRecurring        bool           `json:"is_recurring"`
	RecurringStartDate string         `json:"recurring_start_date,omitempty"`
}

// Evaluate reports remaining capacity for day. A day without an availability
// entry is closed. The result depends only on svc and day.
func Evaluate(svc *catalog.Service, day time.Time) Availability {
	day = catalog.Day(day)
	out := Availability{
		ServiceID:     svc.ID,
		ServiceName:   svc.Name,
		RequestedDate: day.Format(catalog.DateLayout),
		IsRecurring:   svc.Recurring,
		UpcomingDates: []UpcomingDate{},
	}
	if svc.RecurringStartDate != nil {
		out.RecurringStartDate = *svc.RecurringStartDate
	}

	if svc.StartsAfter(day) {
		out.Status = "Service starts on " + out.RecurringStartDate
		return out
	}

	matched := false
	if e := svc.EntryFor(day); e != nil {
		matched = true
		out.RemainingSpots = remaining(svc, e)
		out.IsAvailable = out.RemainingSpots > 0
	}

	if svc.Recurring {
		out.UpcomingDates = upcomingRecurring(svc, day)
	} else {
		out.UpcomingDates = upcomingDated(svc, day)
	}
	if !out.IsAvailable {
		for _, u := range out.UpcomingDates {
			if u.Date != out.RequestedDate && u.RemainingSpots > 0 {
				out.NextAvailableDate = u.Date
				break
			}
		}
	}

	out.Status = statusText(matched, out.RemainingSpots, out.NextAvailableDate)
	return out
}

func remaining(svc *catalog.Service, e *catalog.AvailabilityEntry) int {
	n := svc.CapacityFor(e) - e.BookingsMade
	if n < 0 {
		return 0
	}
	return n
}

func upcomingDated(svc *catalog.Service, from time.Time) []UpcomingDate {
	type dated struct {
		day   time.Time
		entry *catalog.AvailabilityEntry
	}
	var future []dated
	for i := range svc.Availability {
		e := &svc.Availability[i]
		d, err := time.Parse(catalog.DateLayout, e.Date)
		if err != nil || d.Before(from) {
			continue
		}
		future = append(future, dated{day: d, entry: e})
	}
	sort.Slice(future, func(i, j int) bool { return future[i].day.Before(future[j].day) })

	out := make([]UpcomingDate, 0, upcomingDatesCount)
	for _, f := range future {
		if len(out) == upcomingDatesCount {
			break
		}
		out = append(out, UpcomingDate{Date: f.entry.Date, RemainingSpots: remaining(svc, f.entry)})
	}
	return out
}

func upcomingRecurring(svc *catalog.Service, from time.Time) []UpcomingDate {
	out := make([]UpcomingDate, 0, upcomingDatesCount)
	if len(svc.Availability) == 0 {
		return out
	}
	// a week covers every configured weekday, so five matches need at most five weeks
	for i := 0; i < 7*upcomingDatesCount && len(out) < upcomingDatesCount; i++ {
		d := from.AddDate(0, 0, i)
		if e := svc.EntryFor(d); e != nil {
			out = append(out, UpcomingDate{Date: d.Format(catalog.DateLayout), RemainingSpots: remaining(svc, e)})
		}
	}
	return out
}

func statusText(matched bool, spots int, next string) string {
	switch {
	case matched && spots <= 0:
		return "Fully Booked"
	case matched && spots <= 3:
		return fmt.Sprintf("Limited Availability - %d spots left", spots)
	case matched:
		return fmt.Sprintf("Available - %d spots left", spots)
	case next != "":
		return "Next Available on " + next
	}
	return "Currently Unavailable"
}
