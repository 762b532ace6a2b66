package catalog

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

type Category string

const (
	CategoryRestaurant    Category = "Restaurant"
	CategoryHotel         Category = "Hotel"
	CategoryShopping      Category = "Shopping"
	CategoryFitness       Category = "Fitness"
	CategoryHealth        Category = "Health"
	CategoryBeauty        Category = "Beauty"
	CategoryEducation     Category = "Education"
	CategoryEntertainment Category = "Entertainment"
	CategoryServices      Category = "Services"
	CategoryOther         Category = "Other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRestaurant, CategoryHotel, CategoryShopping, CategoryFitness, CategoryHealth,
		CategoryBeauty, CategoryEducation, CategoryEntertainment, CategoryServices, CategoryOther:
		return true
	}
	return false
}

type PricingModel string

const (
	PricingPerPerson PricingModel = "perPerson"
	PricingPerHour   PricingModel = "perHour"
	PricingPerDay    PricingModel = "perDay"
	PricingFixed     PricingModel = "fixed"
)

func (m PricingModel) Valid() bool {
	switch m {
	case PricingPerPerson, PricingPerHour, PricingPerDay, PricingFixed:
		return true
	}
	return false
}

type Business struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	OwnerID     int64     `json:"owner_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Category    Category  `json:"category" gorm:"size:32;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

type Pricing struct {
	BasePrice float64      `json:"base_price" gorm:"not null"`
	Model     PricingModel `json:"pricing_model" gorm:"size:16;not null"`
}

type PaymentSettings struct {
	AcceptOnlinePayment bool    `json:"accept_online_payment"`
	TaxRate             float64 `json:"tax_rate"`
	DepositEnabled      bool    `json:"deposit_enabled"`
	DepositPercentage   float64 `json:"deposit_percentage"`
}

type BookingSettings struct {
	RequiresApproval bool `json:"requires_approval"`
	// hours
	MinAdvanceBooking int `json:"min_advance_booking"`
	// days
	MaxAdvanceBooking int `json:"max_advance_booking"`
	// minutes an online booking may stay unpaid
	BookingTimeout int `json:"booking_timeout"`
}

type CancellationPolicy struct {
	AllowCancellation     bool    `json:"allow_cancellation"`
	FreeCancellationHours int     `json:"free_cancellation_hours"`
	CancellationFee       float64 `json:"cancellation_fee"`
}

type Service struct {
	ID          int64    `json:"id" gorm:"primaryKey"`
	BusinessID  int64    `json:"business_id" gorm:"not null;index"`
	Name        string   `json:"name" gorm:"size:255;not null"`
	Description string   `json:"description,omitempty" gorm:"type:text"`
	Category    Category `json:"category" gorm:"size:32;not null"`
	// total concurrent people limit
	Capacity int `json:"capacity" gorm:"not null"`

	Pricing            Pricing            `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`
	PaymentSettings    PaymentSettings    `json:"payment_settings" gorm:"embedded;embeddedPrefix:payment_"`
	BookingSettings    BookingSettings    `json:"booking_settings" gorm:"embedded;embeddedPrefix:booking_"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy" gorm:"embedded;embeddedPrefix:cancellation_"`

	Recurring          bool    `json:"recurring"`
	RecurringStartDate *string `json:"recurring_start_date,omitempty" gorm:"size:10"`

	SpecialPrices []SpecialPrice      `json:"special_prices" gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
	Availability  []AvailabilityEntry `json:"availability" gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`

	Business *Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Service) TableName() string { return "services" }

func (s *Service) IsHotel() bool { return s.Category == CategoryHotel }

// CapacityFor returns the effective capacity of an availability entry.
func (s *Service) CapacityFor(e *AvailabilityEntry) int {
	if e.Capacity > 0 {
		return e.Capacity
	}
	return s.Capacity
}

// EntryFor finds the availability entry covering day: the weekday entry for
// recurring services, the exact date entry otherwise.
func (s *Service) EntryFor(day time.Time) *AvailabilityEntry {
	dow, date := EntryKey(s.Recurring, day)
	for i := range s.Availability {
		e := &s.Availability[i]
		if s.Recurring && strings.EqualFold(e.DayOfWeek, dow) {
			return e
		}
		if !s.Recurring && e.Date == date {
			return e
		}
	}
	return nil
}

// StartsAfter reports whether a recurring service has not started yet on day.
func (s *Service) StartsAfter(day time.Time) bool {
	if !s.Recurring || s.RecurringStartDate == nil {
		return false
	}
	start, err := time.Parse(DateLayout, *s.RecurringStartDate)
	if err != nil {
		return false
	}
	return Day(day).Before(start)
}

type SpecialPrice struct {
	ID        int64   `json:"id" gorm:"primaryKey"`
	ServiceID int64   `json:"service_id" gorm:"not null;index"`
	Position  int     `json:"position"`
	Name      string  `json:"name" gorm:"size:255"`
	Price     float64 `json:"price"`

	DaysOfWeek    datatypes.JSONSlice[string] `json:"days_of_week,omitempty"`
	SpecificDates datatypes.JSONSlice[string] `json:"specific_dates,omitempty"`
	MinPeople     int                         `json:"min_people,omitempty"`
}

func (SpecialPrice) TableName() string { return "service_special_prices" }

// AvailabilityEntry is either a weekday (recurring) or a date row with its
// bookings counter. Capacity 0 falls back to the service capacity.
type AvailabilityEntry struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	ServiceID    int64  `json:"service_id" gorm:"not null;uniqueIndex:idx_availability_slot"`
	DayOfWeek    string `json:"day_of_week,omitempty" gorm:"size:16;uniqueIndex:idx_availability_slot"`
	Date         string `json:"date,omitempty" gorm:"size:10;uniqueIndex:idx_availability_slot"`
	Capacity     int    `json:"capacity"`
	BookingsMade int    `json:"bookings_made" gorm:"not null;default:0"`
}

func (AvailabilityEntry) TableName() string { return "service_availabilities" }

// EntryKey returns the weekday name or the YYYY-MM-DD date identifying the entry for day.
func EntryKey(recurring bool, day time.Time) (dayOfWeek, date string) {
	if recurring {
		return day.Weekday().String(), ""
	}
	return "", day.Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
