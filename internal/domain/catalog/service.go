package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"odysseum/internal/pkg/validator"
)

// Defaults applied when a create request leaves a setting out.
const (
	DefaultMinAdvanceHours       = 1
	DefaultMaxAdvanceDays        = 30
	DefaultBookingTimeoutMinutes = 15
	DefaultFreeCancellationHours = 24
)

var weekdays = map[string]string{
	"sunday":    "Sunday",
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
}

// Catalog manages businesses and their bookable services.
type Catalog struct {
	repo *Repository
	log  logrus.FieldLogger
}

func NewCatalog(repo *Repository, log logrus.FieldLogger) *Catalog {
	return &Catalog{repo: repo, log: log}
}

func (c *Catalog) CreateBusiness(ctx context.Context, ownerID int64, req CreateBusinessRequest) (*Business, error) {
	category := Category(req.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, req.Category)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	b := &Business{
		OwnerID:     ownerID,
		Name:        name,
		Category:    category,
		Description: req.Description,
	}
	if err := c.repo.CreateBusiness(ctx, b); err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"business_id": b.ID, "owner_id": ownerID}).Info("business created")
	return b, nil
}

func (c *Catalog) GetBusiness(ctx context.Context, id int64) (*Business, error) {
	return c.repo.GetBusiness(ctx, id)
}

func (c *Catalog) ListBusinessesByOwner(ctx context.Context, ownerID int64) ([]Business, error) {
	return c.repo.ListBusinessesByOwner(ctx, ownerID)
}

func (c *Catalog) GetService(ctx context.Context, id int64) (*Service, error) {
	return c.repo.GetService(ctx, id)
}

func (c *Catalog) ListServices(ctx context.Context, businessID int64) ([]Service, error) {
	if _, err := c.repo.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	return c.repo.ListServicesByBusiness(ctx, businessID)
}

// CreateService registers a bookable service under a business the caller owns.
func (c *Catalog) CreateService(ctx context.Context, ownerID int64, req CreateServiceRequest) (*Service, error) {
	business, err := c.repo.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if business.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if errs := validator.Validate(req); errs != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, fieldErrors(errs))
	}

	svc, err := buildService(req)
	if err != nil {
		return nil, err
	}
	if err := c.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"service_id":  svc.ID,
		"business_id": svc.BusinessID,
		"recurring":   svc.Recurring,
		"entries":     len(svc.Availability),
	}).Info("service created")
	return svc, nil
}

func buildService(req CreateServiceRequest) (*Service, error) {
	category := Category(req.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, req.Category)
	}
	model := PricingModel(req.PricingModel)
	if !model.Valid() {
		return nil, fmt.Errorf("%w: unknown pricing model %q", ErrValidation, req.PricingModel)
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}
	if req.BasePrice < 0 {
		return nil, fmt.Errorf("%w: base price cannot be negative", ErrValidation)
	}
	if req.TaxRate < 0 || req.TaxRate > 100 {
		return nil, fmt.Errorf("%w: tax rate must be between 0 and 100", ErrValidation)
	}
	if req.DepositEnabled && (req.DepositPercentage < 0 || req.DepositPercentage > 100) {
		return nil, fmt.Errorf("%w: deposit percentage must be between 0 and 100", ErrValidation)
	}

	settings := BookingSettings{
		RequiresApproval:  req.RequiresApproval,
		MinAdvanceBooking: intOr(req.MinAdvanceBooking, DefaultMinAdvanceHours),
		MaxAdvanceBooking: intOr(req.MaxAdvanceBooking, DefaultMaxAdvanceDays),
		BookingTimeout:    intOr(req.BookingTimeout, DefaultBookingTimeoutMinutes),
	}
	if settings.MinAdvanceBooking < 0 || settings.MaxAdvanceBooking < 0 || settings.BookingTimeout < 0 {
		return nil, fmt.Errorf("%w: booking settings cannot be negative", ErrValidation)
	}

	policy := CancellationPolicy{
		AllowCancellation:     true,
		FreeCancellationHours: intOr(req.FreeCancellationHours, DefaultFreeCancellationHours),
	}
	if req.AllowCancellation != nil {
		policy.AllowCancellation = *req.AllowCancellation
	}
	if req.CancellationFee != nil {
		policy.CancellationFee = *req.CancellationFee
	}
	if policy.FreeCancellationHours < 0 || policy.CancellationFee < 0 {
		return nil, fmt.Errorf("%w: cancellation policy cannot be negative", ErrValidation)
	}

	svc := &Service{
		BusinessID:  req.BusinessID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    category,
		Capacity:    req.Capacity,
		Pricing:     Pricing{BasePrice: req.BasePrice, Model: model},
		PaymentSettings: PaymentSettings{
			AcceptOnlinePayment: req.AcceptOnlinePayment,
			TaxRate:             req.TaxRate,
			DepositEnabled:      req.DepositEnabled,
			DepositPercentage:   req.DepositPercentage,
		},
		BookingSettings:    settings,
		CancellationPolicy: policy,
		Recurring:          req.Recurring,
	}

	for i, sp := range req.SpecialPrices {
		entry := SpecialPrice{Position: i, Name: sp.Name, Price: sp.Price, MinPeople: sp.MinPeople}
		for _, d := range sp.DaysOfWeek {
			name, ok := normalizeWeekday(d)
			if !ok {
				return nil, fmt.Errorf("%w: invalid day of week %q", ErrValidation, d)
			}
			entry.DaysOfWeek = append(entry.DaysOfWeek, name)
		}
		for _, d := range sp.SpecificDates {
			if _, err := time.Parse(DateLayout, d); err != nil {
				return nil, fmt.Errorf("%w: invalid special price date %q", ErrValidation, d)
			}
			entry.SpecificDates = append(entry.SpecificDates, d)
		}
		svc.SpecialPrices = append(svc.SpecialPrices, entry)
	}

	if req.Recurring {
		if req.RecurringStartDate == "" {
			return nil, fmt.Errorf("%w: recurring start date is required", ErrValidation)
		}
		if _, err := time.Parse(DateLayout, req.RecurringStartDate); err != nil {
			return nil, fmt.Errorf("%w: invalid recurring start date", ErrValidation)
		}
		start := req.RecurringStartDate
		svc.RecurringStartDate = &start
	}

	seen := make(map[string]bool, len(req.Availability))
	for _, a := range req.Availability {
		if a.Capacity < 0 {
			return nil, fmt.Errorf("%w: availability capacity cannot be negative", ErrValidation)
		}
		entry := AvailabilityEntry{Capacity: a.Capacity}
		if req.Recurring {
			name, ok := normalizeWeekday(a.DayOfWeek)
			if !ok {
				return nil, fmt.Errorf("%w: invalid day of week %q", ErrValidation, a.DayOfWeek)
			}
			entry.DayOfWeek = name
		} else {
			if _, err := time.Parse(DateLayout, a.Date); err != nil {
				return nil, fmt.Errorf("%w: invalid availability date %q", ErrValidation, a.Date)
			}
			entry.Date = a.Date
		}
		key := entry.DayOfWeek + entry.Date
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate availability entry %q", ErrValidation, key)
		}
		seen[key] = true
		svc.Availability = append(svc.Availability, entry)
	}
	if len(svc.Availability) == 0 {
		return nil, fmt.Errorf("%w: availability is required", ErrValidation)
	}
	return svc, nil
}

func normalizeWeekday(s string) (string, bool) {
	name, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return name, ok
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func fieldErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, tag := range errs {
		parts = append(parts, field+" failed "+tag)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
