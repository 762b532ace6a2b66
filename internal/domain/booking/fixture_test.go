package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"odysseum/internal/database"
	"odysseum/internal/domain/auth"
	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
	"odysseum/internal/logger"
)

// fixture wires the lifecycle against an in-memory database and a movable clock.
type fixture struct {
	t        *testing.T
	db       *gorm.DB
	catalog  *catalog.Catalog
	services *catalog.Repository
	sandbox  *payment.Sandbox
	svc      *Service

	clock    time.Time
	owner    Actor
	customer Actor
	admin    Actor
	business *catalog.Business
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:", logger.Discard())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&auth.User{},
		&catalog.Business{}, &catalog.Service{}, &catalog.SpecialPrice{}, &catalog.AvailabilityEntry{},
		&Booking{}, &Transaction{},
	))

	f := &fixture{
		t:     t,
		db:    db,
		clock: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.services = catalog.NewRepository(db)
	f.catalog = catalog.NewCatalog(f.services, logger.Discard())
	f.sandbox = payment.NewSandbox(logger.Discard())

	users := auth.NewUserRepository(db)
	f.owner = f.user(users, "owner@example.com", auth.RoleBusiness)
	f.customer = f.user(users, "customer@example.com", auth.RoleUser)
	f.admin = f.user(users, "admin@example.com", auth.RoleAdmin)

	f.business, err = f.catalog.CreateBusiness(context.Background(), f.owner.UserID, catalog.CreateBusinessRequest{
		Name:     "Harbour Co",
		Category: string(catalog.CategoryEntertainment),
	})
	require.NoError(t, err)

	orch := NewOrchestrator(f.sandbox, f.sandbox, logger.Discard())
	f.svc = NewService(NewRepository(db), f.services, users, orch, logger.Discard(), Options{
		MatchMode: MatchAny,
		Now:       func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) user(users *auth.UserRepository, email string, role auth.UserRole) Actor {
	u := &auth.User{Email: email, PasswordHash: "x", Role: role, Name: email}
	require.NoError(f.t, users.Create(context.Background(), u))
	return Actor{UserID: u.ID, Role: string(role)}
}

// baseService is a small dated service: capacity 2, 50 per person, 10% tax,
// online payment, no deposit, instant booking, one date entry.
func baseService() catalog.CreateServiceRequest {
	return catalog.CreateServiceRequest{
		Name:                "Sunset cruise",
		Category:            string(catalog.CategoryEntertainment),
		Capacity:            2,
		BasePrice:           50,
		PricingModel:        string(catalog.PricingPerPerson),
		AcceptOnlinePayment: true,
		TaxRate:             10,
		Availability:        []catalog.AvailabilityInput{{Date: "2030-01-05"}},
	}
}

func (f *fixture) service(mutate func(r *catalog.CreateServiceRequest)) *catalog.Service {
	f.t.Helper()
	req := baseService()
	req.BusinessID = f.business.ID
	if mutate != nil {
		mutate(&req)
	}
	created, err := f.catalog.CreateService(context.Background(), f.owner.UserID, req)
	require.NoError(f.t, err)
	return created
}

func bookingRequest(serviceID int64, people int) CreateBookingRequest {
	return CreateBookingRequest{
		ServiceID:      serviceID,
		NumberOfPeople: people,
		BookingDate:    "2030-01-05",
		TimeSlot: TimeSlot{
			StartTime: time.Date(2030, 1, 5, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2030, 1, 5, 12, 0, 0, 0, time.UTC),
		},
		PaymentMethod:  payment.MethodCard,
		PaymentDetails: payment.Details{"card_token": "tok_visa"},
	}
}

func (f *fixture) book(serviceID int64, people int, mutate func(r *CreateBookingRequest)) (*Booking, error) {
	req := bookingRequest(serviceID, people)
	if mutate != nil {
		mutate(&req)
	}
	return f.svc.CreateBooking(context.Background(), f.customer, req)
}

func (f *fixture) bookingsMade(serviceID int64, date string) int {
	f.t.Helper()
	var e catalog.AvailabilityEntry
	require.NoError(f.t, f.db.Where("service_id = ? AND date = ?", serviceID, date).First(&e).Error)
	return e.BookingsMade
}

func (f *fixture) reload(id int64) *Booking {
	f.t.Helper()
	b, err := f.svc.bookings.GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return b
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
