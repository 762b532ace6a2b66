package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"odysseum/internal/bootstrap"
	"odysseum/internal/domain/auth"
	"odysseum/internal/domain/catalog"
)

func seedCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts, a business and its services",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if err := bootstrap.Migrate(e.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			app := bootstrap.New(e.cfg, e.db, e.log)
			return seed(cmd.Context(), app, e.log, password)
		},
	}
	cmd.Flags().String("password", "odysseum123", "password for every seeded account")
	return cmd
}

func seed(ctx context.Context, app *bootstrap.App, log logrus.FieldLogger, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	accounts := map[auth.UserRole]string{
		auth.RoleAdmin:    "admin@odysseum.local",
		auth.RoleBusiness: "owner@odysseum.local",
		auth.RoleUser:     "guest@odysseum.local",
	}
	ids := make(map[auth.UserRole]int64, len(accounts))
	for role, email := range accounts {
		u, err := app.Users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			log.WithField("email", email).Info("account exists")
		case errors.Is(err, auth.ErrUserNotFound):
			u = &auth.User{Email: email, PasswordHash: hash, Role: role, Name: string(role)}
			if err := app.Users.Create(ctx, u); err != nil {
				return fmt.Errorf("create %s: %w", email, err)
			}
			log.WithField("email", email).Info("account created")
		default:
			return err
		}
		ids[role] = u.ID
	}

	owner := ids[auth.RoleBusiness]
	existing, err := app.Catalog.ListBusinessesByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("demo business exists, skipping catalog")
		return nil
	}

	biz, err := app.Catalog.CreateBusiness(ctx, owner, catalog.CreateBusinessRequest{
		Name:        "Harbour Adventures",
		Category:    string(catalog.CategoryEntertainment),
		Description: "Boat tours and a seaside guest house",
	})
	if err != nil {
		return err
	}

	start := time.Now().UTC().AddDate(0, 0, 1).Format(catalog.DateLayout)
	requests := []catalog.CreateServiceRequest{
		{
			BusinessID:          biz.ID,
			Name:                "Sunset cruise",
			Category:            string(catalog.CategoryEntertainment),
			Capacity:            12,
			BasePrice:           45,
			PricingModel:        string(catalog.PricingPerPerson),
			AcceptOnlinePayment: true,
			TaxRate:             10,
			DepositEnabled:      true,
			DepositPercentage:   20,
			Recurring:           true,
			RecurringStartDate:  start,
			SpecialPrices: []catalog.SpecialPriceInput{
				{Name: "Weekend", Price: 55, DaysOfWeek: []string{"Saturday", "Sunday"}},
				{Name: "Group", Price: 38, MinPeople: 6},
			},
			Availability: []catalog.AvailabilityInput{
				{DayOfWeek: "Friday"}, {DayOfWeek: "Saturday"}, {DayOfWeek: "Sunday", Capacity: 8},
			},
		},
		{
			BusinessID:          biz.ID,
			Name:                "Private charter",
			Category:            string(catalog.CategoryEntertainment),
			Capacity:            6,
			BasePrice:           120,
			PricingModel:        string(catalog.PricingPerHour),
			AcceptOnlinePayment: true,
			RequiresApproval:    true,
			Recurring:           true,
			RecurringStartDate:  start,
			Availability: []catalog.AvailabilityInput{
				{DayOfWeek: "Monday"}, {DayOfWeek: "Wednesday"}, {DayOfWeek: "Thursday"},
			},
		},
		{
			BusinessID:         biz.ID,
			Name:               "Guest house room",
			Category:           string(catalog.CategoryHotel),
			Capacity:           2,
			BasePrice:          80,
			PricingModel:       string(catalog.PricingFixed),
			TaxRate:            12,
			Recurring:          true,
			RecurringStartDate: start,
			Availability: []catalog.AvailabilityInput{
				{DayOfWeek: "Monday"}, {DayOfWeek: "Tuesday"}, {DayOfWeek: "Wednesday"}, {DayOfWeek: "Thursday"},
				{DayOfWeek: "Friday"}, {DayOfWeek: "Saturday"}, {DayOfWeek: "Sunday"},
			},
		},
	}
	for _, req := range requests {
		svc, err := app.Catalog.CreateService(ctx, owner, req)
		if err != nil {
			return fmt.Errorf("create service %q: %w", req.Name, err)
		}
		log.WithFields(logrus.Fields{"service_id": svc.ID, "name": svc.Name}).Info("service created")
	}
	return nil
}
