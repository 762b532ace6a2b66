package catalog

import (
	"context"

	"gorm.io/gorm"

	"odysseum/internal/database"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateBusiness(ctx context.Context, b *Business) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) GetBusiness(ctx context.Context, id int64) (*Business, error) {
	var b Business
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListBusinessesByOwner(ctx context.Context, ownerID int64) ([]Business, error) {
	var out []Business
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&out).Error
	return out, err
}

// CreateService inserts the service together with its special prices and availability rows.
func (r *Repository) CreateService(ctx context.Context, s *Service) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// GetService loads a service with business, special prices (in match order) and availability.
func (r *Repository) GetService(ctx context.Context, id int64) (*Service, error) {
	var s Service
	err := r.db.WithContext(ctx).
		Preload("Business").
		Preload("SpecialPrices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Availability", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&s, id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListServicesByBusiness(ctx context.Context, businessID int64) ([]Service, error) {
	var out []Service
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
