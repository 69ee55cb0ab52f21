package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/pharmacist"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrescriberRepository struct {
	db *gorm.DB
}

func NewPrescriberRepository(db *gorm.DB) *PrescriberRepository {
	return &PrescriberRepository{db: db}
}

func (r *PrescriberRepository) Create(ctx context.Context, p *prescriber.Prescriber) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating prescriber: %w", err)
	}
	return nil
}

func (r *PrescriberRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescriber.Prescriber, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PrescriberRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*prescriber.Prescriber, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *PrescriberRepository) first(ctx context.Context, query string, args ...any) (*prescriber.Prescriber, error) {
	var p prescriber.Prescriber
	if err := r.db.WithContext(ctx).Where(query, args...).First(&p).Error; err != nil {
		if isNotFound(err) {
			return nil, prescriber.ErrPrescriberNotFound
		}
		return nil, fmt.Errorf("fetching prescriber: %w", err)
	}
	return &p, nil
}

type PharmacistRepository struct {
	db *gorm.DB
}

func NewPharmacistRepository(db *gorm.DB) *PharmacistRepository {
	return &PharmacistRepository{db: db}
}

func (r *PharmacistRepository) Create(ctx context.Context, p *pharmacist.Pharmacist) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating pharmacist: %w", err)
	}
	return nil
}

func (r *PharmacistRepository) GetByID(ctx context.Context, id uuid.UUID) (*pharmacist.Pharmacist, error) {
	var p pharmacist.Pharmacist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if isNotFound(err) {
			return nil, pharmacist.ErrPharmacistNotFound
		}
		return nil, fmt.Errorf("fetching pharmacist: %w", err)
	}
	return &p, nil
}
