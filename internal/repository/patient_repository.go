package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient, u *domain.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		if strings.Contains(violatedConstraint(err), "email") {
			return domain.ErrEmailTaken
		}
		return patient.ErrPatientAlreadyExists
	}
	return fmt.Errorf("creating patient: %w", err)
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return r.first(ctx, "id = ? AND deleted_at IS NULL", id)
}

func (r *PatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	return r.first(ctx, "user_id = ? AND deleted_at IS NULL", userID)
}

func (r *PatientRepository) first(ctx context.Context, query string, args ...any) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).Where(query, args...).First(&p).Error; err != nil {
		if isNotFound(err) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("fetching patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) ExistsByNationalIDHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&patient.Patient{}).
		Where("national_id_hash = ?", hash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking national ID: %w", err)
	}
	return count > 0, nil
}
