package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return prescription.ErrDuplicateNumber
		}
		return fmt.Errorf("creating prescription: %w", err)
	}
	return nil
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PrescriptionRepository) GetByNumber(ctx context.Context, number string) (*prescription.Prescription, error) {
	return r.first(ctx, "prescription_number = ?", number)
}

func (r *PrescriptionRepository) first(ctx context.Context, query string, args ...any) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := r.db.WithContext(ctx).
		Preload("Medication").
		Preload("Prescriber").
		Where(query, args...).
		First(&p).Error
	if err != nil {
		if isNotFound(err) {
			return nil, prescription.ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("fetching prescription: %w", err)
	}
	return &p, nil
}

func (r *PrescriptionRepository) Mutate(ctx context.Context, id uuid.UUID, fn prescription.MutateFunc) (*prescription.Prescription, error) {
	var out *prescription.Prescription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return fmt.Errorf("saving prescription: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PrescriptionRepository) Dispense(ctx context.Context, d *prescription.Dispensation, fn prescription.MutateFunc) (*prescription.Prescription, error) {
	var out *prescription.Prescription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockForUpdate(tx, d.PrescriptionID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return fmt.Errorf("saving prescription: %w", err)
		}
		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("recording dispensation: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockForUpdate reads the row with SELECT ... FOR UPDATE so concurrent
// writers on the same prescription serialize until tx ends.
func lockForUpdate(tx *gorm.DB, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if isNotFound(err) {
			return nil, prescription.ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("locking prescription: %w", err)
	}
	return &p, nil
}

func (r *PrescriptionRepository) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) ([]*prescription.Prescription, error) {
	query := r.db.WithContext(ctx).Preload("Medication")

	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.PrescriberID != nil {
		query = query.Where("prescriber_id = ?", *q.PrescriberID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}

	var out []*prescription.Prescription
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}
	return out, nil
}

func (r *PrescriptionRepository) ListRefillEligible(ctx context.Context, patientID uuid.UUID, today time.Time) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.db.WithContext(ctx).
		Preload("Medication").
		Where("patient_id = ? AND status = ? AND refills_remaining > 0 AND next_refill_eligible_date <= ?",
			patientID, prescription.StatusActive, today.Format(time.DateOnly)).
		Order("next_refill_eligible_date ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing refill-eligible prescriptions: %w", err)
	}
	return out, nil
}

func (r *PrescriptionRepository) ListDispensations(ctx context.Context, prescriptionID uuid.UUID) ([]*prescription.Dispensation, error) {
	var out []*prescription.Dispensation
	err := r.db.WithContext(ctx).
		Where("prescription_id = ?", prescriptionID).
		Order("dispensed_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing dispensations: %w", err)
	}
	return out, nil
}
