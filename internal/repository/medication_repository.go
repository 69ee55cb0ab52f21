package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

func (r *MedicationRepository) Create(ctx context.Context, m *medication.Medication) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("creating medication: %w", err)
	}
	return nil
}

func (r *MedicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	var m medication.Medication
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, medication.ErrMedicationNotFound
		}
		return nil, fmt.Errorf("fetching medication: %w", err)
	}
	return &m, nil
}

func (r *MedicationRepository) List(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	query := r.db.WithContext(ctx).Model(&medication.Medication{})

	if name := strings.TrimSpace(q.Name); name != "" {
		pattern := "%" + escapeLike(name) + "%"
		query = query.Where("trade_name ILIKE ? OR generic_name ILIKE ?", pattern, pattern)
	}
	if q.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}

	var out []*medication.Medication
	if err := query.Order("trade_name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing medications: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
