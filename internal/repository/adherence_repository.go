package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdherenceRepository struct {
	db *gorm.DB
}

func NewAdherenceRepository(db *gorm.DB) *AdherenceRepository {
	return &AdherenceRepository{db: db}
}

func (r *AdherenceRepository) Create(ctx context.Context, rec *adherence.Record) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("recording adherence: %w", err)
	}
	return nil
}

func (r *AdherenceRepository) ListByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*adherence.Record, error) {
	var out []*adherence.Record
	err := r.db.WithContext(ctx).
		Where("prescription_id = ?", prescriptionID).
		Order("scheduled_time DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing adherence records: %w", err)
	}
	return out, nil
}

func (r *AdherenceRepository) CountByStatus(ctx context.Context, prescriptionID uuid.UUID) (map[adherence.Status]int64, error) {
	var rows []struct {
		Status adherence.Status
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&adherence.Record{}).
		Select("status, COUNT(*) AS total").
		Where("prescription_id = ?", prescriptionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting adherence records: %w", err)
	}

	counts := make(map[adherence.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
