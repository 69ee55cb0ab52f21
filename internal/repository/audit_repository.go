package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateBatch inserts entries in one statement. Entries without a change
// set are stored as an empty JSON object.
func (r *AuditRepository) CreateBatch(ctx context.Context, entries []*domain.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.Changes == "" {
			e.Changes = "{}"
		}
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return fmt.Errorf("writing %d audit logs: %w", len(entries), err)
	}
	return nil
}
