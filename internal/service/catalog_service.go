package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/google/uuid"
)

// CatalogService exposes the read-only medication catalog to every role.
type CatalogService struct {
	repo medication.Repository
}

func NewCatalogService(repo medication.Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Search(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	return s.repo.List(ctx, q)
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	return s.repo.GetByID(ctx, id)
}
