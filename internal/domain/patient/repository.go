package patient

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient together with its login identity in one
	// transaction. Returns ErrPatientAlreadyExists on duplicate national ID
	// hash and domain.ErrEmailTaken on a duplicate login email.
	Create(ctx context.Context, p *Patient, u *domain.User) error

	// GetByID retrieves a live (not soft-deleted) patient. Returns ErrPatientNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByUserID resolves the patient record linked to a login identity.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)

	// ExistsByNationalIDHash checks for uniqueness without fetching the full record.
	ExistsByNationalIDHash(ctx context.Context, hash string) (bool, error)
}
