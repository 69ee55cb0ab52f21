package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MutateFunc changes a prescription in place. Returning an error aborts
// the surrounding transaction without saving.
type MutateFunc func(p *Prescription) error

type Repository interface {
	// Create persists a new prescription. Returns ErrDuplicateNumber when the
	// prescription number is already taken.
	Create(ctx context.Context, p *Prescription) error

	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByNumber(ctx context.Context, number string) (*Prescription, error)

	// Mutate locks the row, applies fn and saves the result in one transaction.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Prescription, error)

	// Dispense is Mutate plus an appended Dispensation row, atomically.
	Dispense(ctx context.Context, d *Dispensation, fn MutateFunc) (*Prescription, error)

	List(ctx context.Context, q *ListPrescriptionsQuery) ([]*Prescription, error)

	// ListRefillEligible returns ACTIVE prescriptions of the patient with
	// refills remaining whose next eligible date is on or before today.
	ListRefillEligible(ctx context.Context, patientID uuid.UUID, today time.Time) ([]*Prescription, error)

	ListDispensations(ctx context.Context, prescriptionID uuid.UUID) ([]*Dispensation, error)
}
