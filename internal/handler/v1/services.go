package v1

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/google/uuid"
)

// The handlers depend on these narrow views of the service layer so tests
// can substitute stubs.

type AuthService interface {
	Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Me(ctx context.Context, userID uuid.UUID) (*domain.Claims, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

type PatientService interface {
	Register(ctx context.Context, cmd *patient.RegisterPatientCommand, actor service.Actor) (*service.Profile, error)
	Me(ctx context.Context, actor service.Actor) (*service.Profile, error)
}

type CatalogService interface {
	Search(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error)
	Get(ctx context.Context, id uuid.UUID) (*medication.Medication, error)
}

type PrescriptionService interface {
	Create(ctx context.Context, cmd *prescription.CreatePrescriptionCommand, actor service.Actor) (*prescription.Prescription, error)
	Update(ctx context.Context, id uuid.UUID, cmd *prescription.UpdatePrescriptionCommand, actor service.Actor) (*prescription.Prescription, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, actor service.Actor) error
	Dispense(ctx context.Context, cmd *prescription.DispenseCommand, actor service.Actor) (*prescription.Prescription, error)
	GetForPatient(ctx context.Context, id uuid.UUID, actor service.Actor) (*prescription.Prescription, error)
	ListForPatient(ctx context.Context, status *prescription.Status, actor service.Actor) ([]*prescription.Prescription, error)
	ListRefillEligible(ctx context.Context, actor service.Actor) ([]*prescription.Prescription, error)
	ListForPrescriber(ctx context.Context, patientID *uuid.UUID, actor service.Actor) ([]*prescription.Prescription, error)
	GetForPrescriber(ctx context.Context, id uuid.UUID, actor service.Actor) (*prescription.Prescription, error)
	GetByNumber(ctx context.Context, number string, actor service.Actor) (*prescription.Prescription, error)
	ListDispensations(ctx context.Context, id uuid.UUID, actor service.Actor) ([]*prescription.Dispensation, error)
}

type AdherenceService interface {
	Record(ctx context.Context, cmd *adherence.RecordCommand, actor service.Actor) (*adherence.Record, error)
	History(ctx context.Context, prescriptionID uuid.UUID, actor service.Actor) ([]*adherence.Record, error)
	Summary(ctx context.Context, prescriptionID uuid.UUID, actor service.Actor) (*service.Summary, error)
}
