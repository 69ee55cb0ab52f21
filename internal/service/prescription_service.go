package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/pharmacist"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxNumberAttempts     = 5
	defaultCancelReason   = "No reason provided"
	prescriptionsResource = "prescription"
)

type PrescriptionService struct {
	repo        prescription.Repository
	patients    patient.Repository
	medications medication.Repository
	prescribers prescriber.Repository
	pharmacists pharmacist.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger

	now       func() time.Time
	newNumber func() string
}

func NewPrescriptionService(
	repo prescription.Repository,
	patients patient.Repository,
	medications medication.Repository,
	prescribers prescriber.Repository,
	pharmacists pharmacist.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		repo:        repo,
		patients:    patients,
		medications: medications,
		prescribers: prescribers,
		pharmacists: pharmacists,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		newNumber:   NewPrescriptionNumber,
	}
}

// NewPrescriptionNumber returns "RX-" followed by 8 random uppercase hex digits.
func NewPrescriptionNumber() string {
	return "RX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *PrescriptionService) Create(ctx context.Context, cmd *prescription.CreatePrescriptionCommand, actor Actor) (*prescription.Prescription, error) {
	if err := actor.require(domain.RolePrescriber); err != nil {
		return nil, err
	}
	if err := validateCreatePrescription(cmd); err != nil {
		return nil, err
	}

	if _, err := s.prescribers.GetByID(ctx, actor.EntityID); err != nil {
		return nil, fmt.Errorf("verifying prescriber: %w", err)
	}
	if _, err := s.patients.GetByID(ctx, cmd.PatientID); err != nil {
		return nil, asInvalidReference(fmt.Errorf("verifying patient: %w", err))
	}
	med, err := s.medications.GetByID(ctx, cmd.MedicationID)
	if err != nil {
		return nil, asInvalidReference(fmt.Errorf("verifying medication: %w", err))
	}

	today := dateOf(s.now())
	p := &prescription.Prescription{
		PatientID:             cmd.PatientID,
		MedicationID:          cmd.MedicationID,
		PrescriberID:          actor.EntityID,
		Status:                prescription.StatusActive,
		Dose:                  cmd.Dose,
		DoseUnit:              strings.TrimSpace(cmd.DoseUnit),
		Frequency:             strings.TrimSpace(cmd.Frequency),
		FrequencyDescription:  cmd.FrequencyDescription,
		Route:                 strings.TrimSpace(cmd.Route),
		Indication:            cmd.Indication,
		Instructions:          cmd.Instructions,
		ClinicalNotes:         cmd.ClinicalNotes,
		PrescribedDate:        today,
		StartDate:             dateOf(cmd.StartDate),
		EndDate:               cmd.EndDate,
		QuantityPrescribed:    cmd.QuantityPrescribed,
		QuantityDispensed:     0,
		QuantityUnit:          cmd.QuantityUnit,
		DaysSupply:            cmd.DaysSupply,
		IsPRN:                 cmd.IsPRN,
		IsSubstitutionAllowed: true,
		IsControlledSubstance: cmd.IsControlledSubstance,
		CreatedBy:             actor.UserID,
	}
	if p.Route == "" {
		p.Route = med.Route
	}
	if cmd.RefillsAllowed != nil {
		p.RefillsAllowed = *cmd.RefillsAllowed
	}
	p.RefillsRemaining = p.RefillsAllowed
	if cmd.IsSubstitutionAllowed != nil {
		p.IsSubstitutionAllowed = *cmd.IsSubstitutionAllowed
	}

	if err := s.insertWithUniqueNumber(ctx, p); err != nil {
		return nil, err
	}
	p.Medication = med

	s.metrics.PrescriptionsCreated.Inc()
	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionCreate, prescriptionsResource, p.ID.String()))
	s.log.Info("prescription created",
		zap.String("prescription_id", p.ID.String()),
		zap.String("number", p.Number),
		zap.String("prescriber_id", actor.EntityID.String()),
	)

	return p, nil
}

// insertWithUniqueNumber relies on the unique index on the number column
// and draws a fresh number when the store reports a collision.
func (s *PrescriptionService) insertWithUniqueNumber(ctx context.Context, p *prescription.Prescription) error {
	for attempt := 1; ; attempt++ {
		p.Number = s.newNumber()
		err := s.repo.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, prescription.ErrDuplicateNumber) || attempt == maxNumberAttempts {
			return fmt.Errorf("creating prescription: %w", err)
		}
		s.metrics.NumberCollisions.Inc()
		s.log.Warn("prescription number collision, retrying",
			zap.String("number", p.Number),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *PrescriptionService) Update(ctx context.Context, id uuid.UUID, cmd *prescription.UpdatePrescriptionCommand, actor Actor) (*prescription.Prescription, error) {
	if err := actor.require(domain.RolePrescriber); err != nil {
		return nil, err
	}
	if err := validateUpdatePrescription(cmd); err != nil {
		return nil, err
	}
	if _, err := s.prescribers.GetByID(ctx, actor.EntityID); err != nil {
		return nil, fmt.Errorf("verifying prescriber: %w", err)
	}

	updated, err := s.repo.Mutate(ctx, id, func(p *prescription.Prescription) error {
		if !p.IsOwnedBy(actor.EntityID) {
			return ErrForbidden
		}
		return p.ApplyUpdate(cmd)
	})
	if err != nil {
		return nil, err
	}

	entry := actor.audit(domain.ActionUpdate, prescriptionsResource, id.String())
	entry.Changes = changesJSON(map[string]any{"reason": cmd.ModificationReason})
	s.auditSvc.LogAsync(ctx, entry)
	s.log.Info("prescription updated",
		zap.String("prescription_id", id.String()),
		zap.String("reason", cmd.ModificationReason),
	)

	return updated, nil
}

func (s *PrescriptionService) Cancel(ctx context.Context, id uuid.UUID, reason string, actor Actor) error {
	if err := actor.require(domain.RolePrescriber); err != nil {
		return err
	}
	if _, err := s.prescribers.GetByID(ctx, actor.EntityID); err != nil {
		return fmt.Errorf("verifying prescriber: %w", err)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	_, err := s.repo.Mutate(ctx, id, func(p *prescription.Prescription) error {
		if !p.IsOwnedBy(actor.EntityID) {
			return ErrForbidden
		}
		return p.Cancel(actor.EntityID, reason, s.now())
	})
	if err != nil {
		return err
	}

	s.metrics.PrescriptionTransitions.WithLabelValues(string(prescription.StatusCancelled)).Inc()
	entry := actor.audit(domain.ActionDelete, prescriptionsResource, id.String())
	entry.Changes = changesJSON(map[string]any{"status": prescription.StatusCancelled, "reason": reason})
	s.auditSvc.LogAsync(ctx, entry)
	s.log.Info("prescription cancelled", zap.String("prescription_id", id.String()))

	return nil
}

// Dispense hands out cmd.Quantity units. Any pharmacist may dispense
// against any active prescription.
func (s *PrescriptionService) Dispense(ctx context.Context, cmd *prescription.DispenseCommand, actor Actor) (*prescription.Prescription, error) {
	if err := actor.require(domain.RolePharmacist); err != nil {
		return nil, err
	}
	if cmd.Quantity < 1 {
		return nil, &ValidationError{Fields: map[string]string{"quantity": "must be at least 1"}}
	}
	if _, err := s.pharmacists.GetByID(ctx, actor.EntityID); err != nil {
		return nil, fmt.Errorf("verifying pharmacist: %w", err)
	}

	d := &prescription.Dispensation{
		PrescriptionID: cmd.PrescriptionID,
		PharmacistID:   actor.EntityID,
		Quantity:       cmd.Quantity,
		Notes:          cmd.Notes,
		DispensedAt:    s.now(),
	}
	updated, err := s.repo.Dispense(ctx, d, func(p *prescription.Prescription) error {
		return p.Dispense(cmd.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.UnitsDispensed.Add(float64(cmd.Quantity))
	if updated.Status == prescription.StatusCompleted {
		s.metrics.PrescriptionTransitions.WithLabelValues(string(prescription.StatusCompleted)).Inc()
	}

	entry := actor.audit(domain.ActionDispense, prescriptionsResource, cmd.PrescriptionID.String())
	entry.Changes = changesJSON(map[string]any{
		"quantity":           cmd.Quantity,
		"quantity_dispensed": updated.QuantityDispensed,
		"status":             updated.Status,
	})
	s.auditSvc.LogAsync(ctx, entry)
	s.log.Info("medication dispensed",
		zap.String("prescription_id", cmd.PrescriptionID.String()),
		zap.String("pharmacist_id", actor.EntityID.String()),
		zap.Int("quantity", cmd.Quantity),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// GetForPatient returns a prescription the calling patient owns.
func (s *PrescriptionService) GetForPatient(ctx context.Context, id uuid.UUID, actor Actor) (*prescription.Prescription, error) {
	if err := actor.require(domain.RolePatient); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PatientID != actor.EntityID {
		return nil, ErrForbidden
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionRead, prescriptionsResource, id.String()))
	return p, nil
}

// ListForPatient filters by status; nil means every status.
func (s *PrescriptionService) ListForPatient(ctx context.Context, status *prescription.Status, actor Actor) ([]*prescription.Prescription, error) {
	if err := actor.require(domain.RolePatient); err != nil {
		return nil, err
	}
	patientID := actor.EntityID
	return s.repo.List(ctx, &prescription.ListPrescriptionsQuery{PatientID: &patientID, Status: status})
}

func (s *PrescriptionService) ListRefillEligible(ctx context.Context, actor Actor) ([]*prescription.Prescription, error) {
	if err := actor.require(domain.RolePatient); err != nil {
		return nil, err
	}
	return s.repo.ListRefillEligible(ctx, actor.EntityID, dateOf(s.now()))
}

func (s *PrescriptionService) ListForPrescriber(ctx context.Context, patientID *uuid.UUID, actor Actor) ([]*prescription.Prescription, error) {
	if err := actor.require(domain.RolePrescriber); err != nil {
		return nil, err
	}
	prescriberID := actor.EntityID
	return s.repo.List(ctx, &prescription.ListPrescriptionsQuery{PrescriberID: &prescriberID, PatientID: patientID})
}

// GetForPrescriber hides prescriptions of other prescribers behind NotFound.
func (s *PrescriptionService) GetForPrescriber(ctx context.Context, id uuid.UUID, actor Actor) (*prescription.Prescription, error) {
	if err := actor.require(domain.RolePrescriber); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(actor.EntityID) {
		return nil, prescription.ErrPrescriptionNotFound
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionRead, prescriptionsResource, id.String()))
	return p, nil
}

func (s *PrescriptionService) GetByNumber(ctx context.Context, number string, actor Actor) (*prescription.Prescription, error) {
	if err := actor.require(domain.RolePharmacist); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionRead, prescriptionsResource, p.ID.String()))
	return p, nil
}

func (s *PrescriptionService) ListDispensations(ctx context.Context, id uuid.UUID, actor Actor) ([]*prescription.Dispensation, error) {
	if err := actor.require(domain.RolePharmacist); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListDispensations(ctx, id)
}

func validateCreatePrescription(cmd *prescription.CreatePrescriptionCommand) error {
	v := &ValidationError{}

	if cmd.PatientID == uuid.Nil {
		v.Add("patient_id", "is required")
	}
	if cmd.MedicationID == uuid.Nil {
		v.Add("medication_id", "is required")
	}
	if cmd.Dose <= 0 {
		v.Add("dose", "must be positive")
	}
	if strings.TrimSpace(cmd.DoseUnit) == "" {
		v.Add("dose_unit", "is required")
	}
	if strings.TrimSpace(cmd.Frequency) == "" {
		v.Add("frequency", "is required")
	}
	if cmd.StartDate.IsZero() {
		v.Add("start_date", "is required")
	}
	if cmd.EndDate != nil && !cmd.StartDate.IsZero() && cmd.EndDate.Before(cmd.StartDate) {
		v.Add("end_date", "must not be before start_date")
	}
	if cmd.QuantityPrescribed < 1 {
		v.Add("quantity_prescribed", "must be positive")
	}
	if cmd.RefillsAllowed != nil && *cmd.RefillsAllowed < 0 {
		v.Add("refills_allowed", "must not be negative")
	}
	if cmd.DaysSupply != nil && *cmd.DaysSupply < 1 {
		v.Add("days_supply", "must be positive")
	}

	return v.OrNil()
}

func validateUpdatePrescription(cmd *prescription.UpdatePrescriptionCommand) error {
	v := &ValidationError{}

	if cmd.Dose != nil && *cmd.Dose <= 0 {
		v.Add("dose", "must be positive")
	}
	if cmd.DoseUnit != nil && strings.TrimSpace(*cmd.DoseUnit) == "" {
		v.Add("dose_unit", "must not be blank")
	}
	if cmd.Frequency != nil && strings.TrimSpace(*cmd.Frequency) == "" {
		v.Add("frequency", "must not be blank")
	}
	if cmd.RefillsAllowed != nil && *cmd.RefillsAllowed < 0 {
		v.Add("refills_allowed", "must not be negative")
	}

	return v.OrNil()
}

func asInvalidReference(err error) error {
	if errors.Is(err, patient.ErrPatientNotFound) || errors.Is(err, medication.ErrMedicationNotFound) {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func changesJSON(fields map[string]any) string {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
