package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdherenceService struct {
	repo          adherence.Repository
	prescriptions prescription.Repository
	patients      patient.Repository
	auditSvc      *AuditService
	metrics       *metrics.Collector
	log           *zap.Logger
	now           func() time.Time
}

func NewAdherenceService(
	repo adherence.Repository,
	prescriptions prescription.Repository,
	patients patient.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AdherenceService {
	return &AdherenceService{
		repo:          repo,
		prescriptions: prescriptions,
		patients:      patients,
		auditSvc:      auditSvc,
		metrics:       m,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Summary counts adherence records per status. Every status is present.
type Summary struct {
	PrescriptionID uuid.UUID                  `json:"prescription_id"`
	Counts         map[adherence.Status]int64 `json:"counts"`
	Total          int64                      `json:"total"`
}

// Record appends a patient-reported dose event. The patient is always the
// caller; recording against another patient's prescription is rejected as
// an invalid reference.
func (s *AdherenceService) Record(ctx context.Context, cmd *adherence.RecordCommand, actor Actor) (*adherence.Record, error) {
	if err := actor.require(domain.RolePatient); err != nil {
		return nil, err
	}
	cmd.PatientID = actor.EntityID

	if !cmd.Status.IsValid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be one of TAKEN, MISSED, SKIPPED, LATE"}}
	}

	p, err := s.prescriptions.GetByID(ctx, cmd.PrescriptionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.patients.GetByID(ctx, cmd.PatientID); err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if p.PatientID != cmd.PatientID {
		return nil, fmt.Errorf("%w: prescription belongs to another patient", ErrInvalidReference)
	}

	now := s.now()
	rec := &adherence.Record{
		PrescriptionID:      p.ID,
		PatientID:           cmd.PatientID,
		ScheduledTime:       now,
		ActualTime:          now,
		Status:              cmd.Status,
		DoseTaken:           p.Dose,
		DoseUnit:            p.DoseUnit,
		Notes:               cmd.Notes,
		SideEffectsReported: cmd.SideEffects,
		Source:              adherence.SourcePatientReported,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.metrics.AdherenceRecorded.WithLabelValues(string(rec.Status)).Inc()
	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionCreate, "adherence_record", rec.ID.String()))
	s.log.Info("adherence recorded",
		zap.String("prescription_id", p.ID.String()),
		zap.String("status", string(rec.Status)),
	)

	return rec, nil
}

// History returns records newest first by scheduled time.
func (s *AdherenceService) History(ctx context.Context, prescriptionID uuid.UUID, actor Actor) ([]*adherence.Record, error) {
	if err := s.authorizeRead(ctx, prescriptionID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListByPrescription(ctx, prescriptionID)
}

func (s *AdherenceService) Summary(ctx context.Context, prescriptionID uuid.UUID, actor Actor) (*Summary, error) {
	if err := s.authorizeRead(ctx, prescriptionID, actor); err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatus(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	out := &Summary{PrescriptionID: prescriptionID, Counts: make(map[adherence.Status]int64, 4)}
	for _, st := range []adherence.Status{adherence.StatusTaken, adherence.StatusMissed, adherence.StatusSkipped, adherence.StatusLate} {
		out.Counts[st] = counts[st]
		out.Total += counts[st]
	}
	return out, nil
}

func (s *AdherenceService) authorizeRead(ctx context.Context, prescriptionID uuid.UUID, actor Actor) error {
	if err := actor.require(domain.RolePatient); err != nil {
		return err
	}
	p, err := s.prescriptions.GetByID(ctx, prescriptionID)
	if err != nil {
		return err
	}
	if p.PatientID != actor.EntityID {
		return ErrForbidden
	}
	return nil
}
