package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/pharmacist"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc          *PrescriptionService
	repo         *fakePrescriptions
	metrics      *metrics.Collector
	auditRepo    *fakeAuditRepo
	auditSvc     *AuditService
	patientID    uuid.UUID
	otherPatient uuid.UUID
	medicationID uuid.UUID
	prescriberA  uuid.UUID
	prescriberB  uuid.UUID
	pharmacistID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:         newFakePrescriptions(),
		metrics:      metrics.NewCollector("test", prometheus.NewRegistry()),
		auditRepo:    &fakeAuditRepo{},
		patientID:    uuid.New(),
		otherPatient: uuid.New(),
		medicationID: uuid.New(),
		prescriberA:  uuid.New(),
		prescriberB:  uuid.New(),
		pharmacistID: uuid.New(),
	}
	f.auditSvc = NewAuditService(f.auditRepo, f.metrics, zap.NewNop())
	t.Cleanup(f.auditSvc.Shutdown)

	f.svc = NewPrescriptionService(
		f.repo,
		newFakePatients(f.patientID, f.otherPatient),
		fakeMedications{f.medicationID: {ID: f.medicationID, TradeName: "Metformin Teva", Route: "oral"}},
		fakePrescribers{f.prescriberA: {ID: f.prescriberA}, f.prescriberB: {ID: f.prescriberB}},
		fakePharmacists{f.pharmacistID: {ID: f.pharmacistID}},
		f.auditSvc,
		f.metrics,
		zap.NewNop(),
	)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func prescriberActor(id uuid.UUID) Actor {
	return Actor{UserID: uuid.New(), Role: domain.RolePrescriber, EntityID: id, IP: "10.0.0.1"}
}

func pharmacistActor(id uuid.UUID) Actor {
	return Actor{UserID: uuid.New(), Role: domain.RolePharmacist, EntityID: id}
}

func patientActor(id uuid.UUID) Actor {
	return Actor{UserID: uuid.New(), Role: domain.RolePatient, EntityID: id}
}

func (f *fixture) createCommand(quantity int) *prescription.CreatePrescriptionCommand {
	refills := 2
	return &prescription.CreatePrescriptionCommand{
		PatientID:          f.patientID,
		MedicationID:       f.medicationID,
		Dose:               850,
		DoseUnit:           "mg",
		Frequency:          "BID",
		StartDate:          fixedNow,
		QuantityPrescribed: quantity,
		RefillsAllowed:     &refills,
	}
}

func (f *fixture) create(t *testing.T, quantity int) *prescription.Prescription {
	t.Helper()
	p, err := f.svc.Create(context.Background(), f.createCommand(quantity), prescriberActor(f.prescriberA))
	require.NoError(t, err)
	return p
}

func TestCreate_InitialState(t *testing.T) {
	f := newFixture(t)

	p := f.create(t, 90)

	assert.Regexp(t, regexp.MustCompile(`^RX-[0-9A-F]{8}$`), p.Number)
	assert.Equal(t, prescription.StatusActive, p.Status)
	assert.Equal(t, 0, p.QuantityDispensed)
	assert.Equal(t, 2, p.RefillsAllowed)
	assert.Equal(t, 2, p.RefillsRemaining)
	assert.Equal(t, f.prescriberA, p.PrescriberID)
	assert.Equal(t, "oral", p.Route, "route falls back to the catalog entry")
	assert.True(t, p.IsSubstitutionAllowed)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), p.PrescribedDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PrescriptionsCreated))
}

func TestCreate_UnknownPatientOrMedicationIsInvalidReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd := f.createCommand(10)
	cmd.PatientID = uuid.New()
	_, err := f.svc.Create(ctx, cmd, prescriberActor(f.prescriberA))
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)

	cmd = f.createCommand(10)
	cmd.MedicationID = uuid.New()
	_, err = f.svc.Create(ctx, cmd, prescriberActor(f.prescriberA))
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.ErrorIs(t, err, medication.ErrMedicationNotFound)
}

func TestCreate_UnknownPrescriberIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.createCommand(10), prescriberActor(uuid.New()))

	assert.ErrorIs(t, err, prescriber.ErrPrescriberNotFound)
	assert.NotErrorIs(t, err, ErrInvalidReference)
}

func TestCreate_ValidationFailsFieldByField(t *testing.T) {
	f := newFixture(t)
	negative := -1
	cmd := &prescription.CreatePrescriptionCommand{RefillsAllowed: &negative}

	_, err := f.svc.Create(context.Background(), cmd, prescriberActor(f.prescriberA))

	var v *ValidationError
	require.ErrorAs(t, err, &v)
	for _, field := range []string{"patient_id", "medication_id", "dose", "dose_unit", "frequency", "start_date", "quantity_prescribed", "refills_allowed"} {
		assert.Contains(t, v.Fields, field)
	}
}

func TestCreate_WrongRoleIsForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.createCommand(10), pharmacistActor(f.pharmacistID))

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreate_RetriesOnNumberCollision(t *testing.T) {
	f := newFixture(t)
	f.repo.put(prescription.Prescription{Number: "RX-AAAAAAAA"})

	numbers := []string{"RX-AAAAAAAA", "RX-AAAAAAAA", "RX-BBBBBBBB"}
	f.svc.newNumber = func() string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	p := f.create(t, 10)

	assert.Equal(t, "RX-BBBBBBBB", p.Number)
	assert.Equal(t, 3, f.repo.createCalls)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.NumberCollisions))
}

func TestCreate_GivesUpAfterFiveCollisions(t *testing.T) {
	f := newFixture(t)
	f.repo.put(prescription.Prescription{Number: "RX-AAAAAAAA"})
	f.svc.newNumber = func() string { return "RX-AAAAAAAA" }

	_, err := f.svc.Create(context.Background(), f.createCommand(10), prescriberActor(f.prescriberA))

	assert.ErrorIs(t, err, prescription.ErrDuplicateNumber)
	assert.Equal(t, maxNumberAttempts, f.repo.createCalls)
}

func TestUpdate_OnlyCreatorMayUpdate(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, 90)
	dose := 500.0

	_, err := f.svc.Update(context.Background(), p.ID, &prescription.UpdatePrescriptionCommand{Dose: &dose}, prescriberActor(f.prescriberB))
	assert.ErrorIs(t, err, ErrForbidden)

	stored, _ := f.repo.GetByID(context.Background(), p.ID)
	assert.Equal(t, 850.0, stored.Dose)

	updated, err := f.svc.Update(context.Background(), p.ID, &prescription.UpdatePrescriptionCommand{Dose: &dose, ModificationReason: "renal function"}, prescriberActor(f.prescriberA))
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.Dose)
	assert.Equal(t, "BID", updated.Frequency)
}

func TestUpdate_TerminalPrescriptionIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 90)
	require.NoError(t, f.svc.Cancel(ctx, p.ID, "", prescriberActor(f.prescriberA)))

	notes := "too late"
	_, err := f.svc.Update(ctx, p.ID, &prescription.UpdatePrescriptionCommand{ClinicalNotes: &notes}, prescriberActor(f.prescriberA))

	assert.ErrorIs(t, err, prescription.ErrInvalidState)
}

func TestUpdate_MissingPrescriptionOrPrescriber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dose := 1.0

	_, err := f.svc.Update(ctx, uuid.New(), &prescription.UpdatePrescriptionCommand{Dose: &dose}, prescriberActor(f.prescriberA))
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)

	p := f.create(t, 10)
	_, err = f.svc.Update(ctx, p.ID, &prescription.UpdatePrescriptionCommand{Dose: &dose}, prescriberActor(uuid.New()))
	assert.ErrorIs(t, err, prescriber.ErrPrescriberNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 90)

	assert.ErrorIs(t, f.svc.Cancel(ctx, p.ID, "x", prescriberActor(f.prescriberB)), ErrForbidden)

	require.NoError(t, f.svc.Cancel(ctx, p.ID, "  ", prescriberActor(f.prescriberA)))
	stored, _ := f.repo.GetByID(ctx, p.ID)
	assert.Equal(t, prescription.StatusCancelled, stored.Status)
	assert.Equal(t, "No reason provided", stored.CancellationReason)
	assert.Equal(t, f.prescriberA, *stored.CancelledBy)
	assert.Equal(t, fixedNow, *stored.CancelledAt)

	err := f.svc.Cancel(ctx, p.ID, "again", prescriberActor(f.prescriberA))
	assert.ErrorIs(t, err, prescription.ErrInvalidState)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PrescriptionTransitions.WithLabelValues("CANCELLED")))
}

func TestDispense_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 90)
	chemist := pharmacistActor(f.pharmacistID)

	got, err := f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 30}, chemist)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusActive, got.Status)
	assert.Equal(t, 30, got.QuantityDispensed)

	got, err = f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 60}, chemist)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusCompleted, got.Status)
	assert.Equal(t, 90, got.QuantityDispensed)

	_, err = f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 1}, chemist)
	assert.ErrorIs(t, err, prescription.ErrInvalidState)

	history, err := f.svc.ListDispensations(ctx, p.ID, chemist)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 90.0, testutil.ToFloat64(f.metrics.UnitsDispensed))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PrescriptionTransitions.WithLabelValues("COMPLETED")))
}

func TestDispense_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 10)
	chemist := pharmacistActor(f.pharmacistID)

	_, err := f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 0}, chemist)
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "quantity")

	_, err = f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 11}, chemist)
	assert.ErrorIs(t, err, prescription.ErrExceedsPrescribed)

	_, err = f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: uuid.New(), Quantity: 1}, chemist)
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)

	_, err = f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 1}, prescriberActor(f.prescriberA))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Dispense(ctx, &prescription.DispenseCommand{PrescriptionID: p.ID, Quantity: 1}, pharmacistActor(uuid.New()))
	assert.ErrorIs(t, err, pharmacist.ErrPharmacistNotFound)
}

func TestListRefillEligible_ExactFilter(t *testing.T) {
	f := newFixture(t)
	yesterday := fixedNow.AddDate(0, 0, -1)
	tomorrow := fixedNow.AddDate(0, 0, 1)

	eligible := f.repo.put(prescription.Prescription{PatientID: f.patientID, Status: prescription.StatusActive, RefillsRemaining: 1, NextRefillEligibleDate: &yesterday})
	f.repo.put(prescription.Prescription{PatientID: f.patientID, Status: prescription.StatusActive, RefillsRemaining: 1, NextRefillEligibleDate: &tomorrow})
	f.repo.put(prescription.Prescription{PatientID: f.patientID, Status: prescription.StatusActive, RefillsRemaining: 0, NextRefillEligibleDate: &yesterday})
	f.repo.put(prescription.Prescription{PatientID: f.patientID, Status: prescription.StatusCancelled, RefillsRemaining: 1, NextRefillEligibleDate: &yesterday})
	f.repo.put(prescription.Prescription{PatientID: f.otherPatient, Status: prescription.StatusActive, RefillsRemaining: 1, NextRefillEligibleDate: &yesterday})

	out, err := f.svc.ListRefillEligible(context.Background(), patientActor(f.patientID))

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, eligible.ID, out[0].ID)
}

func TestPatientReads_OwnPrescriptionsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, 10)

	got, err := f.svc.GetForPatient(ctx, p.ID, patientActor(f.patientID))
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.svc.GetForPatient(ctx, p.ID, patientActor(f.otherPatient))
	assert.ErrorIs(t, err, ErrForbidden)

	active := prescription.StatusActive
	list, err := f.svc.ListForPatient(ctx, &active, patientActor(f.otherPatient))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.GetForPrescriber(ctx, p.ID, prescriberActor(f.prescriberB))
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)
}

func TestGetByNumber_NormalisesInput(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, 10)

	got, err := f.svc.GetByNumber(context.Background(), "  "+strings.ToLower(p.Number)+" ", pharmacistActor(f.pharmacistID))

	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestAuditEntriesFlushedOnShutdown(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, 10)
	_, err := f.svc.GetForPatient(context.Background(), p.ID, patientActor(f.patientID))
	require.NoError(t, err)

	auditSvc := NewAuditService(f.auditRepo, f.metrics, zap.NewNop())
	auditSvc.LogAsync(context.Background(), AuditEntry{Action: domain.ActionRead, ResourceType: "prescription"})
	auditSvc.Shutdown()
	f.auditSvc.Shutdown()

	entries := f.auditRepo.snapshot()
	require.Len(t, entries, 3)
	actions := map[domain.AuditAction]int{}
	for _, e := range entries {
		actions[e.Action]++
	}
	assert.Equal(t, 1, actions[domain.ActionCreate])
	assert.Equal(t, 2, actions[domain.ActionRead])
}
