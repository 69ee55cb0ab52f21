package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adherenceFixture struct {
	svc           *AdherenceService
	records       *fakeAdherence
	prescriptions *fakePrescriptions
	patientX      uuid.UUID
	patientY      uuid.UUID
	rxOfX         prescription.Prescription
	rxOfY         prescription.Prescription
}

func newAdherenceFixture(t *testing.T) *adherenceFixture {
	t.Helper()
	f := &adherenceFixture{
		records:       &fakeAdherence{},
		prescriptions: newFakePrescriptions(),
		patientX:      uuid.New(),
		patientY:      uuid.New(),
	}
	f.rxOfX = f.prescriptions.put(prescription.Prescription{PatientID: f.patientX, Status: prescription.StatusActive, Dose: 850, DoseUnit: "mg"})
	f.rxOfY = f.prescriptions.put(prescription.Prescription{PatientID: f.patientY, Status: prescription.StatusActive, Dose: 10, DoseUnit: "mg"})

	m := metrics.NewCollector("test", prometheus.NewRegistry())
	auditSvc := NewAuditService(&fakeAuditRepo{}, m, zap.NewNop())
	t.Cleanup(auditSvc.Shutdown)

	f.svc = NewAdherenceService(f.records, f.prescriptions, newFakePatients(f.patientX, f.patientY), auditSvc, m, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestRecord_CopiesDosingAndTimestamps(t *testing.T) {
	f := newAdherenceFixture(t)

	rec, err := f.svc.Record(context.Background(), &adherence.RecordCommand{
		PrescriptionID: f.rxOfX.ID,
		Status:         adherence.StatusTaken,
		Notes:          "with breakfast",
		SideEffects:    "mild nausea",
	}, patientActor(f.patientX))

	require.NoError(t, err)
	assert.Equal(t, f.patientX, rec.PatientID)
	assert.Equal(t, fixedNow, rec.ScheduledTime)
	assert.Equal(t, fixedNow, rec.ActualTime)
	assert.Equal(t, 850.0, rec.DoseTaken)
	assert.Equal(t, "mg", rec.DoseUnit)
	assert.Equal(t, adherence.SourcePatientReported, rec.Source)
	assert.Equal(t, "mild nausea", rec.SideEffectsReported)
}

func TestRecord_AgainstAnotherPatientsPrescription(t *testing.T) {
	f := newAdherenceFixture(t)

	_, err := f.svc.Record(context.Background(), &adherence.RecordCommand{
		PrescriptionID: f.rxOfY.ID,
		PatientID:      f.patientY,
		Status:         adherence.StatusTaken,
	}, patientActor(f.patientX))

	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Empty(t, f.records.records)
}

func TestRecord_NotFoundAndValidation(t *testing.T) {
	f := newAdherenceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, &adherence.RecordCommand{PrescriptionID: uuid.New(), Status: adherence.StatusTaken}, patientActor(f.patientX))
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)

	_, err = f.svc.Record(ctx, &adherence.RecordCommand{PrescriptionID: f.rxOfX.ID, Status: adherence.StatusTaken}, patientActor(uuid.New()))
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)

	_, err = f.svc.Record(ctx, &adherence.RecordCommand{PrescriptionID: f.rxOfX.ID, Status: "FORGOT"}, patientActor(f.patientX))
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "status")
}

func TestHistoryAndSummary(t *testing.T) {
	f := newAdherenceFixture(t)
	ctx := context.Background()
	actor := patientActor(f.patientX)

	for i, st := range []adherence.Status{adherence.StatusTaken, adherence.StatusMissed, adherence.StatusTaken} {
		at := fixedNow.Add(time.Duration(i) * time.Hour)
		f.svc.now = func() time.Time { return at }
		_, err := f.svc.Record(ctx, &adherence.RecordCommand{PrescriptionID: f.rxOfX.ID, Status: st}, actor)
		require.NoError(t, err)
	}

	history, err := f.svc.History(ctx, f.rxOfX.ID, actor)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].ScheduledTime.After(history[1].ScheduledTime))
	assert.True(t, history[1].ScheduledTime.After(history[2].ScheduledTime))

	summary, err := f.svc.Summary(ctx, f.rxOfX.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(2), summary.Counts[adherence.StatusTaken])
	assert.Equal(t, int64(1), summary.Counts[adherence.StatusMissed])
	assert.Contains(t, summary.Counts, adherence.StatusLate)

	_, err = f.svc.History(ctx, f.rxOfX.ID, patientActor(f.patientY))
	assert.ErrorIs(t, err, ErrForbidden)
}
