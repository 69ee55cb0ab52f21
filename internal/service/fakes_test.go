package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/pharmacist"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/google/uuid"
)

type fakePrescriptions struct {
	mu            sync.Mutex
	byID          map[uuid.UUID]prescription.Prescription
	dispensations []*prescription.Dispensation
	createCalls   int
}

func newFakePrescriptions() *fakePrescriptions {
	return &fakePrescriptions{byID: map[uuid.UUID]prescription.Prescription{}}
}

func (f *fakePrescriptions) Create(_ context.Context, p *prescription.Prescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	for _, existing := range f.byID {
		if existing.Number == p.Number {
			return prescription.ErrDuplicateNumber
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.byID[p.ID] = *p
	return nil
}

func (f *fakePrescriptions) put(p prescription.Prescription) prescription.Prescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.byID[p.ID] = p
	return p
}

func (f *fakePrescriptions) GetByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, prescription.ErrPrescriptionNotFound
	}
	return &p, nil
}

func (f *fakePrescriptions) GetByNumber(_ context.Context, number string) (*prescription.Prescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Number == number {
			return &p, nil
		}
	}
	return nil, prescription.ErrPrescriptionNotFound
}

// Mutate works on a copy so a failing fn leaves the stored row untouched,
// as a rolled-back transaction would.
func (f *fakePrescriptions) Mutate(_ context.Context, id uuid.UUID, fn prescription.MutateFunc) (*prescription.Prescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, prescription.ErrPrescriptionNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	f.byID[id] = p
	return &p, nil
}

func (f *fakePrescriptions) Dispense(ctx context.Context, d *prescription.Dispensation, fn prescription.MutateFunc) (*prescription.Prescription, error) {
	p, err := f.Mutate(ctx, d.PrescriptionID, fn)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.dispensations = append(f.dispensations, d)
	f.mu.Unlock()
	return p, nil
}

func (f *fakePrescriptions) List(_ context.Context, q *prescription.ListPrescriptionsQuery) ([]*prescription.Prescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range f.byID {
		if q.PatientID != nil && p.PatientID != *q.PatientID {
			continue
		}
		if q.PrescriberID != nil && p.PrescriberID != *q.PrescriberID {
			continue
		}
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func (f *fakePrescriptions) ListRefillEligible(_ context.Context, patientID uuid.UUID, today time.Time) ([]*prescription.Prescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range f.byID {
		if p.PatientID == patientID && p.IsRefillEligible(today) {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f *fakePrescriptions) ListDispensations(_ context.Context, id uuid.UUID) ([]*prescription.Dispensation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*prescription.Dispensation
	for _, d := range f.dispensations {
		if d.PrescriptionID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakePatients struct {
	byID    map[uuid.UUID]*patient.Patient
	users   []*domain.User
	hashes  map[string]bool
	created int
}

func newFakePatients(ids ...uuid.UUID) *fakePatients {
	f := &fakePatients{byID: map[uuid.UUID]*patient.Patient{}, hashes: map[string]bool{}}
	for _, id := range ids {
		f.byID[id] = &patient.Patient{ID: id, FirstName: "Sara", LastName: "Nilsson"}
	}
	return f
}

func (f *fakePatients) Create(_ context.Context, p *patient.Patient, u *domain.User) error {
	f.created++
	f.byID[p.ID] = p
	f.users = append(f.users, u)
	f.hashes[p.NationalIDHash] = true
	return nil
}

func (f *fakePatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (f *fakePatients) GetByUserID(_ context.Context, userID uuid.UUID) (*patient.Patient, error) {
	for _, p := range f.byID {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (f *fakePatients) ExistsByNationalIDHash(_ context.Context, hash string) (bool, error) {
	return f.hashes[hash], nil
}

type fakeMedications map[uuid.UUID]*medication.Medication

func (f fakeMedications) Create(_ context.Context, m *medication.Medication) error {
	f[m.ID] = m
	return nil
}

func (f fakeMedications) GetByID(_ context.Context, id uuid.UUID) (*medication.Medication, error) {
	m, ok := f[id]
	if !ok {
		return nil, medication.ErrMedicationNotFound
	}
	return m, nil
}

func (f fakeMedications) List(context.Context, *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	out := make([]*medication.Medication, 0, len(f))
	for _, m := range f {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeName < out[j].TradeName })
	return out, nil
}

type fakePrescribers map[uuid.UUID]*prescriber.Prescriber

func (f fakePrescribers) Create(_ context.Context, p *prescriber.Prescriber) error {
	f[p.ID] = p
	return nil
}

func (f fakePrescribers) GetByID(_ context.Context, id uuid.UUID) (*prescriber.Prescriber, error) {
	p, ok := f[id]
	if !ok {
		return nil, prescriber.ErrPrescriberNotFound
	}
	return p, nil
}

func (f fakePrescribers) GetByUserID(_ context.Context, userID uuid.UUID) (*prescriber.Prescriber, error) {
	for _, p := range f {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, prescriber.ErrPrescriberNotFound
}

type fakePharmacists map[uuid.UUID]*pharmacist.Pharmacist

func (f fakePharmacists) Create(_ context.Context, p *pharmacist.Pharmacist) error {
	f[p.ID] = p
	return nil
}

func (f fakePharmacists) GetByID(_ context.Context, id uuid.UUID) (*pharmacist.Pharmacist, error) {
	p, ok := f[id]
	if !ok {
		return nil, pharmacist.ErrPharmacistNotFound
	}
	return p, nil
}

type fakeAdherence struct {
	records []*adherence.Record
}

func (f *fakeAdherence) Create(_ context.Context, r *adherence.Record) error {
	r.ID = uuid.New()
	f.records = append(f.records, r)
	return nil
}

func (f *fakeAdherence) ListByPrescription(_ context.Context, id uuid.UUID) ([]*adherence.Record, error) {
	var out []*adherence.Record
	for _, r := range f.records {
		if r.PrescriptionID == id {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.After(out[j].ScheduledTime) })
	return out, nil
}

func (f *fakeAdherence) CountByStatus(_ context.Context, id uuid.UUID) (map[adherence.Status]int64, error) {
	counts := map[adherence.Status]int64{}
	for _, r := range f.records {
		if r.PrescriptionID == id {
			counts[r.Status]++
		}
	}
	return counts, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (f *fakeAuditRepo) CreateBatch(_ context.Context, entries []*domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeAuditRepo) snapshot() []*domain.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.AuditLog(nil), f.entries...)
}

type fakeUsers struct {
	byID map[uuid.UUID]*domain.User
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) RecordLoginFailure(_ context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error {
	u := f.byID[id]
	u.FailedLoginCount++
	if u.FailedLoginCount >= maxAttempts {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	return nil
}

func (f *fakeUsers) RecordLoginSuccess(_ context.Context, id uuid.UUID) error {
	u := f.byID[id]
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.byID[id].PasswordHash = hash
	return nil
}
