package web

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/google/uuid"
)

// fakeAPI is an in-memory Backend. Setting err makes every call fail.
type fakeAPI struct {
	identity      *v1.IdentityResponse
	prescriptions []*v1.PrescriptionResponse
	medications   []*v1.MedicationResponse
	byNumber      map[string]*v1.PrescriptionResponse
	err           error
	meErr         error

	gotStatus   string
	gotPatient  string
	gotDispense int
	gotDose     string
	gotReason   string
	gotCreate   *NewPrescription
}

func (f *fakeAPI) Login(context.Context, string, string) (*domain.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TokenPair{AccessToken: "access-token", ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func (f *fakeAPI) Me(context.Context, string) (*v1.IdentityResponse, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.identity, nil
}

func (f *fakeAPI) Medications(context.Context, string, string) ([]*v1.MedicationResponse, error) {
	return f.medications, f.err
}

func (f *fakeAPI) MyPrescriptions(_ context.Context, _ string, status string) ([]*v1.PrescriptionResponse, error) {
	f.gotStatus = status
	return f.prescriptions, f.err
}

func (f *fakeAPI) RefillEligible(context.Context, string) ([]*v1.PrescriptionResponse, error) {
	return nil, f.err
}

func (f *fakeAPI) IssuedPrescriptions(_ context.Context, _ string, patientID string) ([]*v1.PrescriptionResponse, error) {
	f.gotPatient = patientID
	return f.prescriptions, f.err
}

func (f *fakeAPI) LookupByNumber(_ context.Context, _ string, number string) (*v1.PrescriptionResponse, error) {
	if p, ok := f.byNumber[number]; ok {
		return p, nil
	}
	return nil, &APIError{Status: 404, Message: "prescription not found"}
}

func (f *fakeAPI) Dispensations(context.Context, string, uuid.UUID) ([]v1.DispensationResponse, error) {
	return []v1.DispensationResponse{{Quantity: 10}}, f.err
}

func (f *fakeAPI) MyPrescription(_ context.Context, _ string, id uuid.UUID) (*v1.PrescriptionResponse, error) {
	for _, p := range f.prescriptions {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, &APIError{Status: 404, Message: "prescription not found"}
}

func (f *fakeAPI) AdherenceHistory(context.Context, string, uuid.UUID) ([]v1.AdherenceRecordResponse, error) {
	return nil, f.err
}

func (f *fakeAPI) AdherenceSummary(_ context.Context, _ string, id uuid.UUID) (*service.Summary, error) {
	return &service.Summary{PrescriptionID: id}, f.err
}

func (f *fakeAPI) RecordDose(_ context.Context, _ string, _ uuid.UUID, status, _, _ string) error {
	f.gotDose = status
	return f.err
}

func (f *fakeAPI) CreatePrescription(_ context.Context, _ string, p *NewPrescription) (*v1.PrescriptionResponse, error) {
	f.gotCreate = p
	if f.err != nil {
		return nil, f.err
	}
	return &v1.PrescriptionResponse{Number: "RX-NEW00001"}, nil
}

func (f *fakeAPI) CancelPrescription(_ context.Context, _ string, _ uuid.UUID, reason string) error {
	f.gotReason = reason
	return f.err
}

func (f *fakeAPI) Dispense(_ context.Context, _ string, _ uuid.UUID, quantity int, _ string) (*v1.PrescriptionResponse, error) {
	f.gotDispense = quantity
	if f.err != nil {
		return nil, f.err
	}
	return &v1.PrescriptionResponse{Status: "COMPLETED"}, nil
}

var _ Backend = (*fakeAPI)(nil)
var _ Backend = (*Client)(nil)
