package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/google/uuid"
)

var ErrUnsupportedRole = errors.New("no dashboard for role")

// Dashboard is one of PatientDashboard, PrescriberDashboard or
// PharmacistDashboard.
type Dashboard interface {
	Template() string
	isDashboard()
}

type PatientDashboard struct {
	Identity       *v1.IdentityResponse
	Status         string
	Prescriptions  []*v1.PrescriptionResponse
	RefillEligible []*v1.PrescriptionResponse
}

type PrescriberDashboard struct {
	Identity      *v1.IdentityResponse
	PatientFilter string
	Prescriptions []*v1.PrescriptionResponse
	Medications   []*v1.MedicationResponse
}

type PharmacistDashboard struct {
	Identity      *v1.IdentityResponse
	Number        string
	Found         *v1.PrescriptionResponse
	Dispensations []v1.DispensationResponse
	LookupError   string
	Medications   []*v1.MedicationResponse
	Search        string
}

func (PatientDashboard) Template() string    { return "patient.html" }
func (PrescriberDashboard) Template() string { return "prescriber.html" }
func (PharmacistDashboard) Template() string { return "pharmacist.html" }

func (PatientDashboard) isDashboard()    {}
func (PrescriberDashboard) isDashboard() {}
func (PharmacistDashboard) isDashboard() {}

// DashboardQuery carries the optional filters a dashboard page accepts.
type DashboardQuery struct {
	Status    string
	PatientID string
	Number    string
	Search    string
}

// API is the part of Client the dashboards read from.
type API interface {
	Medications(ctx context.Context, token, name string) ([]*v1.MedicationResponse, error)
	MyPrescriptions(ctx context.Context, token, status string) ([]*v1.PrescriptionResponse, error)
	RefillEligible(ctx context.Context, token string) ([]*v1.PrescriptionResponse, error)
	IssuedPrescriptions(ctx context.Context, token, patientID string) ([]*v1.PrescriptionResponse, error)
	LookupByNumber(ctx context.Context, token, number string) (*v1.PrescriptionResponse, error)
	Dispensations(ctx context.Context, token string, id uuid.UUID) ([]v1.DispensationResponse, error)
}

// BuildDashboard selects the view model for the caller's role.
func BuildDashboard(ctx context.Context, api API, token string, who *v1.IdentityResponse, q DashboardQuery) (Dashboard, error) {
	switch who.Role {
	case domain.RolePatient:
		status := q.Status
		if status == "" {
			status = "ACTIVE"
		}
		list, err := api.MyPrescriptions(ctx, token, status)
		if err != nil {
			return nil, err
		}
		refills, err := api.RefillEligible(ctx, token)
		if err != nil {
			return nil, err
		}
		return PatientDashboard{Identity: who, Status: status, Prescriptions: list, RefillEligible: refills}, nil

	case domain.RolePrescriber:
		list, err := api.IssuedPrescriptions(ctx, token, q.PatientID)
		if err != nil {
			return nil, err
		}
		meds, err := api.Medications(ctx, token, "")
		if err != nil {
			return nil, err
		}
		return PrescriberDashboard{Identity: who, PatientFilter: q.PatientID, Prescriptions: list, Medications: meds}, nil

	case domain.RolePharmacist:
		d := PharmacistDashboard{Identity: who, Number: q.Number, Search: q.Search}
		meds, err := api.Medications(ctx, token, q.Search)
		if err != nil {
			return nil, err
		}
		d.Medications = meds
		if q.Number != "" {
			found, err := api.LookupByNumber(ctx, token, q.Number)
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError && apiErr.Status != http.StatusUnauthorized {
				d.LookupError = apiErr.Message
				return d, nil
			}
			if err != nil {
				return nil, err
			}
			d.Found = found
			if d.Dispensations, err = api.Dispensations(ctx, token, found.ID); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnsupportedRole, who.Role)
}
