package web

import (
	"context"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDashboard_PerRole(t *testing.T) {
	rx := &v1.PrescriptionResponse{ID: uuid.New(), Number: "RX-SEED0001", Status: "ACTIVE"}
	api := &fakeAPI{
		prescriptions: []*v1.PrescriptionResponse{rx},
		medications:   []*v1.MedicationResponse{{TradeName: "Alvedon"}},
		byNumber:      map[string]*v1.PrescriptionResponse{"RX-SEED0001": rx},
	}
	ctx := context.Background()

	d, err := BuildDashboard(ctx, api, "tok", &v1.IdentityResponse{Role: domain.RolePatient}, DashboardQuery{})
	require.NoError(t, err)
	patient, ok := d.(PatientDashboard)
	require.True(t, ok)
	assert.Equal(t, "ACTIVE", api.gotStatus)
	assert.Len(t, patient.Prescriptions, 1)
	assert.Equal(t, "patient.html", d.Template())

	d, err = BuildDashboard(ctx, api, "tok", &v1.IdentityResponse{Role: domain.RolePrescriber}, DashboardQuery{PatientID: "p-1"})
	require.NoError(t, err)
	prescriber, ok := d.(PrescriberDashboard)
	require.True(t, ok)
	assert.Equal(t, "p-1", api.gotPatient)
	assert.Len(t, prescriber.Medications, 1)

	d, err = BuildDashboard(ctx, api, "tok", &v1.IdentityResponse{Role: domain.RolePharmacist}, DashboardQuery{Number: "RX-SEED0001"})
	require.NoError(t, err)
	pharmacist, ok := d.(PharmacistDashboard)
	require.True(t, ok)
	assert.Equal(t, rx, pharmacist.Found)
	assert.Len(t, pharmacist.Dispensations, 1)
}

func TestBuildDashboard_LookupMissIsShownNotFatal(t *testing.T) {
	api := &fakeAPI{}
	d, err := BuildDashboard(context.Background(), api, "tok", &v1.IdentityResponse{Role: domain.RolePharmacist}, DashboardQuery{Number: "RX-NOPE"})
	require.NoError(t, err)
	pharmacist := d.(PharmacistDashboard)
	assert.Nil(t, pharmacist.Found)
	assert.Equal(t, "prescription not found", pharmacist.LookupError)
}

func TestBuildDashboard_UnknownRole(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleAdmin, "nurse"} {
		_, err := BuildDashboard(context.Background(), &fakeAPI{}, "tok", &v1.IdentityResponse{Role: role}, DashboardQuery{})
		assert.ErrorIs(t, err, ErrUnsupportedRole, role)
	}
}
