package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCookie = "medication_session"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(api *fakeAPI) *gin.Engine {
	return NewServer(api, config.WebConfig{CookieName: testCookie}, zap.NewNop()).Routes()
}

func get(r *gin.Engine, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postForm(r *gin.Engine, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func session() *http.Cookie {
	return &http.Cookie{Name: testCookie, Value: "tok"}
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	r := newTestServer(&fakeAPI{})

	rec := postForm(r, "/login", url.Values{"email": {"sara@example.test"}, "password": {"pw"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	c := cookieNamed(rec, testCookie)
	require.NotNil(t, c)
	assert.Equal(t, "access-token", c.Value)
	assert.True(t, c.HttpOnly)
}

func TestLogin_FailureFlashes(t *testing.T) {
	r := newTestServer(&fakeAPI{err: &APIError{Status: http.StatusUnauthorized, Message: "invalid credentials"}})

	rec := postForm(r, "/login", url.Values{"email": {"sara@example.test"}, "password": {"bad"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Nil(t, cookieNamed(rec, testCookie))

	flash := cookieNamed(rec, flashCookie)
	require.NotNil(t, flash)

	page := get(r, "/login", flash)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Invalid email or password.")
}

func TestDashboard_RequiresSession(t *testing.T) {
	r := newTestServer(&fakeAPI{})
	rec := get(r, "/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDashboard_ExpiredTokenClearsSession(t *testing.T) {
	r := newTestServer(&fakeAPI{meErr: &APIError{Status: http.StatusUnauthorized, Message: "token expired"}})

	rec := get(r, "/", session())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	c := cookieNamed(rec, testCookie)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

func TestDashboard_RendersPatientView(t *testing.T) {
	api := &fakeAPI{
		identity: &v1.IdentityResponse{Name: "Sara Nilsson", Role: domain.RolePatient},
		prescriptions: []*v1.PrescriptionResponse{{
			ID: uuid.New(), Number: "RX-SEED0001", Status: "ACTIVE",
			Medication: &v1.MedicationResponse{TradeName: "Alvedon", Strength: "500 mg"},
		}},
	}
	r := newTestServer(api)

	rec := get(r, "/?status=ALL", session())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "RX-SEED0001")
	assert.Contains(t, body, "Alvedon")
	assert.Contains(t, body, "Sara Nilsson")
	assert.Equal(t, "ALL", api.gotStatus)
}

func TestDashboard_RendersPharmacistLookup(t *testing.T) {
	rx := &v1.PrescriptionResponse{ID: uuid.New(), Number: "RX-SEED0001", Status: "ACTIVE", QuantityPrescribed: 30}
	api := &fakeAPI{
		identity: &v1.IdentityResponse{Name: "Erik Berg", Role: domain.RolePharmacist},
		byNumber: map[string]*v1.PrescriptionResponse{"RX-SEED0001": rx},
	}
	r := newTestServer(api)

	rec := get(r, "/?number=RX-SEED0001", session())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/pharmacist/dispense"`)
}

func TestDashboard_AdminHasNoDashboard(t *testing.T) {
	r := newTestServer(&fakeAPI{identity: &v1.IdentityResponse{Role: domain.RoleAdmin}})
	rec := get(r, "/", session())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboard_BackendFailureIsGeneric(t *testing.T) {
	api := &fakeAPI{
		identity: &v1.IdentityResponse{Role: domain.RolePrescriber},
		err:      errors.New("dial tcp 10.0.0.5:8081: connection refused"),
	}
	r := newTestServer(api)

	rec := get(r, "/", session())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestForms(t *testing.T) {
	api := &fakeAPI{identity: &v1.IdentityResponse{Role: domain.RolePharmacist}}
	r := newTestServer(api)

	rec := postForm(r, "/pharmacist/dispense", url.Values{
		"prescription_id": {uuid.NewString()}, "number": {"RX-SEED0001"}, "quantity": {"30"},
	}, session())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?number=RX-SEED0001", rec.Header().Get("Location"))
	assert.Equal(t, 30, api.gotDispense)
	require.NotNil(t, cookieNamed(rec, flashCookie))

	rec = postForm(r, "/pharmacist/dispense", url.Values{
		"prescription_id": {uuid.NewString()}, "quantity": {"lots"},
	}, session())
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = postForm(r, "/prescriber/prescriptions/"+uuid.NewString()+"/cancel", url.Values{"reason": {"duplicate"}}, session())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "duplicate", api.gotReason)

	rec = postForm(r, "/prescriber/prescriptions", url.Values{
		"patient_id": {uuid.NewString()}, "medication_id": {uuid.NewString()},
		"dose": {"500"}, "dose_unit": {"mg"}, "frequency": {"BID"},
		"start_date": {"2026-03-01"}, "quantity_prescribed": {"60"}, "refills_allowed": {"2"},
	}, session())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.NotNil(t, api.gotCreate)
	assert.Equal(t, 500.0, api.gotCreate.Dose)
	assert.Equal(t, 60, api.gotCreate.QuantityPrescribed)
	assert.Equal(t, 2, *api.gotCreate.RefillsAllowed)
	assert.Nil(t, api.gotCreate.EndDate)

	id := uuid.NewString()
	rec = postForm(r, "/prescriptions/"+id+"/take", url.Values{"status": {"TAKEN"}}, session())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/prescriptions/"+id, rec.Header().Get("Location"))
	assert.Equal(t, "TAKEN", api.gotDose)
}

func TestPrescriptionDetail(t *testing.T) {
	rx := &v1.PrescriptionResponse{ID: uuid.New(), Number: "RX-SEED0001", Status: "ACTIVE", PrescriberName: "Anna Lind"}
	api := &fakeAPI{
		identity:      &v1.IdentityResponse{Role: domain.RolePatient},
		prescriptions: []*v1.PrescriptionResponse{rx},
	}
	r := newTestServer(api)

	rec := get(r, "/prescriptions/"+rx.ID.String(), session())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Anna Lind")
	assert.Contains(t, rec.Body.String(), "Record a dose")

	rec = get(r, "/prescriptions/"+uuid.NewString(), session())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
