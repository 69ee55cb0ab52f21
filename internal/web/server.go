package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Backend is every API call the web pages make. *Client implements it.
type Backend interface {
	API
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Me(ctx context.Context, token string) (*v1.IdentityResponse, error)
	MyPrescription(ctx context.Context, token string, id uuid.UUID) (*v1.PrescriptionResponse, error)
	AdherenceHistory(ctx context.Context, token string, id uuid.UUID) ([]v1.AdherenceRecordResponse, error)
	AdherenceSummary(ctx context.Context, token string, id uuid.UUID) (*service.Summary, error)
	RecordDose(ctx context.Context, token string, id uuid.UUID, status, notes, sideEffects string) error
	CreatePrescription(ctx context.Context, token string, p *NewPrescription) (*v1.PrescriptionResponse, error)
	CancelPrescription(ctx context.Context, token string, id uuid.UUID, reason string) error
	Dispense(ctx context.Context, token string, id uuid.UUID, quantity int, notes string) (*v1.PrescriptionResponse, error)
}

type page struct {
	Title    string
	Flash    *flash
	Identity *v1.IdentityResponse
	Data     any
}

const identityKey = "web_identity"

type Server struct {
	api      Backend
	log      *zap.Logger
	sessions sessions
}

func NewServer(api Backend, cfg config.WebConfig, log *zap.Logger) *Server {
	return &Server{
		api:      api,
		log:      log,
		sessions: sessions{name: cfg.CookieName, secure: cfg.CookieSecure},
	}
}

func parseTemplates() *template.Template {
	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"lower": strings.ToLower,
		"list":  func(items ...string) []string { return items },
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(parseTemplates())
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(s.log),
		middleware.Logger(s.log),
		pageHeaders(),
	)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)

	authed := r.Group("", s.requireSession())
	{
		authed.GET("/", s.dashboard)

		authed.GET("/prescriptions/:id", s.prescriptionDetail)
		authed.POST("/prescriptions/:id/take", s.recordDose)

		authed.POST("/prescriber/prescriptions", s.createPrescription)
		authed.POST("/prescriber/prescriptions/:id/cancel", s.cancelPrescription)

		authed.POST("/pharmacist/dispense", s.dispense)
	}
	return r
}

func pageHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

// requireSession resolves the cookie token to an identity or sends the
// browser to the login page.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.sessions.token(c)
		if token == "" {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		who, err := s.api.Me(c.Request.Context(), token)
		if err != nil {
			if IsUnauthorized(err) {
				s.sessions.end(c)
				s.sessions.setFlash(c, flashError, "Your session has expired. Please sign in again.")
				c.Redirect(http.StatusSeeOther, "/login")
				c.Abort()
				return
			}
			s.renderError(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, who)
		c.Next()
	}
}

func identity(c *gin.Context) *v1.IdentityResponse {
	who, _ := c.MustGet(identityKey).(*v1.IdentityResponse)
	return who
}

func (s *Server) render(c *gin.Context, status int, name, title string, data any) {
	c.HTML(status, name, page{
		Title:    title,
		Flash:    s.sessions.popFlash(c),
		Identity: identityOrNil(c),
		Data:     data,
	})
}

func identityOrNil(c *gin.Context) *v1.IdentityResponse {
	if v, ok := c.Get(identityKey); ok {
		who, _ := v.(*v1.IdentityResponse)
		return who
	}
	return nil
}

// renderError shows API failures as a page-level message. Server-side
// failures are logged and replaced with a generic text.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	message := "The medication service is unavailable. Please try again."

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		status, message = apiErr.Status, apiErr.Error()
	case errors.Is(err, ErrUnsupportedRole):
		status, message = http.StatusForbidden, "There is no dashboard for your account type."
	default:
		s.log.Error("api call failed", zap.Error(err), zap.String("request_id", middleware.RequestIDFrom(c)))
	}
	c.HTML(status, "error.html", page{Title: "Error", Identity: identityOrNil(c), Data: message})
}

// redirectWith stores the outcome of a form post and follows the
// post/redirect/get pattern.
func (s *Server) redirectWith(c *gin.Context, target string, err error, success string) {
	switch {
	case err == nil:
		s.sessions.setFlash(c, flashSuccess, success)
	case IsUnauthorized(err):
		s.sessions.end(c)
		s.sessions.setFlash(c, flashError, "Your session has expired. Please sign in again.")
		target = "/login"
	default:
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			s.sessions.setFlash(c, flashError, apiErr.Error())
		} else {
			s.log.Error("api call failed", zap.Error(err), zap.String("request_id", middleware.RequestIDFrom(c)))
			s.sessions.setFlash(c, flashError, "The medication service is unavailable. Please try again.")
		}
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) loginPage(c *gin.Context) {
	if s.sessions.token(c) != "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.render(c, http.StatusOK, "login.html", "Sign in", nil)
}

func (s *Server) login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		s.sessions.setFlash(c, flashError, "Email and password are required.")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	pair, err := s.api.Login(c.Request.Context(), email, password)
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
			s.sessions.setFlash(c, flashError, "Invalid email or password.")
		case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
			s.sessions.setFlash(c, flashError, apiErr.Error())
		default:
			s.log.Error("login call failed", zap.Error(err), zap.String("request_id", middleware.RequestIDFrom(c)))
			s.sessions.setFlash(c, flashError, "The medication service is unavailable. Please try again.")
		}
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	s.sessions.start(c, pair.AccessToken, pair.ExpiresAt)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) logout(c *gin.Context) {
	s.sessions.end(c)
	s.sessions.setFlash(c, flashSuccess, "You have been signed out.")
	c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) dashboard(c *gin.Context) {
	who := identity(c)
	d, err := BuildDashboard(c.Request.Context(), s.api, s.sessions.token(c), who, DashboardQuery{
		Status:    c.Query("status"),
		PatientID: c.Query("patient_id"),
		Number:    c.Query("number"),
		Search:    c.Query("q"),
	})
	if err != nil {
		if IsUnauthorized(err) {
			s.redirectWith(c, "/login", err, "")
			return
		}
		s.renderError(c, err)
		return
	}
	s.render(c, http.StatusOK, d.Template(), "Dashboard", d)
}

type prescriptionDetail struct {
	Prescription *v1.PrescriptionResponse
	History      []v1.AdherenceRecordResponse
	Summary      *service.Summary
	Statuses     []string
}

func (s *Server) prescriptionDetail(c *gin.Context) {
	if identity(c).Role != domain.RolePatient {
		s.renderError(c, ErrUnsupportedRole)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, &APIError{Status: http.StatusBadRequest, Message: "invalid prescription id"})
		return
	}

	ctx, token := c.Request.Context(), s.sessions.token(c)
	p, err := s.api.MyPrescription(ctx, token, id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	history, err := s.api.AdherenceHistory(ctx, token, id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	summary, err := s.api.AdherenceSummary(ctx, token, id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	s.render(c, http.StatusOK, "prescription.html", p.Number, prescriptionDetail{
		Prescription: p,
		History:      history,
		Summary:      summary,
		Statuses:     []string{"TAKEN", "LATE", "MISSED", "SKIPPED"},
	})
}

func (s *Server) recordDose(c *gin.Context) {
	raw := c.Param("id")
	target := "/prescriptions/" + url.PathEscape(raw)
	id, err := uuid.Parse(raw)
	if err != nil {
		s.redirectWith(c, "/", &APIError{Status: http.StatusBadRequest, Message: "invalid prescription id"}, "")
		return
	}

	err = s.api.RecordDose(c.Request.Context(), s.sessions.token(c), id,
		c.PostForm("status"), c.PostForm("notes"), c.PostForm("side_effects"))
	s.redirectWith(c, target, err, "Dose recorded.")
}

func (s *Server) createPrescription(c *gin.Context) {
	form := &NewPrescription{
		PatientID:    strings.TrimSpace(c.PostForm("patient_id")),
		MedicationID: c.PostForm("medication_id"),
		DoseUnit:     c.PostForm("dose_unit"),
		Frequency:    c.PostForm("frequency"),
		Instructions: c.PostForm("instructions"),
		StartDate:    c.PostForm("start_date"),
		QuantityUnit: c.PostForm("quantity_unit"),
	}
	form.Dose, _ = strconv.ParseFloat(c.PostForm("dose"), 64)
	form.QuantityPrescribed, _ = strconv.Atoi(c.PostForm("quantity_prescribed"))
	if end := c.PostForm("end_date"); end != "" {
		form.EndDate = &end
	}
	if raw := c.PostForm("refills_allowed"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			form.RefillsAllowed = &n
		}
	}

	p, err := s.api.CreatePrescription(c.Request.Context(), s.sessions.token(c), form)
	msg := ""
	if err == nil {
		msg = "Prescription " + p.Number + " created."
	}
	s.redirectWith(c, "/", err, msg)
}

func (s *Server) cancelPrescription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.redirectWith(c, "/", &APIError{Status: http.StatusBadRequest, Message: "invalid prescription id"}, "")
		return
	}
	err = s.api.CancelPrescription(c.Request.Context(), s.sessions.token(c), id, c.PostForm("reason"))
	s.redirectWith(c, "/", err, "Prescription cancelled.")
}

func (s *Server) dispense(c *gin.Context) {
	number := strings.TrimSpace(c.PostForm("number"))
	target := "/?number=" + url.QueryEscape(number)

	id, err := uuid.Parse(c.PostForm("prescription_id"))
	if err != nil {
		s.redirectWith(c, target, &APIError{Status: http.StatusBadRequest, Message: "invalid prescription id"}, "")
		return
	}
	quantity, err := strconv.Atoi(c.PostForm("quantity"))
	if err != nil {
		s.redirectWith(c, target, &APIError{Status: http.StatusBadRequest, Message: "quantity must be a whole number"}, "")
		return
	}

	p, err := s.api.Dispense(c.Request.Context(), s.sessions.token(c), id, quantity, c.PostForm("notes"))
	msg := ""
	if err == nil {
		msg = strconv.Itoa(quantity) + " units dispensed. Status: " + string(p.Status) + "."
	}
	s.redirectWith(c, target, err, msg)
}
