package v1

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/pharmacist"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	Status      int               `json:"status"`
	Error       string            `json:"error"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func init() {
	// Report binding failures under the JSON field name the client sent.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	})
}

func respondValidation(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Timestamp:   time.Now().UTC(),
		Status:      http.StatusBadRequest,
		Error:       http.StatusText(http.StatusBadRequest),
		Message:     "validation failed",
		FieldErrors: fields,
	})
}

// respondServiceError is the single place service errors become HTTP
// statuses. Unknown errors are logged and never echoed.
func respondServiceError(c *gin.Context, log *zap.Logger, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		respondValidation(c, validErr.Fields)
		return
	}

	switch {
	// Checked before not-found: a missing patient or medication named in
	// the request body is the client's mistake, not a missing resource.
	case errors.Is(err, service.ErrInvalidReference):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, prescriber.ErrPrescriberNotFound),
		errors.Is(err, pharmacist.ErrPharmacistNotFound),
		errors.Is(err, medication.ErrMedicationNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, domain.ErrEmailTaken):
		respondError(c, http.StatusConflict, err.Error())

	case errors.Is(err, prescription.ErrInvalidState),
		errors.Is(err, adherence.ErrInvalidStatus),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, patient.ErrInvalidDateOfBirth),
		errors.Is(err, patient.ErrNationalIDRequired):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "access denied")

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive):
		respondError(c, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, service.ErrAccountLocked):
		respondError(c, http.StatusTooManyRequests, "account temporarily locked")

	default:
		log.Error("unhandled service error",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.String("path", c.FullPath()),
		)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// bindJSON answers 400 itself and reports false when the body is unusable.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondValidation(c, fieldErrors(verrs))
			return false
		}
		respondError(c, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " long"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the service caller from the verified token. Routes using
// it are always behind middleware.Auth.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims, c.ClientIP(), middleware.RequestIDFrom(c)), true
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
