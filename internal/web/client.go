package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIError is a non-2xx answer from medication-api.
type APIError struct {
	Status      int               `json:"status"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors"`
}

func (e *APIError) Error() string {
	if len(e.FieldErrors) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.FieldErrors))
	for field, msg := range e.FieldErrors {
		parts = append(parts, field+" "+msg)
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

// IsUnauthorized reports whether err means the session token is no longer
// accepted.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// Client talks to medication-api on behalf of a signed-in user. It holds no
// per-user state; every call takes the caller's access token.
type Client struct {
	http *resty.Client
}

func NewClient(cfg config.WebConfig, log *zap.Logger) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
		SetTimeout(cfg.APITimeout).
		SetHeader("Accept", "application/json").
		SetLogger(log.Named("api-client").Sugar())
	return &Client{http: rc}
}

func call[T any](ctx context.Context, c *Client, method, path, token string, body any, query map[string]string) (T, error) {
	var out envelope[T]
	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&APIError{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	for k, v := range query {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return out.Data, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr.Message == "" {
			apiErr = &APIError{Message: http.StatusText(resp.StatusCode())}
		}
		apiErr.Status = resp.StatusCode()
		return out.Data, apiErr
	}
	return out.Data, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	return call[*domain.TokenPair](ctx, c, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

func (c *Client) Me(ctx context.Context, token string) (*v1.IdentityResponse, error) {
	return call[*v1.IdentityResponse](ctx, c, http.MethodGet, "/api/v1/auth/me", token, nil, nil)
}

func (c *Client) Medications(ctx context.Context, token, name string) ([]*v1.MedicationResponse, error) {
	return call[[]*v1.MedicationResponse](ctx, c, http.MethodGet, "/api/v1/medications", token, nil, map[string]string{"name": name})
}

// Patient

func (c *Client) MyPrescriptions(ctx context.Context, token, status string) ([]*v1.PrescriptionResponse, error) {
	return call[[]*v1.PrescriptionResponse](ctx, c, http.MethodGet, "/api/v1/prescriptions", token, nil, map[string]string{"status": status})
}

func (c *Client) RefillEligible(ctx context.Context, token string) ([]*v1.PrescriptionResponse, error) {
	return call[[]*v1.PrescriptionResponse](ctx, c, http.MethodGet, "/api/v1/prescriptions/refill-eligible", token, nil, nil)
}

func (c *Client) MyPrescription(ctx context.Context, token string, id uuid.UUID) (*v1.PrescriptionResponse, error) {
	return call[*v1.PrescriptionResponse](ctx, c, http.MethodGet, "/api/v1/prescriptions/"+id.String(), token, nil, nil)
}

func (c *Client) AdherenceHistory(ctx context.Context, token string, id uuid.UUID) ([]v1.AdherenceRecordResponse, error) {
	return call[[]v1.AdherenceRecordResponse](ctx, c, http.MethodGet, "/api/v1/prescriptions/"+id.String()+"/adherence", token, nil, nil)
}

func (c *Client) AdherenceSummary(ctx context.Context, token string, id uuid.UUID) (*service.Summary, error) {
	return call[*service.Summary](ctx, c, http.MethodGet, "/api/v1/prescriptions/"+id.String()+"/adherence/summary", token, nil, nil)
}

func (c *Client) RecordDose(ctx context.Context, token string, id uuid.UUID, status, notes, sideEffects string) error {
	_, err := call[v1.AdherenceRecordResponse](ctx, c, http.MethodPost, "/api/v1/prescriptions/"+id.String()+"/take", token, map[string]string{
		"status":       status,
		"notes":        notes,
		"side_effects": sideEffects,
	}, nil)
	return err
}

// Prescriber

// NewPrescription is the subset of the create request the web form collects.
type NewPrescription struct {
	PatientID          string  `json:"patient_id"`
	MedicationID       string  `json:"medication_id"`
	Dose               float64 `json:"dose"`
	DoseUnit           string  `json:"dose_unit"`
	Frequency          string  `json:"frequency"`
	Instructions       string  `json:"instructions,omitempty"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date,omitempty"`
	QuantityPrescribed int     `json:"quantity_prescribed"`
	QuantityUnit       string  `json:"quantity_unit,omitempty"`
	RefillsAllowed     *int    `json:"refills_allowed,omitempty"`
}

func (c *Client) IssuedPrescriptions(ctx context.Context, token, patientID string) ([]*v1.PrescriptionResponse, error) {
	return call[[]*v1.PrescriptionResponse](ctx, c, http.MethodGet, "/api/v1/prescriber/prescriptions", token, nil, map[string]string{"patient_id": patientID})
}

func (c *Client) CreatePrescription(ctx context.Context, token string, p *NewPrescription) (*v1.PrescriptionResponse, error) {
	return call[*v1.PrescriptionResponse](ctx, c, http.MethodPost, "/api/v1/prescriber/prescriptions", token, p, nil)
}

func (c *Client) CancelPrescription(ctx context.Context, token string, id uuid.UUID, reason string) error {
	_, err := call[struct{}](ctx, c, http.MethodDelete, "/api/v1/prescriber/prescriptions/"+id.String(), token, map[string]string{"reason": reason}, nil)
	return err
}

// Pharmacist

func (c *Client) LookupByNumber(ctx context.Context, token, number string) (*v1.PrescriptionResponse, error) {
	return call[*v1.PrescriptionResponse](ctx, c, http.MethodGet, "/api/v1/pharmacist/prescriptions/by-number/"+url.PathEscape(strings.TrimSpace(number)), token, nil, nil)
}

func (c *Client) Dispense(ctx context.Context, token string, id uuid.UUID, quantity int, notes string) (*v1.PrescriptionResponse, error) {
	return call[*v1.PrescriptionResponse](ctx, c, http.MethodPost, "/api/v1/pharmacist/prescriptions/dispense", token, map[string]any{
		"prescription_id": id,
		"quantity":        quantity,
		"notes":           notes,
	}, nil)
}

func (c *Client) Dispensations(ctx context.Context, token string, id uuid.UUID) ([]v1.DispensationResponse, error) {
	return call[[]v1.DispensationResponse](ctx, c, http.MethodGet, "/api/v1/pharmacist/prescriptions/"+id.String()+"/dispensations", token, nil, nil)
}
