package v1

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/adherence"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/google/uuid"
)

// Requests

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type registerPatientRequest struct {
	LoginEmail         string                    `json:"login_email" binding:"required,email"`
	InitialPassword    string                    `json:"initial_password" binding:"required"`
	NationalID         string                    `json:"national_id" binding:"required"`
	FirstName          string                    `json:"first_name" binding:"required,max=100"`
	LastName           string                    `json:"last_name" binding:"required,max=100"`
	DateOfBirth        string                    `json:"date_of_birth" binding:"required,datetime=2006-01-02"`
	Gender             string                    `json:"gender" binding:"required,oneof=male female other unknown"`
	Phone              string                    `json:"phone" binding:"max=20"`
	Email              string                    `json:"email" binding:"omitempty,email"`
	AddressLine1       string                    `json:"address_line1"`
	AddressLine2       string                    `json:"address_line2"`
	PostalCode         string                    `json:"postal_code"`
	City               string                    `json:"city"`
	Country            string                    `json:"country"`
	EmergencyContact   *patient.EmergencyContact `json:"emergency_contact"`
	Allergies          []string                  `json:"allergies"`
	ChronicConditions  []string                  `json:"chronic_conditions"`
	WeightKg           *float64                  `json:"weight_kg" binding:"omitempty,gt=0"`
	HeightCm           *int                      `json:"height_cm" binding:"omitempty,gt=0"`
	BloodType          string                    `json:"blood_type" binding:"max=5"`
	PreferredLanguage  string                    `json:"preferred_language"`
	ConsentDataSharing bool                      `json:"consent_data_sharing"`
	ConsentMarketing   bool                      `json:"consent_marketing"`
}

func (r *registerPatientRequest) toCommand() *patient.RegisterPatientCommand {
	dob, _ := time.Parse(time.DateOnly, r.DateOfBirth)
	return &patient.RegisterPatientCommand{
		LoginEmail:         r.LoginEmail,
		InitialPassword:    r.InitialPassword,
		NationalID:         r.NationalID,
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		DateOfBirth:        dob,
		Gender:             patient.Gender(r.Gender),
		Phone:              r.Phone,
		Email:              r.Email,
		AddressLine1:       r.AddressLine1,
		AddressLine2:       r.AddressLine2,
		PostalCode:         r.PostalCode,
		City:               r.City,
		Country:            r.Country,
		EmergencyContact:   r.EmergencyContact,
		Allergies:          r.Allergies,
		ChronicConditions:  r.ChronicConditions,
		WeightKg:           r.WeightKg,
		HeightCm:           r.HeightCm,
		BloodType:          r.BloodType,
		PreferredLanguage:  r.PreferredLanguage,
		ConsentDataSharing: r.ConsentDataSharing,
		ConsentMarketing:   r.ConsentMarketing,
	}
}

type createPrescriptionRequest struct {
	PatientID             string  `json:"patient_id" binding:"required,uuid"`
	MedicationID          string  `json:"medication_id" binding:"required,uuid"`
	Dose                  float64 `json:"dose"`
	DoseUnit              string  `json:"dose_unit" binding:"max=20"`
	Frequency             string  `json:"frequency" binding:"max=20"`
	FrequencyDescription  string  `json:"frequency_description"`
	Route                 string  `json:"route" binding:"max=50"`
	Indication            string  `json:"indication"`
	Instructions          string  `json:"instructions"`
	ClinicalNotes         string  `json:"clinical_notes"`
	StartDate             string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate               *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	QuantityPrescribed    int     `json:"quantity_prescribed"`
	QuantityUnit          string  `json:"quantity_unit" binding:"max=20"`
	DaysSupply            *int    `json:"days_supply"`
	RefillsAllowed        *int    `json:"refills_allowed"`
	IsPRN                 bool    `json:"is_prn"`
	IsSubstitutionAllowed *bool   `json:"is_substitution_allowed"`
	IsControlledSubstance bool    `json:"is_controlled_substance"`
}

// toCommand assumes binding already validated the id and date formats.
func (r *createPrescriptionRequest) toCommand() *prescription.CreatePrescriptionCommand {
	start, _ := time.Parse(time.DateOnly, r.StartDate)
	end, _ := parseDate(r.EndDate)
	return &prescription.CreatePrescriptionCommand{
		PatientID:             uuid.MustParse(r.PatientID),
		MedicationID:          uuid.MustParse(r.MedicationID),
		Dose:                  r.Dose,
		DoseUnit:              r.DoseUnit,
		Frequency:             r.Frequency,
		FrequencyDescription:  r.FrequencyDescription,
		Route:                 r.Route,
		Indication:            r.Indication,
		Instructions:          r.Instructions,
		ClinicalNotes:         r.ClinicalNotes,
		StartDate:             start,
		EndDate:               end,
		QuantityPrescribed:    r.QuantityPrescribed,
		QuantityUnit:          r.QuantityUnit,
		DaysSupply:            r.DaysSupply,
		RefillsAllowed:        r.RefillsAllowed,
		IsPRN:                 r.IsPRN,
		IsSubstitutionAllowed: r.IsSubstitutionAllowed,
		IsControlledSubstance: r.IsControlledSubstance,
	}
}

type updatePrescriptionRequest struct {
	Dose                  *float64 `json:"dose"`
	DoseUnit              *string  `json:"dose_unit" binding:"omitempty,max=20"`
	Frequency             *string  `json:"frequency" binding:"omitempty,max=20"`
	FrequencyDescription  *string  `json:"frequency_description"`
	Route                 *string  `json:"route" binding:"omitempty,max=50"`
	Indication            *string  `json:"indication"`
	Instructions          *string  `json:"instructions"`
	ClinicalNotes         *string  `json:"clinical_notes"`
	EndDate               *string  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	RefillsAllowed        *int     `json:"refills_allowed"`
	IsSubstitutionAllowed *bool    `json:"is_substitution_allowed"`
	ModificationReason    string   `json:"modification_reason"`
}

func (r *updatePrescriptionRequest) toCommand() *prescription.UpdatePrescriptionCommand {
	end, _ := parseDate(r.EndDate)
	return &prescription.UpdatePrescriptionCommand{
		Dose:                  r.Dose,
		DoseUnit:              r.DoseUnit,
		Frequency:             r.Frequency,
		FrequencyDescription:  r.FrequencyDescription,
		Route:                 r.Route,
		Indication:            r.Indication,
		Instructions:          r.Instructions,
		ClinicalNotes:         r.ClinicalNotes,
		EndDate:               end,
		RefillsAllowed:        r.RefillsAllowed,
		IsSubstitutionAllowed: r.IsSubstitutionAllowed,
		ModificationReason:    r.ModificationReason,
	}
}

type cancelPrescriptionRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type dispenseRequest struct {
	PrescriptionID string `json:"prescription_id" binding:"required,uuid"`
	Quantity       int    `json:"quantity"`
	Notes          string `json:"notes" binding:"max=1000"`
}

type takeMedicationRequest struct {
	Status      string `json:"status" binding:"required"`
	Notes       string `json:"notes" binding:"max=1000"`
	SideEffects string `json:"side_effects" binding:"max=1000"`
}

// Responses

type IdentityResponse struct {
	UserID       uuid.UUID   `json:"user_id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         domain.Role `json:"role"`
	PatientID    *uuid.UUID  `json:"patient_id,omitempty"`
	PrescriberID *uuid.UUID  `json:"prescriber_id,omitempty"`
	PharmacistID *uuid.UUID  `json:"pharmacist_id,omitempty"`
}

func toIdentityResponse(c *domain.Claims) IdentityResponse {
	return IdentityResponse{
		UserID:       c.UserID,
		Email:        c.Email,
		Name:         c.Name,
		Role:         c.Role,
		PatientID:    c.PatientID,
		PrescriberID: c.PrescriberID,
		PharmacistID: c.PharmacistID,
	}
}

type MedicationResponse struct {
	ID                   uuid.UUID `json:"id"`
	NPLID                string    `json:"npl_id"`
	TradeName            string    `json:"trade_name"`
	GenericName          string    `json:"generic_name"`
	Form                 string    `json:"form"`
	Strength             string    `json:"strength"`
	Route                string    `json:"route"`
	ATCCode              string    `json:"atc_code"`
	Manufacturer         string    `json:"manufacturer"`
	PrescriptionRequired bool      `json:"prescription_required"`
	IsAvailable          bool      `json:"is_available"`
	Price                float64   `json:"price"`
}

func toMedicationResponse(m *medication.Medication) *MedicationResponse {
	if m == nil {
		return nil
	}
	return &MedicationResponse{
		ID:                   m.ID,
		NPLID:                m.NPLID,
		TradeName:            m.TradeName,
		GenericName:          m.GenericName,
		Form:                 m.Form,
		Strength:             m.Strength,
		Route:                m.Route,
		ATCCode:              m.ATCCode,
		Manufacturer:         m.Manufacturer,
		PrescriptionRequired: m.PrescriptionRequired,
		IsAvailable:          m.IsAvailable,
		Price:                m.Price,
	}
}

func toMedicationResponses(ms []*medication.Medication) []*MedicationResponse {
	out := make([]*MedicationResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMedicationResponse(m))
	}
	return out
}

type PrescriptionResponse struct {
	ID                     uuid.UUID           `json:"id"`
	Number                 string              `json:"prescription_number"`
	PatientID              uuid.UUID           `json:"patient_id"`
	PrescriberID           uuid.UUID           `json:"prescriber_id"`
	PrescriberName         string              `json:"prescriber_name,omitempty"`
	Medication             *MedicationResponse `json:"medication,omitempty"`
	MedicationID           uuid.UUID           `json:"medication_id"`
	Status                 prescription.Status `json:"status"`
	Dose                   float64             `json:"dose"`
	DoseUnit               string              `json:"dose_unit"`
	Frequency              string              `json:"frequency"`
	FrequencyDescription   string              `json:"frequency_description,omitempty"`
	Route                  string              `json:"route,omitempty"`
	Indication             string              `json:"indication,omitempty"`
	Instructions           string              `json:"instructions,omitempty"`
	ClinicalNotes          string              `json:"clinical_notes,omitempty"`
	PrescribedDate         string              `json:"prescribed_date"`
	StartDate              string              `json:"start_date"`
	EndDate                *string             `json:"end_date,omitempty"`
	RefillsAllowed         int                 `json:"refills_allowed"`
	RefillsRemaining       int                 `json:"refills_remaining"`
	LastRefillDate         *string             `json:"last_refill_date,omitempty"`
	NextRefillEligibleDate *string             `json:"next_refill_eligible_date,omitempty"`
	QuantityPrescribed     int                 `json:"quantity_prescribed"`
	QuantityDispensed      int                 `json:"quantity_dispensed"`
	QuantityRemaining      int                 `json:"quantity_remaining"`
	QuantityUnit           string              `json:"quantity_unit,omitempty"`
	DaysSupply             *int                `json:"days_supply,omitempty"`
	IsPRN                  bool                `json:"is_prn"`
	IsSubstitutionAllowed  bool                `json:"is_substitution_allowed"`
	IsControlledSubstance  bool                `json:"is_controlled_substance"`
	CancelledAt            *time.Time          `json:"cancelled_at,omitempty"`
	CancellationReason     string              `json:"cancellation_reason,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

func toPrescriptionResponse(p *prescription.Prescription) *PrescriptionResponse {
	r := &PrescriptionResponse{
		ID:                     p.ID,
		Number:                 p.Number,
		PatientID:              p.PatientID,
		PrescriberID:           p.PrescriberID,
		Medication:             toMedicationResponse(p.Medication),
		MedicationID:           p.MedicationID,
		Status:                 p.Status,
		Dose:                   p.Dose,
		DoseUnit:               p.DoseUnit,
		Frequency:              p.Frequency,
		FrequencyDescription:   p.FrequencyDescription,
		Route:                  p.Route,
		Indication:             p.Indication,
		Instructions:           p.Instructions,
		ClinicalNotes:          p.ClinicalNotes,
		PrescribedDate:         p.PrescribedDate.Format(time.DateOnly),
		StartDate:              p.StartDate.Format(time.DateOnly),
		EndDate:                formatDate(p.EndDate),
		RefillsAllowed:         p.RefillsAllowed,
		RefillsRemaining:       p.RefillsRemaining,
		LastRefillDate:         formatDate(p.LastRefillDate),
		NextRefillEligibleDate: formatDate(p.NextRefillEligibleDate),
		QuantityPrescribed:     p.QuantityPrescribed,
		QuantityDispensed:      p.QuantityDispensed,
		QuantityRemaining:      p.QuantityRemaining(),
		QuantityUnit:           p.QuantityUnit,
		DaysSupply:             p.DaysSupply,
		IsPRN:                  p.IsPRN,
		IsSubstitutionAllowed:  p.IsSubstitutionAllowed,
		IsControlledSubstance:  p.IsControlledSubstance,
		CancelledAt:            p.CancelledAt,
		CancellationReason:     p.CancellationReason,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
	if p.Prescriber != nil {
		r.PrescriberName = p.Prescriber.FullName()
	}
	return r
}

func toPrescriptionResponses(ps []*prescription.Prescription) []*PrescriptionResponse {
	out := make([]*PrescriptionResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPrescriptionResponse(p))
	}
	return out
}

type DispensationResponse struct {
	ID             uuid.UUID `json:"id"`
	PrescriptionID uuid.UUID `json:"prescription_id"`
	PharmacistID   uuid.UUID `json:"pharmacist_id"`
	Quantity       int       `json:"quantity"`
	Notes          string    `json:"notes,omitempty"`
	DispensedAt    time.Time `json:"dispensed_at"`
}

func toDispensationResponses(ds []*prescription.Dispensation) []DispensationResponse {
	out := make([]DispensationResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DispensationResponse{
			ID:             d.ID,
			PrescriptionID: d.PrescriptionID,
			PharmacistID:   d.PharmacistID,
			Quantity:       d.Quantity,
			Notes:          d.Notes,
			DispensedAt:    d.DispensedAt,
		})
	}
	return out
}

type AdherenceRecordResponse struct {
	ID                  uuid.UUID        `json:"id"`
	PrescriptionID      uuid.UUID        `json:"prescription_id"`
	PatientID           uuid.UUID        `json:"patient_id"`
	ScheduledTime       time.Time        `json:"scheduled_time"`
	ActualTime          time.Time        `json:"actual_time"`
	Status              adherence.Status `json:"status"`
	DoseTaken           float64          `json:"dose_taken"`
	DoseUnit            string           `json:"dose_unit"`
	Notes               string           `json:"notes,omitempty"`
	SideEffectsReported string           `json:"side_effects_reported,omitempty"`
	Source              adherence.Source `json:"source"`
}

func toAdherenceResponse(r *adherence.Record) AdherenceRecordResponse {
	return AdherenceRecordResponse{
		ID:                  r.ID,
		PrescriptionID:      r.PrescriptionID,
		PatientID:           r.PatientID,
		ScheduledTime:       r.ScheduledTime,
		ActualTime:          r.ActualTime,
		Status:              r.Status,
		DoseTaken:           r.DoseTaken,
		DoseUnit:            r.DoseUnit,
		Notes:               r.Notes,
		SideEffectsReported: r.SideEffectsReported,
		Source:              r.Source,
	}
}

func toAdherenceResponses(rs []*adherence.Record) []AdherenceRecordResponse {
	out := make([]AdherenceRecordResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toAdherenceResponse(r))
	}
	return out
}

// PatientProfileResponse never carries the national ID in clear.
type PatientProfileResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	NationalID         string                    `json:"national_id"`
	FirstName          string                    `json:"first_name"`
	LastName           string                    `json:"last_name"`
	DateOfBirth        string                    `json:"date_of_birth"`
	Age                int                       `json:"age"`
	Gender             patient.Gender            `json:"gender"`
	Phone              string                    `json:"phone,omitempty"`
	Email              string                    `json:"email,omitempty"`
	Address            string                    `json:"address,omitempty"`
	EmergencyContact   *patient.EmergencyContact `json:"emergency_contact,omitempty"`
	Allergies          []string                  `json:"allergies"`
	ChronicConditions  []string                  `json:"chronic_conditions"`
	BloodType          string                    `json:"blood_type,omitempty"`
	PreferredLanguage  string                    `json:"preferred_language,omitempty"`
	ConsentDataSharing bool                      `json:"consent_data_sharing"`
}

func toPatientProfileResponse(p *service.Profile) PatientProfileResponse {
	address := strings.Join(nonEmpty(p.AddressLine1, p.AddressLine2, strings.TrimSpace(p.PostalCode+" "+p.City), p.Country), ", ")
	allergies := p.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	conditions := p.ChronicConditions
	if conditions == nil {
		conditions = []string{}
	}
	return PatientProfileResponse{
		ID:                 p.ID,
		NationalID:         p.NationalIDMasked,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		DateOfBirth:        p.DateOfBirth.Format(time.DateOnly),
		Age:                p.Age(),
		Gender:             p.Gender,
		Phone:              p.Phone,
		Email:              p.ContactInfo.Email,
		Address:            address,
		EmergencyContact:   p.EmergencyContact,
		Allergies:          allergies,
		ChronicConditions:  conditions,
		BloodType:          p.BloodType,
		PreferredLanguage:  p.PreferredLanguage,
		ConsentDataSharing: p.ConsentDataSharing,
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
