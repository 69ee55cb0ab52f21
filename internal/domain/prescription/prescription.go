package prescription

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus accepts any casing ("active", "Active", "ACTIVE").
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Number string `gorm:"column:prescription_number;type:varchar(50);uniqueIndex;not null"`

	PatientID    uuid.UUID              `gorm:"column:patient_id;type:uuid;not null;index"`
	MedicationID uuid.UUID              `gorm:"column:medication_id;type:uuid;not null;index"`
	PrescriberID uuid.UUID              `gorm:"column:prescriber_id;type:uuid;not null;index"`
	Medication   *medication.Medication `gorm:"foreignKey:MedicationID"`
	Prescriber   *prescriber.Prescriber `gorm:"foreignKey:PrescriberID"`

	Status Status `gorm:"column:status;type:varchar(20);not null;default:'ACTIVE';index"`

	// Dosing
	Dose                 float64  `gorm:"column:dose;type:numeric(10,2)"`
	DoseUnit             string   `gorm:"column:dose_unit;type:varchar(20)"`
	Frequency            string   `gorm:"column:frequency;type:varchar(20)"` // e.g. "TID"
	FrequencyDescription string   `gorm:"column:frequency_description;type:text"`
	Route                string   `gorm:"column:route;type:varchar(50)"`
	MaxDailyDose         *float64 `gorm:"column:max_daily_dose;type:numeric(10,2)"`
	MaxDailyDoseUnit     string   `gorm:"column:max_daily_dose_unit;type:varchar(20)"`

	// Clinical
	Indication    string `gorm:"column:indication;type:text"`
	Instructions  string `gorm:"column:instructions;type:text"`
	ClinicalNotes string `gorm:"column:clinical_notes;type:text"`

	// Temporal
	PrescribedDate time.Time  `gorm:"column:prescribed_date;type:date;not null;index"`
	StartDate      time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate        *time.Time `gorm:"column:end_date;type:date"`

	// Refills
	RefillsAllowed         int        `gorm:"column:refills_allowed;not null"`
	RefillsRemaining       int        `gorm:"column:refills_remaining;not null"`
	LastRefillDate         *time.Time `gorm:"column:last_refill_date;type:date"`
	NextRefillEligibleDate *time.Time `gorm:"column:next_refill_eligible_date;type:date"`

	// Quantity
	QuantityPrescribed int    `gorm:"column:quantity_prescribed;not null"`
	QuantityDispensed  int    `gorm:"column:quantity_dispensed;not null"`
	QuantityUnit       string `gorm:"column:quantity_unit;type:varchar(20)"`
	DaysSupply         *int   `gorm:"column:days_supply"`

	// Flags
	IsPRN                      bool `gorm:"column:is_prn;not null"`
	IsSubstitutionAllowed      bool `gorm:"column:is_substitution_allowed;not null"`
	IsControlledSubstance      bool `gorm:"column:is_controlled_substance;not null"`
	RequiresPriorAuthorization bool `gorm:"column:requires_prior_auth;not null"`

	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CancelledBy        *uuid.UUID `gorm:"column:cancelled_by;type:uuid"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

func (p *Prescription) IsOwnedBy(prescriberID uuid.UUID) bool {
	return p.PrescriberID == prescriberID
}

func (p *Prescription) QuantityRemaining() int {
	return p.QuantityPrescribed - p.QuantityDispensed
}

// IsRefillEligible mirrors the store-side refill filter. A missing
// next-eligible date never qualifies.
func (p *Prescription) IsRefillEligible(today time.Time) bool {
	if p.Status != StatusActive || p.RefillsRemaining <= 0 || p.NextRefillEligibleDate == nil {
		return false
	}
	return !dateOnly(*p.NextRefillEligibleDate).After(dateOnly(today))
}

// ApplyUpdate copies every non-nil field of cmd onto the prescription.
func (p *Prescription) ApplyUpdate(cmd *UpdatePrescriptionCommand) error {
	if p.Status.IsTerminal() {
		return ErrNotModifiable
	}

	if cmd.Dose != nil {
		p.Dose = *cmd.Dose
	}
	if cmd.DoseUnit != nil {
		p.DoseUnit = *cmd.DoseUnit
	}
	if cmd.Frequency != nil {
		p.Frequency = *cmd.Frequency
	}
	if cmd.FrequencyDescription != nil {
		p.FrequencyDescription = *cmd.FrequencyDescription
	}
	if cmd.Route != nil {
		p.Route = *cmd.Route
	}
	if cmd.Indication != nil {
		p.Indication = *cmd.Indication
	}
	if cmd.Instructions != nil {
		p.Instructions = *cmd.Instructions
	}
	if cmd.ClinicalNotes != nil {
		p.ClinicalNotes = *cmd.ClinicalNotes
	}
	if cmd.EndDate != nil {
		end := *cmd.EndDate
		p.EndDate = &end
	}
	if cmd.RefillsAllowed != nil {
		p.RefillsAllowed = *cmd.RefillsAllowed
		if p.RefillsRemaining > p.RefillsAllowed {
			p.RefillsRemaining = p.RefillsAllowed
		}
	}
	if cmd.IsSubstitutionAllowed != nil {
		p.IsSubstitutionAllowed = *cmd.IsSubstitutionAllowed
	}
	return nil
}

func (p *Prescription) Cancel(by uuid.UUID, reason string, at time.Time) error {
	switch p.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted:
		return ErrCancelCompleted
	}

	p.Status = StatusCancelled
	p.CancelledAt = &at
	p.CancelledBy = &by
	p.CancellationReason = reason
	return nil
}

// Dispense records quantity units as handed out. Reaching the prescribed
// quantity completes the prescription; that is the only automatic
// transition out of ACTIVE.
func (p *Prescription) Dispense(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if p.Status != StatusActive {
		return ErrNotActive
	}

	dispensed := p.QuantityDispensed + quantity
	if dispensed > p.QuantityPrescribed {
		return ErrExceedsPrescribed
	}

	p.QuantityDispensed = dispensed
	if dispensed >= p.QuantityPrescribed {
		p.Status = StatusCompleted
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dispensation is one pharmacist hand-out against a prescription.
// Rows are append-only.
type Dispensation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;index"`
	PharmacistID   uuid.UUID `gorm:"column:pharmacist_id;type:uuid;not null;index"`
	Quantity       int       `gorm:"column:quantity;not null"`
	Notes          string    `gorm:"column:notes;type:text"`
	DispensedAt    time.Time `gorm:"column:dispensed_at;not null;index"`
}

func (Dispensation) TableName() string {
	return "clinical.dispensations"
}

type CreatePrescriptionCommand struct {
	PatientID             uuid.UUID
	MedicationID          uuid.UUID
	Dose                  float64
	DoseUnit              string
	Frequency             string
	FrequencyDescription  string
	Route                 string
	Indication            string
	Instructions          string
	ClinicalNotes         string
	StartDate             time.Time
	EndDate               *time.Time
	QuantityPrescribed    int
	QuantityUnit          string
	DaysSupply            *int
	RefillsAllowed        *int
	IsPRN                 bool
	IsSubstitutionAllowed *bool
	IsControlledSubstance bool
}

// UpdatePrescriptionCommand carries a partial update: nil fields are left untouched.
type UpdatePrescriptionCommand struct {
	Dose                  *float64
	DoseUnit              *string
	Frequency             *string
	FrequencyDescription  *string
	Route                 *string
	Indication            *string
	Instructions          *string
	ClinicalNotes         *string
	EndDate               *time.Time
	RefillsAllowed        *int
	IsSubstitutionAllowed *bool
	ModificationReason    string
}

type DispenseCommand struct {
	PrescriptionID uuid.UUID
	Quantity       int
	Notes          string
}

type ListPrescriptionsQuery struct {
	PatientID    *uuid.UUID
	PrescriberID *uuid.UUID
	Status       *Status
}
