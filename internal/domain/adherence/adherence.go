package adherence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidStatus = errors.New("invalid adherence status")

type Status string

const (
	StatusTaken   Status = "TAKEN"
	StatusMissed  Status = "MISSED"
	StatusSkipped Status = "SKIPPED"
	StatusLate    Status = "LATE"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusTaken, StatusMissed, StatusSkipped, StatusLate:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

type Source string

const (
	SourcePatientReported   Source = "PATIENT_REPORTED"
	SourceCaregiverReported Source = "CAREGIVER_REPORTED"
	SourceDevice            Source = "DEVICE"
)

// Record is one dose event. Records are append-only: there is no update or
// delete path anywhere in the code base.
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;index:idx_adherence_prescription_time,priority:1"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	ScheduledTime time.Time `gorm:"column:scheduled_time;not null;index:idx_adherence_prescription_time,priority:2"`
	ActualTime    time.Time `gorm:"column:actual_time"`
	Status        Status    `gorm:"column:status;type:varchar(20);not null;index"`

	DoseTaken           float64 `gorm:"column:dose_taken;type:numeric(10,2)"`
	DoseUnit            string  `gorm:"column:dose_unit;type:varchar(20)"`
	Notes               string  `gorm:"column:notes;type:text"`
	SideEffectsReported string  `gorm:"column:side_effects_reported;type:text"`
	Source              Source  `gorm:"column:source;type:varchar(30);not null"`
}

func (Record) TableName() string {
	return "clinical.adherence_records"
}

type RecordCommand struct {
	PrescriptionID uuid.UUID
	PatientID      uuid.UUID
	Status         Status
	Notes          string
	SideEffects    string
}

type Repository interface {
	Create(ctx context.Context, r *Record) error

	// ListByPrescription returns records newest first by scheduled time.
	ListByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*Record, error)

	CountByStatus(ctx context.Context, prescriptionID uuid.UUID) (map[Status]int64, error)
}
