package medication

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrMedicationNotFound = errors.New("medication not found")

// Medication is a catalog entry. Rows are reference data and are never
// modified by the prescription workflow.
type Medication struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	NPLID                string  `gorm:"column:npl_id;type:varchar(50);uniqueIndex;not null"`
	TradeName            string  `gorm:"column:trade_name;type:varchar(255);not null;index"`
	GenericName          string  `gorm:"column:generic_name;type:varchar(255);index"`
	Form                 string  `gorm:"column:form;type:varchar(50)"`     // e.g. "tablet"
	Strength             string  `gorm:"column:strength;type:varchar(50)"` // e.g. "500mg"
	Route                string  `gorm:"column:route;type:varchar(50)"`
	ATCCode              string  `gorm:"column:atc_code;type:varchar(10);index"`
	Manufacturer         string  `gorm:"column:manufacturer;type:varchar(200)"`
	PrescriptionRequired bool    `gorm:"column:prescription_required;not null"`
	IsAvailable          bool    `gorm:"column:is_available;not null;index"`
	Price                float64 `gorm:"column:price;type:numeric(10,2)"`
}

func (Medication) TableName() string {
	return "clinical.medications"
}

type ListMedicationsQuery struct {
	// Case-insensitive substring match on trade or generic name.
	Name          string
	AvailableOnly bool
}

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	List(ctx context.Context, q *ListMedicationsQuery) ([]*Medication, error)
}
