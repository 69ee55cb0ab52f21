package pharmacist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrPharmacistNotFound = errors.New("pharmacist not found")

type Pharmacist struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	FirstName     string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName      string    `gorm:"column:last_name;type:varchar(100);not null"`
	LicenseNumber string    `gorm:"column:license_number;type:varchar(50);uniqueIndex;not null"`
	PharmacyName  string    `gorm:"column:pharmacy_name;type:varchar(200)"`
}

func (Pharmacist) TableName() string {
	return "clinical.pharmacists"
}

func (p *Pharmacist) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Repository interface {
	Create(ctx context.Context, p *Pharmacist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacist, error)
}
