package prescriber

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrPrescriberNotFound = errors.New("prescriber not found")

type Prescriber struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	FirstName     string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName      string    `gorm:"column:last_name;type:varchar(100);not null"`
	LicenseNumber string    `gorm:"column:license_number;type:varchar(50);uniqueIndex;not null"`
	Specialty     string    `gorm:"column:specialty;type:varchar(100)"`
	Workplace     string    `gorm:"column:workplace;type:varchar(200)"`
}

func (Prescriber) TableName() string {
	return "clinical.prescribers"
}

func (p *Prescriber) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Repository interface {
	Create(ctx context.Context, p *Prescriber) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescriber, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Prescriber, error)
}
