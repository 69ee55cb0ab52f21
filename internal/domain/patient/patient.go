package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

type ContactInfo struct {
	Phone        string `gorm:"column:phone;type:varchar(20)"`
	Email        string `gorm:"column:email;type:varchar(255)"`
	AddressLine1 string `gorm:"column:address_line1;type:varchar(255)"`
	AddressLine2 string `gorm:"column:address_line2;type:varchar(255)"`
	PostalCode   string `gorm:"column:postal_code;type:varchar(20)"`
	City         string `gorm:"column:city;type:varchar(100)"`
	Country      string `gorm:"column:country;type:varchar(100)"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft Delete
	DeletedBy *uuid.UUID `gorm:"column:deleted_by;type:uuid"`

	// Login identity this record belongs to.
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`

	// National ID is only ever stored sealed. The lookup hash is a keyed
	// digest so uniqueness can be enforced without decrypting.
	NationalIDSealed []byte `gorm:"column:national_id_sealed;type:bytea;not null"`
	NationalIDHash   string `gorm:"column:national_id_hash;type:varchar(64);uniqueIndex;not null"`

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;type:date;not null"`
	Gender      Gender    `gorm:"column:gender;type:varchar(20);not null"`

	ContactInfo

	EmergencyContact *EmergencyContact `gorm:"column:emergency_contact;serializer:json"`

	Allergies         []string `gorm:"column:allergies;serializer:json"`
	ChronicConditions []string `gorm:"column:chronic_conditions;serializer:json"`
	WeightKg          *float64 `gorm:"column:weight_kg;type:numeric(5,2)"`
	HeightCm          *int     `gorm:"column:height_cm"`
	BloodType         string   `gorm:"column:blood_type;type:varchar(5)"`

	PreferredLanguage  string `gorm:"column:preferred_language;type:varchar(10)"`
	ConsentDataSharing bool   `gorm:"column:consent_data_sharing;not null"`
	ConsentMarketing   bool   `gorm:"column:consent_marketing;not null"`

	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

func (p *Patient) IsActive() bool {
	return p.DeletedAt == nil
}

// RegisterPatientCommand creates a patient and its login identity.
type RegisterPatientCommand struct {
	LoginEmail         string
	InitialPassword    string
	NationalID         string
	FirstName          string
	LastName           string
	DateOfBirth        time.Time
	Gender             Gender
	Phone              string
	Email              string
	AddressLine1       string
	AddressLine2       string
	PostalCode         string
	City               string
	Country            string
	EmergencyContact   *EmergencyContact
	Allergies          []string
	ChronicConditions  []string
	WeightKg           *float64
	HeightCm           *int
	BloodType          string
	PreferredLanguage  string
	ConsentDataSharing bool
	ConsentMarketing   bool
	CreatedBy          *uuid.UUID
}
