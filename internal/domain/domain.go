package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePatient    Role = "patient"
	RolePrescriber Role = "prescriber"
	RolePharmacist Role = "pharmacist"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RolePatient, RolePrescriber, RolePharmacist:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	DisplayName  string `gorm:"column:display_name;type:varchar(200);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	// Exactly one of these is set, matching Role. Admins have none.
	PatientID    *uuid.UUID `gorm:"column:patient_id;type:uuid;index"`
	PrescriberID *uuid.UUID `gorm:"column:prescriber_id;type:uuid;index"`
	PharmacistID *uuid.UUID `gorm:"column:pharmacist_id;type:uuid;index"`

	IsActive          bool       `gorm:"column:is_active;not null"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// HasRoleLink reports whether the user points at the record its role acts
// through. Admins need none.
func (u *User) HasRoleLink() bool {
	switch u.Role {
	case RolePatient:
		return u.PatientID != nil
	case RolePrescriber:
		return u.PrescriberID != nil
	case RolePharmacist:
		return u.PharmacistID != nil
	}
	return u.Role == RoleAdmin
}

type AuditAction string

const (
	ActionCreate      AuditAction = "create"
	ActionRead        AuditAction = "read"
	ActionUpdate      AuditAction = "update"
	ActionDelete      AuditAction = "delete"
	ActionDispense    AuditAction = "dispense"
	ActionLogin       AuditAction = "login"
	ActionLoginFailed AuditAction = "login_failed"
	ActionPassword    AuditAction = "password_change"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	StatusCode int    `gorm:"column:status_code"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

// Claims is the verified identity carried by an access token.
type Claims struct {
	UserID       uuid.UUID  `json:"sub"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	PrescriberID *uuid.UUID `json:"prescriber_id,omitempty"`
	PharmacistID *uuid.UUID `json:"pharmacist_id,omitempty"`
}

// EntityID returns the id of the patient, prescriber or pharmacist record
// the identity acts as. Admins and mismatched claims yield uuid.Nil.
func (c *Claims) EntityID() uuid.UUID {
	var id *uuid.UUID
	switch c.Role {
	case RolePatient:
		id = c.PatientID
	case RolePrescriber:
		id = c.PrescriberID
	case RolePharmacist:
		id = c.PharmacistID
	}
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func ClaimsForUser(u *User) *Claims {
	return &Claims{
		UserID:       u.ID,
		Email:        u.Email,
		Name:         u.DisplayName,
		Role:         u.Role,
		PatientID:    u.PatientID,
		PrescriberID: u.PrescriberID,
		PharmacistID: u.PharmacistID,
	}
}
