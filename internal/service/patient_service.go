package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/fieldcrypt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PatientService struct {
	repo     patient.Repository
	sealer   *fieldcrypt.Sealer
	auditSvc *AuditService
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, sealer *fieldcrypt.Sealer, auditSvc *AuditService, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:     repo,
		sealer:   sealer,
		auditSvc: auditSvc,
		log:      log,
	}
}

// Profile is a patient record with its national ID unsealed and masked.
type Profile struct {
	*patient.Patient
	NationalIDMasked string
}

// Register creates a patient and its login identity. Admin only.
func (s *PatientService) Register(ctx context.Context, cmd *patient.RegisterPatientCommand, actor Actor) (*Profile, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := validateRegisterCommand(cmd); err != nil {
		return nil, err
	}

	nationalID := strings.TrimSpace(cmd.NationalID)
	hash := s.sealer.LookupHash(nationalID)
	exists, err := s.repo.ExistsByNationalIDHash(ctx, hash)
	if err != nil {
		s.log.Error("failed to check national ID uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	sealed, err := s.sealer.Seal(nationalID)
	if err != nil {
		return nil, err
	}
	passwordHash, err := auth.HashPassword(cmd.InitialPassword)
	if err != nil {
		return nil, err
	}

	createdBy := actor.UserID
	p := &patient.Patient{
		ID:               uuid.New(),
		NationalIDSealed: sealed,
		NationalIDHash:   hash,
		FirstName:        strings.TrimSpace(cmd.FirstName),
		LastName:         strings.TrimSpace(cmd.LastName),
		DateOfBirth:      dateOf(cmd.DateOfBirth),
		Gender:           cmd.Gender,
		ContactInfo: patient.ContactInfo{
			Phone:        strings.TrimSpace(cmd.Phone),
			Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
			AddressLine1: cmd.AddressLine1,
			AddressLine2: cmd.AddressLine2,
			PostalCode:   cmd.PostalCode,
			City:         cmd.City,
			Country:      cmd.Country,
		},
		EmergencyContact:   cmd.EmergencyContact,
		Allergies:          cmd.Allergies,
		ChronicConditions:  cmd.ChronicConditions,
		WeightKg:           cmd.WeightKg,
		HeightCm:           cmd.HeightCm,
		BloodType:          cmd.BloodType,
		PreferredLanguage:  cmd.PreferredLanguage,
		ConsentDataSharing: cmd.ConsentDataSharing,
		ConsentMarketing:   cmd.ConsentMarketing,
		CreatedBy:          &createdBy,
	}
	u := &domain.User{
		ID:                uuid.New(),
		Email:             strings.ToLower(strings.TrimSpace(cmd.LoginEmail)),
		PasswordHash:      passwordHash,
		DisplayName:       p.FullName(),
		Role:              domain.RolePatient,
		PatientID:         &p.ID,
		IsActive:          true,
		PasswordChangedAt: time.Now().UTC(),
	}
	p.UserID = u.ID

	if err := s.repo.Create(ctx, p, u); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionCreate, "patient", p.ID.String()))
	s.log.Info("patient registered",
		zap.String("patient_id", p.ID.String()),
		zap.String("created_by", actor.UserID.String()),
	)

	return &Profile{Patient: p, NationalIDMasked: fieldcrypt.Mask(nationalID)}, nil
}

// Me returns the calling patient's own record.
func (s *PatientService) Me(ctx context.Context, actor Actor) (*Profile, error) {
	if err := actor.require(domain.RolePatient); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, actor.EntityID)
	if err != nil {
		return nil, err
	}

	nationalID, err := s.sealer.Open(p.NationalIDSealed)
	if err != nil {
		s.log.Error("failed to unseal national ID", zap.String("patient_id", p.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", patient.ErrNationalIDUnreadable, err)
	}

	s.auditSvc.LogAsync(ctx, actor.audit(domain.ActionRead, "patient", p.ID.String()))
	return &Profile{Patient: p, NationalIDMasked: fieldcrypt.Mask(nationalID)}, nil
}

func validateRegisterCommand(cmd *patient.RegisterPatientCommand) error {
	v := &ValidationError{}

	if strings.TrimSpace(cmd.LoginEmail) == "" {
		v.Add("login_email", "is required")
	}
	if err := auth.ValidatePasswordStrength(cmd.InitialPassword); err != nil {
		v.Add("initial_password", err.Error())
	}
	if strings.TrimSpace(cmd.NationalID) == "" {
		v.Add("national_id", patient.ErrNationalIDRequired.Error())
	}
	if strings.TrimSpace(cmd.FirstName) == "" {
		v.Add("first_name", "is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		v.Add("last_name", "is required")
	}
	if cmd.DateOfBirth.IsZero() {
		v.Add("date_of_birth", "is required")
	} else if cmd.DateOfBirth.After(time.Now()) {
		v.Add("date_of_birth", patient.ErrInvalidDateOfBirth.Error())
	}
	if !cmd.Gender.IsValid() {
		v.Add("gender", patient.ErrInvalidGender.Error())
	}

	return v.OrNil()
}
