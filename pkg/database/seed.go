package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/pharmacist"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescriber"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/fieldcrypt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedMedications is the demo catalog.
var SeedMedications = []medication.Medication{
	{NPLID: "NPL-0001", TradeName: "Alvedon", GenericName: "paracetamol", Form: "tablet", Strength: "500mg", Route: "oral", ATCCode: "N02BE01", Manufacturer: "Haleon", IsAvailable: true, Price: 39.50},
	{NPLID: "NPL-0002", TradeName: "Amoxicillin Sandoz", GenericName: "amoxicillin", Form: "capsule", Strength: "500mg", Route: "oral", ATCCode: "J01CA04", Manufacturer: "Sandoz", PrescriptionRequired: true, IsAvailable: true, Price: 89.00},
	{NPLID: "NPL-0003", TradeName: "Metformin Teva", GenericName: "metformin", Form: "tablet", Strength: "850mg", Route: "oral", ATCCode: "A10BA02", Manufacturer: "Teva", PrescriptionRequired: true, IsAvailable: true, Price: 64.00},
	{NPLID: "NPL-0004", TradeName: "Enalapril Actavis", GenericName: "enalapril", Form: "tablet", Strength: "10mg", Route: "oral", ATCCode: "C09AA02", Manufacturer: "Actavis", PrescriptionRequired: true, IsAvailable: true, Price: 72.25},
	{NPLID: "NPL-0005", TradeName: "Ventoline", GenericName: "salbutamol", Form: "inhaler", Strength: "0.1mg/dose", Route: "inhalation", ATCCode: "R03AC02", Manufacturer: "GSK", PrescriptionRequired: true, IsAvailable: false, Price: 129.00},
}

// Seed loads demo identities and reference data. It is a no-op when any
// user already exists.
func Seed(db *gorm.DB, sealer *fieldcrypt.Sealer, password string, log *zap.Logger) error {
	var users int64
	if err := db.Model(&domain.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if users > 0 {
		log.Info("database already seeded, skipping")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		meds := make([]medication.Medication, len(SeedMedications))
		copy(meds, SeedMedications)
		if err := tx.Create(&meds).Error; err != nil {
			return fmt.Errorf("seeding medications: %w", err)
		}

		now := time.Now().UTC()
		newUser := func(email, name string, role domain.Role) *domain.User {
			return &domain.User{
				ID:                uuid.New(),
				Email:             email,
				PasswordHash:      hash,
				DisplayName:       name,
				Role:              role,
				IsActive:          true,
				PasswordChangedAt: now,
			}
		}

		admin := newUser("admin@medication.local", "System Admin", domain.RoleAdmin)

		doctor := &prescriber.Prescriber{ID: uuid.New(), FirstName: "Anna", LastName: "Lind", LicenseNumber: "LIC-100200", Specialty: "General practice", Workplace: "Vårdcentralen City"}
		doctorUser := newUser("anna.lind@medication.local", doctor.FullName(), domain.RolePrescriber)
		doctor.UserID = doctorUser.ID
		doctorUser.PrescriberID = &doctor.ID

		chemist := &pharmacist.Pharmacist{ID: uuid.New(), FirstName: "Erik", LastName: "Berg", LicenseNumber: "PH-300400", PharmacyName: "Apoteket Centrum"}
		chemistUser := newUser("erik.berg@medication.local", chemist.FullName(), domain.RolePharmacist)
		chemist.UserID = chemistUser.ID
		chemistUser.PharmacistID = &chemist.ID

		patientUser := newUser("sara.nilsson@medication.local", "Sara Nilsson", domain.RolePatient)
		sealed, err := sealer.Seal("19850312-4321")
		if err != nil {
			return err
		}
		pat := &patient.Patient{
			ID:                uuid.New(),
			UserID:            patientUser.ID,
			NationalIDSealed:  sealed,
			NationalIDHash:    sealer.LookupHash("19850312-4321"),
			FirstName:         "Sara",
			LastName:          "Nilsson",
			DateOfBirth:       time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
			Gender:            patient.GenderFemale,
			ContactInfo:       patient.ContactInfo{Email: "sara.nilsson@medication.local", City: "Uppsala", Country: "SE"},
			Allergies:         []string{"penicillin"},
			PreferredLanguage: "sv",
		}
		patientUser.PatientID = &pat.ID

		for _, u := range []*domain.User{admin, doctorUser, chemistUser, patientUser} {
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("seeding user %s: %w", u.Email, err)
			}
		}
		if err := tx.Create(doctor).Error; err != nil {
			return fmt.Errorf("seeding prescriber: %w", err)
		}
		if err := tx.Create(chemist).Error; err != nil {
			return fmt.Errorf("seeding pharmacist: %w", err)
		}
		if err := tx.Create(pat).Error; err != nil {
			return fmt.Errorf("seeding patient: %w", err)
		}

		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		eligible := today.AddDate(0, 0, -2)
		lastRefill := today.AddDate(0, 0, -30)
		rx := &prescription.Prescription{
			Number:                 "RX-SEED0001",
			PatientID:              pat.ID,
			MedicationID:           meds[2].ID,
			PrescriberID:           doctor.ID,
			Status:                 prescription.StatusActive,
			Dose:                   850,
			DoseUnit:               "mg",
			Frequency:              "BID",
			FrequencyDescription:   "Twice daily with meals",
			Route:                  "oral",
			Indication:             "Type 2 diabetes",
			PrescribedDate:         today.AddDate(0, -1, 0),
			StartDate:              today.AddDate(0, -1, 0),
			RefillsAllowed:         3,
			RefillsRemaining:       2,
			LastRefillDate:         &lastRefill,
			NextRefillEligibleDate: &eligible,
			QuantityPrescribed:     180,
			QuantityDispensed:      60,
			QuantityUnit:           "tablet",
			IsSubstitutionAllowed:  true,
			CreatedBy:              doctorUser.ID,
		}
		if err := tx.Create(rx).Error; err != nil {
			return fmt.Errorf("seeding prescription: %w", err)
		}

		log.Info("seed data loaded",
			zap.Int("medications", len(meds)),
			zap.Int("users", 4),
			zap.String("prescription", rx.Number),
		)
		return nil
	})
}
