package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("a patient with this national ID is already registered")

	// Validation failures. The text is used as the field error message.
	ErrInvalidGender      = errors.New("must be one of male, female, other, unknown")
	ErrInvalidDateOfBirth = errors.New("cannot be in the future")
	ErrNationalIDRequired = errors.New("is required")

	// ErrNationalIDUnreadable means the sealed value no longer opens with
	// the configured field key.
	ErrNationalIDUnreadable = errors.New("stored national ID cannot be unsealed")
)
