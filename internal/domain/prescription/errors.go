package prescription

import (
	"errors"
	"fmt"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrDuplicateNumber      = errors.New("prescription number already exists")

	// ErrInvalidState is the parent of every business-rule violation below.
	ErrInvalidState      = errors.New("invalid prescription state")
	ErrNotModifiable     = fmt.Errorf("%w: cancelled or completed prescriptions cannot be modified", ErrInvalidState)
	ErrAlreadyCancelled  = fmt.Errorf("%w: prescription already cancelled", ErrInvalidState)
	ErrCancelCompleted   = fmt.Errorf("%w: cannot cancel completed prescription", ErrInvalidState)
	ErrNotActive         = fmt.Errorf("%w: can only dispense from active prescriptions", ErrInvalidState)
	ErrExceedsPrescribed = fmt.Errorf("%w: cannot dispense more than prescribed quantity", ErrInvalidState)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity to dispense must be at least 1", ErrInvalidState)
)
