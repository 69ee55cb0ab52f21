package prescription

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActive(quantity int) *Prescription {
	return &Prescription{
		ID:                 uuid.New(),
		Number:             "RX-0A1B2C3D",
		PrescriberID:       uuid.New(),
		Status:             StatusActive,
		Dose:               500,
		DoseUnit:           "mg",
		QuantityPrescribed: quantity,
		RefillsAllowed:     3,
		RefillsRemaining:   3,
	}
}

func TestDispense_PartialThenFullThenOverflow(t *testing.T) {
	p := newActive(90)

	require.NoError(t, p.Dispense(30))
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, 30, p.QuantityDispensed)

	require.NoError(t, p.Dispense(60))
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, 90, p.QuantityDispensed)

	err := p.Dispense(1)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, 90, p.QuantityDispensed)
}

func TestDispense_ExceedingLeavesStateUntouched(t *testing.T) {
	p := newActive(10)
	require.NoError(t, p.Dispense(4))

	err := p.Dispense(7)
	assert.ErrorIs(t, err, ErrExceedsPrescribed)
	assert.Equal(t, 4, p.QuantityDispensed)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, 6, p.QuantityRemaining())
}

func TestDispense_RejectsNonPositiveQuantity(t *testing.T) {
	p := newActive(10)
	for _, q := range []int{0, -3} {
		assert.ErrorIs(t, p.Dispense(q), ErrInvalidQuantity)
	}
	assert.Zero(t, p.QuantityDispensed)
}

func TestDispense_NeverExceedsPrescribed(t *testing.T) {
	p := newActive(25)
	previous := 0
	for _, q := range []int{3, 7, 1, 20, 5, 9, 1, 1} {
		_ = p.Dispense(q)
		assert.GreaterOrEqual(t, p.QuantityDispensed, previous)
		assert.LessOrEqual(t, p.QuantityDispensed, p.QuantityPrescribed)
		previous = p.QuantityDispensed
	}
	assert.Equal(t, StatusCompleted, p.Status)
}

func TestCancel(t *testing.T) {
	by := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p := newActive(10)
	require.NoError(t, p.Cancel(by, "adverse reaction", at))
	assert.Equal(t, StatusCancelled, p.Status)
	assert.Equal(t, &at, p.CancelledAt)
	assert.Equal(t, &by, p.CancelledBy)
	assert.Equal(t, "adverse reaction", p.CancellationReason)

	assert.ErrorIs(t, p.Cancel(by, "again", at), ErrAlreadyCancelled)

	done := newActive(5)
	require.NoError(t, done.Dispense(5))
	err := done.Cancel(by, "late", at)
	assert.ErrorIs(t, err, ErrCancelCompleted)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyUpdate_PartialFields(t *testing.T) {
	p := newActive(10)
	p.Frequency = "TID"
	p.Instructions = "with food"

	dose := 250.0
	notes := "reduce after week two"
	err := p.ApplyUpdate(&UpdatePrescriptionCommand{Dose: &dose, ClinicalNotes: &notes})
	require.NoError(t, err)

	assert.Equal(t, 250.0, p.Dose)
	assert.Equal(t, notes, p.ClinicalNotes)
	assert.Equal(t, "TID", p.Frequency)
	assert.Equal(t, "with food", p.Instructions)
	assert.Equal(t, "mg", p.DoseUnit)
}

func TestApplyUpdate_ClampsRemainingRefills(t *testing.T) {
	p := newActive(10)
	one := 1
	require.NoError(t, p.ApplyUpdate(&UpdatePrescriptionCommand{RefillsAllowed: &one}))
	assert.Equal(t, 1, p.RefillsAllowed)
	assert.Equal(t, 1, p.RefillsRemaining)

	five := 5
	require.NoError(t, p.ApplyUpdate(&UpdatePrescriptionCommand{RefillsAllowed: &five}))
	assert.Equal(t, 5, p.RefillsAllowed)
	assert.Equal(t, 1, p.RefillsRemaining)
}

func TestApplyUpdate_TerminalStatusesRejected(t *testing.T) {
	for _, s := range []Status{StatusCancelled, StatusCompleted} {
		p := newActive(10)
		p.Status = s
		dose := 1.0
		err := p.ApplyUpdate(&UpdatePrescriptionCommand{Dose: &dose})
		assert.ErrorIs(t, err, ErrNotModifiable, s)
		assert.Equal(t, 500.0, p.Dose)
	}
}

func TestIsRefillEligible(t *testing.T) {
	today := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	midnight := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    Status
		remaining int
		next      *time.Time
		want      bool
	}{
		{"eligible yesterday", StatusActive, 2, &yesterday, true},
		{"eligible today", StatusActive, 1, &midnight, true},
		{"not yet eligible", StatusActive, 2, &tomorrow, false},
		{"no refills left", StatusActive, 0, &yesterday, false},
		{"no eligible date", StatusActive, 2, nil, false},
		{"cancelled", StatusCancelled, 2, &yesterday, false},
		{"completed", StatusCompleted, 2, &yesterday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newActive(10)
			p.Status = tt.status
			p.RefillsRemaining = tt.remaining
			p.NextRefillEligibleDate = tt.next
			assert.Equal(t, tt.want, p.IsRefillEligible(today))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" active ")
	assert.True(t, ok)
	assert.Equal(t, StatusActive, s)

	_, ok = ParseStatus("dispensed")
	assert.False(t, ok)
}
