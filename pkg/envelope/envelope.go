package envelope

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrEnvelopeNotFound = errors.New("envelope not found")
	// ErrProtectedEnvelope is returned when a caller tries to rename, delete
	// or directly re-budget the system-managed Unallocated envelope.
	ErrProtectedEnvelope = errors.New("the Unallocated envelope is system-managed")
	// ErrReservedName is returned when a caller tries to create an envelope
	// with the reserved Unallocated name.
	ErrReservedName = errors.New("envelope name is reserved")
)

// UnallocatedName is the display name of the system-managed catch-all
// envelope. The envelope itself is identified by the System flag, not by
// this string.
const UnallocatedName = "Unallocated"

const unallocatedColor = "gray"

// Envelope is a named bucket within a budget period.
type Envelope struct {
	ID       int
	PeriodID int
	Name     string
	Color    string
	// Budgeted is the planned target amount for the cycle.
	Budgeted decimal.Decimal
	// Funded is the amount actually available to spend. For TIME periods it
	// always equals Budgeted; for MONEY it is tracked independently and
	// moved around by transfers and income.
	Funded decimal.Decimal
	// System marks the single Unallocated envelope of a period. Its
	// budgeted and funded values are derived by the ledger sync and cannot
	// be edited directly.
	System bool
}
