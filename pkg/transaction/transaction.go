package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrSameEnvelope is returned when a transfer names the same envelope
	// as source and destination.
	ErrSameEnvelope = errors.New("cannot transfer to the same envelope")
	// ErrCrossPeriodTransfer is returned when a transfer spans two budget
	// periods. Moving capacity between periods would break both periods'
	// funded-equals-capacity invariant.
	ErrCrossPeriodTransfer = errors.New("cannot transfer between envelopes of different periods")
)

type Kind string

const (
	KindExpense  Kind = "EXPENSE"
	KindIncome   Kind = "INCOME"
	KindTransfer Kind = "TRANSFER"
)

// Transaction is an immutable audit entry against an envelope. Only EXPENSE
// entries contribute to an envelope's derived spent total; INCOME and
// TRANSFER entries document capacity deposits and moves between envelopes.
type Transaction struct {
	ID         int
	EnvelopeID int
	// DestEnvelopeID is set on TRANSFER entries only and points at the
	// counterpart envelope.
	DestEnvelopeID *int
	Kind           Kind
	Amount         decimal.Decimal
	Description    string
	Entity         string
	Reference      string
	Date           time.Time
	// StartTime and EndTime are set on duration-derived TIME entries.
	StartTime *time.Time
	EndTime   *time.Time
}

// Metadata carries the caller-provided descriptive fields of an expense.
type Metadata struct {
	Description string
	Entity      string
	Reference   string
	Date        time.Time
	StartTime   *time.Time
	EndTime     *time.Time
}

// Allocation is one target of a fill operation.
type Allocation struct {
	EnvelopeID int
	Amount     decimal.Decimal
}
