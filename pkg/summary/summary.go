package summary

import (
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/transaction"
	"github.com/shopspring/decimal"
)

// EnvelopeSummary is one envelope with its derived figures. Spent and
// Remaining are computed from the transaction history on every read, never
// stored.
type EnvelopeSummary struct {
	Envelope  envelope.Envelope
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// PeriodSummary is the read projection of one budget period.
type PeriodSummary struct {
	Period         period.Period
	Currency       string
	Envelopes      []EnvelopeSummary
	TotalBudgeted  decimal.Decimal
	TotalFunded    decimal.Decimal
	TotalSpent     decimal.Decimal
	TotalRemaining decimal.Decimal
}

// EnvelopeDetails is one envelope with its derived figures and full
// transaction history, newest first.
type EnvelopeDetails struct {
	EnvelopeSummary
	Transactions []transaction.Transaction
}
