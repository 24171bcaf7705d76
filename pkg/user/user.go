package user

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

// Settings hold the per-user budgeting defaults. They are provisioned once,
// together with the user row, and can be updated afterwards.
type Settings struct {
	Currency     string
	WeekFirstDay time.Weekday
	// TimeCapacity is the weekly hour capacity seeded into new TIME periods.
	TimeCapacity decimal.Decimal
	// BaseIncome is the base capacity of a new MONEY period, before any
	// rollover balance is added.
	BaseIncome decimal.Decimal
	// AutoCopyEnvelopes enables carrying envelope structure and balances
	// into the next period. When disabled, budgeting starts from zero.
	// Nil means the caller never chose; provisioning fills in the
	// configured default, so stored settings always carry a value.
	AutoCopyEnvelopes *bool
}

// AutoCopy reports the effective auto-copy flag. Nil reads as on, the
// behavior of a user provisioned before choosing.
func (s Settings) AutoCopy() bool {
	return s.AutoCopyEnvelopes == nil || *s.AutoCopyEnvelopes
}
