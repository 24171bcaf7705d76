package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrPeriodNotFound = errors.New("budget period not found")

// Domain identifies which resource a period allocates: hours or money.
type Domain string

const (
	DomainTime  Domain = "TIME"
	DomainMoney Domain = "MONEY"
)

func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainTime, DomainMoney:
		return Domain(s), nil
	}
	return "", fmt.Errorf("unknown budget domain: %q", s)
}

// Kind is the length of one allocation cycle.
type Kind string

const (
	KindWeekly  Kind = "WEEKLY"
	KindMonthly Kind = "MONTHLY"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindWeekly, KindMonthly:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown period kind: %q", s)
}

// Period is one allocation cycle for a (user, domain, kind) triple.
// At most one period exists per (user, domain, kind, start date).
type Period struct {
	ID        int
	UserID    int
	Domain    Domain
	Kind      Kind
	StartDate time.Time
	// Capacity is the total amount available in the cycle: hours for TIME,
	// deposited money for MONEY. Changed only through explicit capacity
	// updates and income deposits.
	Capacity decimal.Decimal
}
