package rollover

import (
	"errors"

	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
)

// ErrDuplicatePeriod signals that another request created the same period
// first. The service recovers by reading the winner back; callers never see
// this error.
var ErrDuplicatePeriod = errors.New("period already exists")

// PeriodWithEnvelopes is the result of resolving a budget period: the period
// row plus its full envelope set, Unallocated included.
type PeriodWithEnvelopes struct {
	Period    period.Period
	Envelopes []envelope.Envelope
}
