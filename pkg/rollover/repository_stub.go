package rollover

import (
	"context"
	"time"

	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
)

// RepositoryStub is an in-memory Repository for service tests. It shares
// period and envelope state with an envelope.RepositoryStub so ledger syncs
// observe the same rows.
type RepositoryStub struct {
	nextPeriodId int
	Ledger       *envelope.RepositoryStub
	// Expenses holds the seeded EXPENSE total per envelope id.
	Expenses map[int]decimal.Decimal
	// LoseNextCreate makes the next CreatePeriod lose the uniqueness race:
	// the row appears (committed by the concurrent winner) but the insert
	// itself reports a duplicate.
	LoseNextCreate bool
}

func NewRepositoryStub(ledger *envelope.RepositoryStub) *RepositoryStub {
	return &RepositoryStub{
		Ledger:   ledger,
		Expenses: map[int]decimal.Decimal{},
	}
}

// SeedExpense registers a spent total the stub reports for an envelope.
func (s *RepositoryStub) SeedExpense(envelopeId int, amount decimal.Decimal) {
	s.Expenses[envelopeId] = amount
}

func (s *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return fn(s)
}

func (s *RepositoryStub) FindByKey(ctx context.Context, userId int, domain period.Domain, kind period.Kind, startDate time.Time) (period.Period, error) {
	for _, p := range s.Ledger.Periods {
		if p.UserID == userId && p.Domain == domain && p.Kind == kind && p.StartDate.Equal(startDate) {
			return p, nil
		}
	}
	return period.Period{}, period.ErrPeriodNotFound
}

func (s *RepositoryStub) FindLatestBefore(ctx context.Context, userId int, domain period.Domain, kind period.Kind, startDate time.Time) (period.Period, error) {
	var latest period.Period
	found := false
	for _, p := range s.Ledger.Periods {
		if p.UserID != userId || p.Domain != domain || p.Kind != kind || !p.StartDate.Before(startDate) {
			continue
		}
		if !found || p.StartDate.After(latest.StartDate) {
			latest = p
			found = true
		}
	}
	if !found {
		return period.Period{}, period.ErrPeriodNotFound
	}
	return latest, nil
}

func (s *RepositoryStub) ListEnvelopes(ctx context.Context, periodId int) ([]envelope.Envelope, error) {
	return s.Ledger.ListForPeriod(ctx, periodId)
}

func (s *RepositoryStub) SumExpensesByEnvelope(ctx context.Context, periodId int) (map[int]decimal.Decimal, error) {
	envelopes, err := s.Ledger.ListForPeriod(ctx, periodId)
	if err != nil {
		return nil, err
	}
	totals := make(map[int]decimal.Decimal)
	for _, env := range envelopes {
		if total, ok := s.Expenses[env.ID]; ok {
			totals[env.ID] = total
		}
	}
	return totals, nil
}

func (s *RepositoryStub) CreatePeriod(ctx context.Context, p period.Period) (int, error) {
	if _, err := s.FindByKey(ctx, p.UserID, p.Domain, p.Kind, p.StartDate); err == nil {
		return 0, ErrDuplicatePeriod
	}
	s.nextPeriodId++
	p.ID = s.nextPeriodId
	s.Ledger.SeedPeriod(p)
	if s.LoseNextCreate {
		s.LoseNextCreate = false
		return 0, ErrDuplicatePeriod
	}
	return p.ID, nil
}

func (s *RepositoryStub) CreateEnvelope(ctx context.Context, env envelope.Envelope) (int, error) {
	return s.Ledger.Create(ctx, env)
}

func (s *RepositoryStub) SyncUnallocated(ctx context.Context, periodId int) error {
	return s.Ledger.SyncUnallocated(ctx, periodId)
}

func (s *RepositoryStub) Reset() {
	s.nextPeriodId = 0
	s.Expenses = map[int]decimal.Decimal{}
	s.LoseNextCreate = false
	s.Ledger.Reset()
}
