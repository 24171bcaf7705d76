package transaction

import (
	"context"
	"sort"

	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
)

// RepositoryStub is an in-memory Repository for engine tests. Envelope and
// period state is shared with an envelope.RepositoryStub so that ledger
// behavior matches the SQL implementation.
type RepositoryStub struct {
	nextId       int
	Transactions map[int]Transaction
	Ledger       *envelope.RepositoryStub
}

func NewRepositoryStub(ledger *envelope.RepositoryStub) *RepositoryStub {
	return &RepositoryStub{
		Transactions: map[int]Transaction{},
		Ledger:       ledger,
	}
}

func (s *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return fn(s)
}

func (s *RepositoryStub) Insert(ctx context.Context, t Transaction) (int, error) {
	s.nextId++
	t.ID = s.nextId
	s.Transactions[t.ID] = t
	return t.ID, nil
}

func (s *RepositoryStub) GetByID(ctx context.Context, id int) (Transaction, error) {
	t, ok := s.Transactions[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

func (s *RepositoryStub) Update(ctx context.Context, t Transaction) error {
	if _, ok := s.Transactions[t.ID]; !ok {
		return ErrTransactionNotFound
	}
	s.Transactions[t.ID] = t
	return nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	if _, ok := s.Transactions[id]; !ok {
		return ErrTransactionNotFound
	}
	delete(s.Transactions, id)
	return nil
}

func (s *RepositoryStub) ListForEnvelope(ctx context.Context, envelopeId int) ([]Transaction, error) {
	var transactions []Transaction
	for _, t := range s.Transactions {
		if t.EnvelopeID == envelopeId {
			transactions = append(transactions, t)
		}
	}
	sortByDateDesc(transactions)
	return transactions, nil
}

func (s *RepositoryStub) ListForUser(ctx context.Context, userId int, domain period.Domain) ([]Transaction, error) {
	var transactions []Transaction
	for _, t := range s.Transactions {
		env, ok := s.Ledger.Envelopes[t.EnvelopeID]
		if !ok {
			continue
		}
		p, ok := s.Ledger.Periods[env.PeriodID]
		if !ok || p.UserID != userId || p.Domain != domain {
			continue
		}
		transactions = append(transactions, t)
	}
	sortByDateDesc(transactions)
	return transactions, nil
}

func (s *RepositoryStub) GetEnvelope(ctx context.Context, id int) (envelope.Envelope, error) {
	return s.Ledger.GetByID(ctx, id)
}

func (s *RepositoryStub) GetPeriod(ctx context.Context, periodId int) (period.Period, error) {
	return s.Ledger.GetPeriod(ctx, periodId)
}

func (s *RepositoryStub) FindSystemEnvelope(ctx context.Context, periodId int) (envelope.Envelope, error) {
	for _, env := range s.Ledger.Envelopes {
		if env.PeriodID == periodId && env.System {
			return env, nil
		}
	}
	return envelope.Envelope{}, envelope.ErrEnvelopeNotFound
}

func (s *RepositoryStub) AdjustFunded(ctx context.Context, envelopeId int, delta decimal.Decimal) error {
	env, ok := s.Ledger.Envelopes[envelopeId]
	if !ok {
		return envelope.ErrEnvelopeNotFound
	}
	env.Funded = env.Funded.Add(delta)
	s.Ledger.Envelopes[envelopeId] = env
	return nil
}

func (s *RepositoryStub) IncrementCapacity(ctx context.Context, periodId int, delta decimal.Decimal) error {
	p, ok := s.Ledger.Periods[periodId]
	if !ok {
		return period.ErrPeriodNotFound
	}
	p.Capacity = p.Capacity.Add(delta)
	s.Ledger.Periods[periodId] = p
	return nil
}

func (s *RepositoryStub) SyncUnallocated(ctx context.Context, periodId int) error {
	return s.Ledger.SyncUnallocated(ctx, periodId)
}

func (s *RepositoryStub) Reset() {
	s.nextId = 0
	s.Transactions = map[int]Transaction{}
	s.Ledger.Reset()
}

func sortByDateDesc(transactions []Transaction) {
	sort.Slice(transactions, func(i, j int) bool {
		if !transactions[i].Date.Equal(transactions[j].Date) {
			return transactions[i].Date.After(transactions[j].Date)
		}
		return transactions[i].ID > transactions[j].ID
	})
}
