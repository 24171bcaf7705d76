package summary

import (
	"context"

	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/transaction"
	"github.com/shopspring/decimal"
)

// RepositoryStub is an in-memory read-only Repository for service tests,
// sharing period and envelope state with an envelope.RepositoryStub.
type RepositoryStub struct {
	Ledger       *envelope.RepositoryStub
	Expenses     map[int]decimal.Decimal
	Transactions map[int][]transaction.Transaction
}

func NewRepositoryStub(ledger *envelope.RepositoryStub) *RepositoryStub {
	return &RepositoryStub{
		Ledger:       ledger,
		Expenses:     map[int]decimal.Decimal{},
		Transactions: map[int][]transaction.Transaction{},
	}
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

func (s *RepositoryStub) GetEnvelope(ctx context.Context, id int) (envelope.Envelope, error) {
	return s.Ledger.GetByID(ctx, id)
}

func (s *RepositoryStub) GetPeriod(ctx context.Context, periodId int) (period.Period, error) {
	return s.Ledger.GetPeriod(ctx, periodId)
}

func (s *RepositoryStub) ListTransactions(ctx context.Context, envelopeId int) ([]transaction.Transaction, error) {
	return s.Transactions[envelopeId], nil
}

func (s *RepositoryStub) Reset() {
	s.Expenses = map[int]decimal.Decimal{}
	s.Transactions = map[int][]transaction.Transaction{}
	s.Ledger.Reset()
}
