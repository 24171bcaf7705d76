package envelope

import (
	"context"
	"sort"

	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
)

// RepositoryStub is an in-memory Repository for service tests. It mirrors the
// ledger semantics of the SQL implementation, including the derived
// Unallocated envelope.
type RepositoryStub struct {
	nextId    int
	Periods   map[int]period.Period
	Envelopes map[int]Envelope
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		Periods:   map[int]period.Period{},
		Envelopes: map[int]Envelope{},
	}
}

// SeedPeriod registers a period the stub will serve through GetPeriod.
func (s *RepositoryStub) SeedPeriod(p period.Period) {
	s.Periods[p.ID] = p
}

func (s *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return fn(s)
}

func (s *RepositoryStub) GetByID(ctx context.Context, id int) (Envelope, error) {
	env, ok := s.Envelopes[id]
	if !ok {
		return Envelope{}, ErrEnvelopeNotFound
	}
	return env, nil
}

func (s *RepositoryStub) ListForPeriod(ctx context.Context, periodId int) ([]Envelope, error) {
	var envelopes []Envelope
	for _, env := range s.Envelopes {
		if env.PeriodID == periodId {
			envelopes = append(envelopes, env)
		}
	}
	sort.Slice(envelopes, func(i, j int) bool {
		if envelopes[i].System != envelopes[j].System {
			return !envelopes[i].System
		}
		return envelopes[i].ID < envelopes[j].ID
	})
	return envelopes, nil
}

func (s *RepositoryStub) Create(ctx context.Context, env Envelope) (int, error) {
	s.nextId++
	env.ID = s.nextId
	s.Envelopes[env.ID] = env
	return env.ID, nil
}

func (s *RepositoryStub) Update(ctx context.Context, env Envelope) error {
	if _, ok := s.Envelopes[env.ID]; !ok {
		return ErrEnvelopeNotFound
	}
	s.Envelopes[env.ID] = env
	return nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	if _, ok := s.Envelopes[id]; !ok {
		return ErrEnvelopeNotFound
	}
	delete(s.Envelopes, id)
	return nil
}

func (s *RepositoryStub) GetPeriod(ctx context.Context, periodId int) (period.Period, error) {
	p, ok := s.Periods[periodId]
	if !ok {
		return period.Period{}, period.ErrPeriodNotFound
	}
	return p, nil
}

func (s *RepositoryStub) UpdatePeriodCapacity(ctx context.Context, periodId int, capacity decimal.Decimal) error {
	p, ok := s.Periods[periodId]
	if !ok {
		return period.ErrPeriodNotFound
	}
	p.Capacity = capacity
	s.Periods[periodId] = p
	return nil
}

func (s *RepositoryStub) SyncUnallocated(ctx context.Context, periodId int) error {
	p, ok := s.Periods[periodId]
	if !ok {
		return ErrPeriodGone
	}

	totalBudgeted := decimal.Zero
	totalFunded := decimal.Zero
	var system *Envelope
	for id := range s.Envelopes {
		env := s.Envelopes[id]
		if env.PeriodID != periodId {
			continue
		}
		if env.System {
			system = &env
			continue
		}
		totalBudgeted = totalBudgeted.Add(env.Budgeted)
		totalFunded = totalFunded.Add(env.Funded)
	}

	budgeted := p.Capacity.Sub(totalBudgeted)
	funded := p.Capacity.Sub(totalFunded)

	if system != nil {
		system.Budgeted = budgeted
		system.Funded = funded
		s.Envelopes[system.ID] = *system
		return nil
	}
	_, err := s.Create(ctx, Envelope{
		PeriodID: periodId,
		Name:     UnallocatedName,
		Color:    unallocatedColor,
		Budgeted: budgeted,
		Funded:   funded,
		System:   true,
	})
	return err
}

func (s *RepositoryStub) Reset() {
	s.nextId = 0
	s.Periods = map[int]period.Period{}
	s.Envelopes = map[int]Envelope{}
}
