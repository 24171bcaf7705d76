package summary

import (
	"context"
	"time"

	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/rollover"
	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
)

type Service interface {
	// GetSummary resolves the period containing date (creating it lazily)
	// and projects per-envelope and period totals. Pure read apart from the
	// lazy creation; safe to call any number of times.
	GetSummary(ctx context.Context, domain period.Domain, kind period.Kind, date time.Time) (PeriodSummary, error)
	// GetEnvelopeDetails returns one envelope with its derived figures and
	// ordered transaction history.
	GetEnvelopeDetails(ctx context.Context, envelopeId int) (EnvelopeDetails, error)
}

type ServiceImpl struct {
	repo     Repository
	rollover rollover.Service
}

func NewService(repo Repository, rolloverService rollover.Service) *ServiceImpl {
	return &ServiceImpl{repo: repo, rollover: rolloverService}
}

func (s *ServiceImpl) GetSummary(ctx context.Context, domain period.Domain, kind period.Kind, date time.Time) (PeriodSummary, error) {
	u, err := user.CurrentUser(ctx)
	if err != nil {
		return PeriodSummary{}, err
	}
	resolved, err := s.rollover.GetOrCreatePeriod(ctx, domain, kind, date)
	if err != nil {
		return PeriodSummary{}, err
	}
	spent, err := s.repo.SumExpensesByEnvelope(ctx, resolved.Period.ID)
	if err != nil {
		return PeriodSummary{}, err
	}

	result := PeriodSummary{
		Period:         resolved.Period,
		Currency:       u.Settings.Currency,
		TotalBudgeted:  decimal.Zero,
		TotalFunded:    decimal.Zero,
		TotalSpent:     decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	for _, env := range resolved.Envelopes {
		es := project(env, spent[env.ID])
		result.Envelopes = append(result.Envelopes, es)
		result.TotalBudgeted = result.TotalBudgeted.Add(env.Budgeted)
		result.TotalFunded = result.TotalFunded.Add(env.Funded)
		result.TotalSpent = result.TotalSpent.Add(es.Spent)
	}
	if domain == period.DomainTime {
		result.TotalRemaining = resolved.Period.Capacity.Sub(result.TotalSpent)
	} else {
		result.TotalRemaining = result.TotalBudgeted.Sub(result.TotalSpent)
	}
	return result, nil
}

func (s *ServiceImpl) GetEnvelopeDetails(ctx context.Context, envelopeId int) (EnvelopeDetails, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return EnvelopeDetails{}, err
	}
	env, err := s.repo.GetEnvelope(ctx, envelopeId)
	if err != nil {
		return EnvelopeDetails{}, err
	}
	p, err := s.repo.GetPeriod(ctx, env.PeriodID)
	if err != nil {
		return EnvelopeDetails{}, err
	}
	if p.UserID != userId {
		return EnvelopeDetails{}, apperr.ErrUnauthorized
	}
	spent, err := s.repo.SumExpensesByEnvelope(ctx, p.ID)
	if err != nil {
		return EnvelopeDetails{}, err
	}
	transactions, err := s.repo.ListTransactions(ctx, envelopeId)
	if err != nil {
		return EnvelopeDetails{}, err
	}
	return EnvelopeDetails{
		EnvelopeSummary: project(env, spent[env.ID]),
		Transactions:    transactions,
	}, nil
}

func project(env envelope.Envelope, spent decimal.Decimal) EnvelopeSummary {
	return EnvelopeSummary{
		Envelope:  env,
		Spent:     spent,
		Remaining: env.Funded.Sub(spent),
	}
}
