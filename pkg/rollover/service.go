package rollover

import (
	"context"
	"errors"
	"time"

	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// GetOrCreatePeriod resolves the canonical period containing date and
	// returns it with its envelopes, creating it lazily on first access.
	// A brand-new key gets the domain's default envelope set; otherwise the
	// latest prior period is cloned, carrying unspent MONEY balances
	// forward when the user has auto-copy enabled.
	GetOrCreatePeriod(ctx context.Context, domain period.Domain, kind period.Kind, date time.Time) (PeriodWithEnvelopes, error)
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) GetOrCreatePeriod(ctx context.Context, domain period.Domain, kind period.Kind, date time.Time) (PeriodWithEnvelopes, error) {
	u, err := user.CurrentUser(ctx)
	if err != nil {
		return PeriodWithEnvelopes{}, err
	}
	startDate := period.StartOfPeriod(date, kind, u.Settings.WeekFirstDay)

	existing, err := s.repo.FindByKey(ctx, u.Id, domain, kind, startDate)
	if err == nil {
		return s.withEnvelopes(ctx, existing)
	}
	if !errors.Is(err, period.ErrPeriodNotFound) {
		return PeriodWithEnvelopes{}, err
	}

	created, err := s.createPeriod(ctx, u, domain, kind, startDate)
	if errors.Is(err, ErrDuplicatePeriod) {
		// Lost the race against a concurrent resolver; the winner's row is
		// the period we wanted.
		log.Debugf("period %s/%s/%s already created concurrently", domain, kind, startDate.Format(time.DateOnly))
		winner, err := s.repo.FindByKey(ctx, u.Id, domain, kind, startDate)
		if err != nil {
			return PeriodWithEnvelopes{}, err
		}
		return s.withEnvelopes(ctx, winner)
	}
	if err != nil {
		return PeriodWithEnvelopes{}, err
	}
	return created, nil
}

func (s *ServiceImpl) withEnvelopes(ctx context.Context, p period.Period) (PeriodWithEnvelopes, error) {
	envelopes, err := s.repo.ListEnvelopes(ctx, p.ID)
	if err != nil {
		return PeriodWithEnvelopes{}, err
	}
	return PeriodWithEnvelopes{Period: p, Envelopes: envelopes}, nil
}

func (s *ServiceImpl) createPeriod(ctx context.Context, u user.User, domain period.Domain, kind period.Kind, startDate time.Time) (PeriodWithEnvelopes, error) {
	var result PeriodWithEnvelopes
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		prior, err := repo.FindLatestBefore(ctx, u.Id, domain, kind, startDate)
		priorExists := err == nil
		if err != nil && !errors.Is(err, period.ErrPeriodNotFound) {
			return err
		}

		var capacity decimal.Decimal
		var envelopes []envelope.Envelope
		if priorExists {
			capacity, envelopes, err = s.cloneFromPrior(ctx, repo, u, domain, prior)
			if err != nil {
				return err
			}
		} else {
			capacity, envelopes = defaultSetup(u, domain)
		}

		periodId, err := repo.CreatePeriod(ctx, period.Period{
			UserID:    u.Id,
			Domain:    domain,
			Kind:      kind,
			StartDate: startDate,
			Capacity:  capacity,
		})
		if err != nil {
			return err
		}
		for _, env := range envelopes {
			env.PeriodID = periodId
			if _, err := repo.CreateEnvelope(ctx, env); err != nil {
				return err
			}
		}
		if err := repo.SyncUnallocated(ctx, periodId); err != nil {
			return err
		}

		created, err := repo.FindByKey(ctx, u.Id, domain, kind, startDate)
		if err != nil {
			return err
		}
		synced, err := repo.ListEnvelopes(ctx, periodId)
		if err != nil {
			return err
		}
		result = PeriodWithEnvelopes{Period: created, Envelopes: synced}
		return nil
	})
	if err != nil {
		return PeriodWithEnvelopes{}, err
	}
	log.Infof("created %s %s period starting %s for user %d", result.Period.Domain, result.Period.Kind, startDate.Format(time.DateOnly), u.Id)
	return result, nil
}

// cloneFromPrior builds the new period's capacity and envelope set from the
// latest prior period. MONEY envelopes carry their unspent funded balance
// forward; TIME envelopes restart with funded equal to budgeted while the
// prior period's capacity, including any customization, carries over.
func (s *ServiceImpl) cloneFromPrior(ctx context.Context, repo Repository, u user.User, domain period.Domain, prior period.Period) (decimal.Decimal, []envelope.Envelope, error) {
	priorEnvelopes, err := repo.ListEnvelopes(ctx, prior.ID)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}

	baseCapacity := prior.Capacity
	if domain == period.DomainMoney {
		baseCapacity = u.Settings.BaseIncome
	}

	if !u.Settings.AutoCopy() {
		// Zero-based budgeting keeps the envelope structure but nothing else.
		var envelopes []envelope.Envelope
		for _, prev := range priorEnvelopes {
			if prev.System {
				continue
			}
			envelopes = append(envelopes, envelope.Envelope{
				Name:     prev.Name,
				Color:    prev.Color,
				Budgeted: decimal.Zero,
				Funded:   decimal.Zero,
			})
		}
		return baseCapacity, envelopes, nil
	}

	if domain == period.DomainTime {
		var envelopes []envelope.Envelope
		for _, prev := range priorEnvelopes {
			if prev.System {
				continue
			}
			envelopes = append(envelopes, envelope.Envelope{
				Name:     prev.Name,
				Color:    prev.Color,
				Budgeted: prev.Budgeted,
				Funded:   prev.Budgeted,
			})
		}
		return baseCapacity, envelopes, nil
	}

	spent, err := repo.SumExpensesByEnvelope(ctx, prior.ID)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	totalRollover := decimal.Zero
	var envelopes []envelope.Envelope
	for _, prev := range priorEnvelopes {
		leftover := prev.Funded
		if expensed, ok := spent[prev.ID]; ok {
			leftover = leftover.Sub(expensed)
		}
		totalRollover = totalRollover.Add(leftover)
		if prev.System {
			// Unallocated's leftover flows into capacity; the envelope
			// itself is re-derived by the sync.
			continue
		}
		envelopes = append(envelopes, envelope.Envelope{
			Name:     prev.Name,
			Color:    prev.Color,
			Budgeted: prev.Budgeted,
			Funded:   leftover,
		})
	}
	capacity := baseCapacity.Add(totalRollover)
	return capacity, envelopes, nil
}

// defaultSetup returns the starter capacity and envelope set for a user's
// very first period in a domain.
func defaultSetup(u user.User, domain period.Domain) (decimal.Decimal, []envelope.Envelope) {
	if domain == period.DomainTime {
		capacity := u.Settings.TimeCapacity
		return capacity, []envelope.Envelope{
			{Name: "Work", Color: "blue", Budgeted: decimal.NewFromInt(40), Funded: decimal.NewFromInt(40)},
			{Name: "Sleep", Color: "purple", Budgeted: decimal.NewFromInt(56), Funded: decimal.NewFromInt(56)},
			{Name: "Leisure", Color: "green", Budgeted: decimal.NewFromInt(20), Funded: decimal.NewFromInt(20)},
		}
	}
	return u.Settings.BaseIncome, []envelope.Envelope{
		{Name: "Rent", Color: "red", Budgeted: decimal.NewFromInt(1500), Funded: decimal.Zero},
		{Name: "Groceries", Color: "orange", Budgeted: decimal.NewFromInt(400), Funded: decimal.Zero},
		{Name: "Entertainment", Color: "teal", Budgeted: decimal.NewFromInt(100), Funded: decimal.Zero},
	}
}
