package envelope

import (
	"context"
	"fmt"
	"strings"

	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	ListForPeriod(ctx context.Context, periodId int) ([]Envelope, error)
	// Create adds a regular envelope to the period. The reserved Unallocated
	// name is rejected; the system envelope is only ever created by the
	// ledger sync.
	Create(ctx context.Context, periodId int, name string, budgeted decimal.Decimal, color string) (Envelope, error)
	Update(ctx context.Context, id int, update Update) (Envelope, error)
	Delete(ctx context.Context, id int) error
	// UpdatePeriodCapacity sets the period's total capacity and re-derives
	// the Unallocated envelope in the same store transaction.
	UpdatePeriodCapacity(ctx context.Context, periodId int, capacity decimal.Decimal) (period.Period, error)
}

// Update carries the caller-editable envelope fields; nil means unchanged.
type Update struct {
	Name     *string
	Budgeted *decimal.Decimal
	Color    *string
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) ListForPeriod(ctx context.Context, periodId int) ([]Envelope, error) {
	if _, err := s.getOwnedPeriod(ctx, s.repo, periodId); err != nil {
		return nil, err
	}
	return s.repo.ListForPeriod(ctx, periodId)
}

func (s *ServiceImpl) Create(ctx context.Context, periodId int, name string, budgeted decimal.Decimal, color string) (Envelope, error) {
	if strings.EqualFold(name, UnallocatedName) {
		return Envelope{}, ErrReservedName
	}

	var created Envelope
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		p, err := s.getOwnedPeriod(ctx, repo, periodId)
		if err != nil {
			return err
		}

		env := Envelope{
			PeriodID: periodId,
			Name:     name,
			Color:    color,
			Budgeted: budgeted,
			Funded:   fundedFor(p.Domain, budgeted, decimal.Zero),
		}
		id, err := repo.Create(ctx, env)
		if err != nil {
			return err
		}
		env.ID = id
		created = env
		return repo.SyncUnallocated(ctx, periodId)
	})
	if err != nil {
		return Envelope{}, err
	}
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id int, update Update) (Envelope, error) {
	var updated Envelope
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		env, p, err := s.getOwned(ctx, repo, id)
		if err != nil {
			return err
		}
		if env.System {
			log.Warnf("rejected update of system envelope %d", id)
			return ErrProtectedEnvelope
		}

		if update.Name != nil {
			if strings.EqualFold(*update.Name, UnallocatedName) {
				return ErrReservedName
			}
			env.Name = *update.Name
		}
		if update.Color != nil {
			env.Color = *update.Color
		}
		if update.Budgeted != nil {
			env.Budgeted = *update.Budgeted
			env.Funded = fundedFor(p.Domain, env.Budgeted, env.Funded)
		}

		if err := repo.Update(ctx, env); err != nil {
			return err
		}
		updated = env
		return repo.SyncUnallocated(ctx, env.PeriodID)
	})
	if err != nil {
		return Envelope{}, err
	}
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.WithTransaction(ctx, func(repo Repository) error {
		env, _, err := s.getOwned(ctx, repo, id)
		if err != nil {
			return err
		}
		if env.System {
			log.Warnf("rejected deletion of system envelope %d", id)
			return ErrProtectedEnvelope
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return repo.SyncUnallocated(ctx, env.PeriodID)
	})
}

func (s *ServiceImpl) UpdatePeriodCapacity(ctx context.Context, periodId int, capacity decimal.Decimal) (period.Period, error) {
	var updated period.Period
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		p, err := s.getOwnedPeriod(ctx, repo, periodId)
		if err != nil {
			return err
		}
		if err := repo.UpdatePeriodCapacity(ctx, periodId, capacity); err != nil {
			return err
		}
		p.Capacity = capacity
		updated = p
		return repo.SyncUnallocated(ctx, periodId)
	})
	if err != nil {
		return period.Period{}, err
	}
	return updated, nil
}

func (s *ServiceImpl) getOwned(ctx context.Context, repo Repository, id int) (Envelope, period.Period, error) {
	env, err := repo.GetByID(ctx, id)
	if err != nil {
		return Envelope{}, period.Period{}, err
	}
	p, err := s.getOwnedPeriod(ctx, repo, env.PeriodID)
	if err != nil {
		return Envelope{}, period.Period{}, err
	}
	return env, p, nil
}

func (s *ServiceImpl) getOwnedPeriod(ctx context.Context, repo Repository, periodId int) (period.Period, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return period.Period{}, fmt.Errorf("failed to get current user: %w", err)
	}
	p, err := repo.GetPeriod(ctx, periodId)
	if err != nil {
		return period.Period{}, err
	}
	if p.UserID != userId {
		log.Warnf("user %d attempted to access period %d owned by user %d", userId, periodId, p.UserID)
		return period.Period{}, apperr.ErrUnauthorized
	}
	return p, nil
}

// fundedFor keeps the TIME-domain invariant that funded always mirrors the
// budgeted target. MONEY envelopes keep their independently tracked balance.
func fundedFor(domain period.Domain, budgeted, current decimal.Decimal) decimal.Decimal {
	if domain == period.DomainTime {
		return budgeted
	}
	return current
}
