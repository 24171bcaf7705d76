package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/internal/utils"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// RecordExpense appends an EXPENSE entry against the envelope. Funded
	// values are untouched; the envelope's spent total is derived from its
	// expense history on read.
	RecordExpense(ctx context.Context, envelopeId int, amount decimal.Decimal, meta Metadata) (Transaction, error)
	// RecordIncome deposits amount into the period: capacity grows, the
	// Unallocated envelope absorbs the new money, and an INCOME audit entry
	// is written. All in one store transaction.
	RecordIncome(ctx context.Context, periodId int, amount decimal.Decimal) (Transaction, error)
	// Transfer moves funded balance between two envelopes of the same
	// period. Capacity is unchanged. The source may go negative; that is a
	// soft overdraft signal, not an error.
	Transfer(ctx context.Context, fromId, toId int, amount decimal.Decimal) ([]Transaction, error)
	// FillEnvelopes is income followed by transfers out of Unallocated.
	// The income commits as its own atomic step before any transfer runs,
	// and each transfer commits independently: if a transfer fails, the
	// income and all earlier transfers stay applied, and the error reports
	// how far the fill got. Callers must not blindly retry the whole fill.
	FillEnvelopes(ctx context.Context, periodId int, total decimal.Decimal, allocations []Allocation, description string) error
	List(ctx context.Context, domain period.Domain) ([]Transaction, error)
	// UpdateTransaction edits an audit entry. Spent totals being derived,
	// the edit shifts them on the next read; funded values are never
	// rebalanced retroactively.
	UpdateTransaction(ctx context.Context, id int, update Update) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int) error
}

// Update carries the editable transaction fields; nil means unchanged.
type Update struct {
	EnvelopeID  *int
	Amount      *decimal.Decimal
	Description *string
	Entity      *string
	Reference   *string
	Date        *time.Time
	StartTime   *time.Time
	EndTime     *time.Time
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewService(repo Repository, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock}
}

func (s *ServiceImpl) RecordExpense(ctx context.Context, envelopeId int, amount decimal.Decimal, meta Metadata) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	var created Transaction
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		env, _, err := s.getOwnedEnvelope(ctx, repo, envelopeId)
		if err != nil {
			return err
		}

		t := Transaction{
			EnvelopeID:  env.ID,
			Kind:        KindExpense,
			Amount:      amount,
			Description: meta.Description,
			Entity:      meta.Entity,
			Reference:   meta.Reference,
			Date:        meta.Date,
			StartTime:   meta.StartTime,
			EndTime:     meta.EndTime,
		}
		if t.Date.IsZero() {
			t.Date = s.clock.Now()
		}
		id, err := repo.Insert(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		created = t
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return created, nil
}

func (s *ServiceImpl) RecordIncome(ctx context.Context, periodId int, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	var created Transaction
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		if _, err := s.getOwnedPeriod(ctx, repo, periodId); err != nil {
			return err
		}
		if err := repo.IncrementCapacity(ctx, periodId, amount); err != nil {
			return err
		}
		// The sync recomputes Unallocated from the new capacity, so the
		// deposit lands there in both budgeted and funded.
		if err := repo.SyncUnallocated(ctx, periodId); err != nil {
			return err
		}
		unallocated, err := repo.FindSystemEnvelope(ctx, periodId)
		if err != nil {
			return err
		}

		t := Transaction{
			EnvelopeID:  unallocated.ID,
			Kind:        KindIncome,
			Amount:      amount,
			Description: "Income",
			Date:        s.clock.Now(),
		}
		id, err := repo.Insert(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		created = t
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return created, nil
}

func (s *ServiceImpl) Transfer(ctx context.Context, fromId, toId int, amount decimal.Decimal) ([]Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if fromId == toId {
		return nil, ErrSameEnvelope
	}

	var entries []Transaction
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		from, _, err := s.getOwnedEnvelope(ctx, repo, fromId)
		if err != nil {
			return err
		}
		to, _, err := s.getOwnedEnvelope(ctx, repo, toId)
		if err != nil {
			return err
		}
		if from.PeriodID != to.PeriodID {
			return ErrCrossPeriodTransfer
		}

		if err := repo.AdjustFunded(ctx, from.ID, amount.Neg()); err != nil {
			return err
		}
		if err := repo.AdjustFunded(ctx, to.ID, amount); err != nil {
			return err
		}

		if from.Funded.Sub(amount).IsNegative() {
			log.Debugf("transfer overdraws envelope %d (%s)", from.ID, from.Name)
		}

		now := s.clock.Now()
		outgoing := Transaction{
			EnvelopeID:     from.ID,
			DestEnvelopeID: &to.ID,
			Kind:           KindTransfer,
			Amount:         amount,
			Description:    fmt.Sprintf("Transferred to %s", to.Name),
			Date:           now,
		}
		incoming := Transaction{
			EnvelopeID:     to.ID,
			DestEnvelopeID: &from.ID,
			Kind:           KindTransfer,
			Amount:         amount,
			Description:    fmt.Sprintf("Received from %s", from.Name),
			Date:           now,
		}
		for _, t := range []*Transaction{&outgoing, &incoming} {
			id, err := repo.Insert(ctx, *t)
			if err != nil {
				return err
			}
			t.ID = id
		}
		entries = []Transaction{outgoing, incoming}

		return repo.SyncUnallocated(ctx, from.PeriodID)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *ServiceImpl) FillEnvelopes(ctx context.Context, periodId int, total decimal.Decimal, allocations []Allocation, description string) error {
	if !total.IsPositive() {
		return ErrInvalidAmount
	}
	if description == "" {
		description = "Income Fill"
	}

	income, err := s.RecordIncome(ctx, periodId, total)
	if err != nil {
		return fmt.Errorf("fill income failed, nothing applied: %w", err)
	}
	log.Debugf("fill recorded income %d of %s into period %d", income.ID, total, periodId)

	unallocated, err := s.repo.FindSystemEnvelope(ctx, periodId)
	if err != nil {
		return fmt.Errorf("fill income committed but unallocated envelope missing: %w", err)
	}

	for i, alloc := range allocations {
		if !alloc.Amount.IsPositive() {
			continue
		}
		if _, err := s.Transfer(ctx, unallocated.ID, alloc.EnvelopeID, alloc.Amount); err != nil {
			return fmt.Errorf("fill stopped at allocation %d of %d: income and %d earlier transfers are committed: %w",
				i+1, len(allocations), i, err)
		}
	}
	return nil
}

func (s *ServiceImpl) List(ctx context.Context, domain period.Domain) ([]Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListForUser(ctx, userId, domain)
}

func (s *ServiceImpl) UpdateTransaction(ctx context.Context, id int, update Update) (Transaction, error) {
	if update.Amount != nil && !update.Amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	var updated Transaction
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, _, err := s.getOwnedEnvelope(ctx, repo, t.EnvelopeID); err != nil {
			return err
		}

		if update.EnvelopeID != nil {
			// Moving an entry still has to stay within the caller's data.
			if _, _, err := s.getOwnedEnvelope(ctx, repo, *update.EnvelopeID); err != nil {
				return err
			}
			t.EnvelopeID = *update.EnvelopeID
		}
		if update.Amount != nil {
			t.Amount = *update.Amount
		}
		if update.Description != nil {
			t.Description = *update.Description
		}
		if update.Entity != nil {
			t.Entity = *update.Entity
		}
		if update.Reference != nil {
			t.Reference = *update.Reference
		}
		if update.Date != nil {
			t.Date = *update.Date
		}
		if update.StartTime != nil {
			t.StartTime = update.StartTime
		}
		if update.EndTime != nil {
			t.EndTime = update.EndTime
		}

		if err := repo.Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return updated, nil
}

func (s *ServiceImpl) DeleteTransaction(ctx context.Context, id int) error {
	return s.repo.WithTransaction(ctx, func(repo Repository) error {
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, _, err := s.getOwnedEnvelope(ctx, repo, t.EnvelopeID); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

func (s *ServiceImpl) getOwnedEnvelope(ctx context.Context, repo Repository, envelopeId int) (envelope.Envelope, period.Period, error) {
	env, err := repo.GetEnvelope(ctx, envelopeId)
	if err != nil {
		return envelope.Envelope{}, period.Period{}, err
	}
	p, err := s.checkPeriodOwner(ctx, repo, env.PeriodID)
	if err != nil {
		return envelope.Envelope{}, period.Period{}, err
	}
	return env, p, nil
}

func (s *ServiceImpl) getOwnedPeriod(ctx context.Context, repo Repository, periodId int) (period.Period, error) {
	return s.checkPeriodOwner(ctx, repo, periodId)
}

func (s *ServiceImpl) checkPeriodOwner(ctx context.Context, repo Repository, periodId int) (period.Period, error) {
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
