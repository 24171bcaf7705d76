package envelope

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	GetByID(ctx context.Context, id int) (Envelope, error)
	ListForPeriod(ctx context.Context, periodId int) ([]Envelope, error)
	Create(ctx context.Context, env Envelope) (int, error)
	Update(ctx context.Context, env Envelope) error
	Delete(ctx context.Context, id int) error
	GetPeriod(ctx context.Context, periodId int) (period.Period, error)
	UpdatePeriodCapacity(ctx context.Context, periodId int, capacity decimal.Decimal) error
	// SyncUnallocated re-derives the Unallocated envelope of the period.
	// Inside WithTransaction it participates in the surrounding transaction.
	SyncUnallocated(ctx context.Context, periodId int) error
}

type repositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) getQueryer() Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &repositoryImpl{db: r.db, tx: tx}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetByID(ctx context.Context, id int) (Envelope, error) {
	query := `SELECT id, period_id, name, color, budgeted, funded, is_system
				FROM envelope WHERE id = $1`
	env, err := scanEnvelope(r.getQueryer().QueryRow(ctx, query, id))
	if err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (r *repositoryImpl) ListForPeriod(ctx context.Context, periodId int) ([]Envelope, error) {
	query := `SELECT id, period_id, name, color, budgeted, funded, is_system
				FROM envelope WHERE period_id = $1 ORDER BY is_system, id`
	rows, err := r.getQueryer().Query(ctx, query, periodId)
	if err != nil {
		log.Errorf("could not query envelopes: %v", err)
		return nil, err
	}
	defer rows.Close()

	var envelopes []Envelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over envelope rows: %v", err)
		return nil, err
	}
	return envelopes, nil
}

func (r *repositoryImpl) Create(ctx context.Context, env Envelope) (int, error) {
	query := `INSERT INTO envelope (period_id, name, color, budgeted, funded, is_system)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int
	err := r.getQueryer().QueryRow(ctx, query,
		env.PeriodID,
		env.Name,
		env.Color,
		env.Budgeted.String(),
		env.Funded.String(),
		env.System,
	).Scan(&id)
	if err != nil {
		log.Errorf("could not create envelope: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *repositoryImpl) Update(ctx context.Context, env Envelope) error {
	query := `UPDATE envelope SET name = $1, color = $2, budgeted = $3, funded = $4 WHERE id = $5`
	tag, err := r.getQueryer().Exec(ctx, query,
		env.Name,
		env.Color,
		env.Budgeted.String(),
		env.Funded.String(),
		env.ID,
	)
	if err != nil {
		log.Errorf("could not update envelope: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEnvelopeNotFound
	}
	return nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id int) error {
	tag, err := r.getQueryer().Exec(ctx, "DELETE FROM envelope WHERE id = $1", id)
	if err != nil {
		log.Errorf("could not delete envelope: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEnvelopeNotFound
	}
	return nil
}

func (r *repositoryImpl) GetPeriod(ctx context.Context, periodId int) (period.Period, error) {
	query := `SELECT id, user_id, domain, kind, start_date, capacity
				FROM budget_period WHERE id = $1`
	var p period.Period
	var domain, kind, capacity string
	err := r.getQueryer().QueryRow(ctx, query, periodId).Scan(&p.ID, &p.UserID, &domain, &kind, &p.StartDate, &capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return period.Period{}, period.ErrPeriodNotFound
	}
	if err != nil {
		log.Errorf("failed to read period: %v", err)
		return period.Period{}, err
	}
	p.Domain = period.Domain(domain)
	p.Kind = period.Kind(kind)
	if p.Capacity, err = decimal.NewFromString(capacity); err != nil {
		return period.Period{}, err
	}
	return p, nil
}

func (r *repositoryImpl) UpdatePeriodCapacity(ctx context.Context, periodId int, capacity decimal.Decimal) error {
	tag, err := r.getQueryer().Exec(ctx,
		"UPDATE budget_period SET capacity = $1 WHERE id = $2", capacity.String(), periodId)
	if err != nil {
		log.Errorf("could not update period capacity: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return period.ErrPeriodNotFound
	}
	return nil
}

func (r *repositoryImpl) SyncUnallocated(ctx context.Context, periodId int) error {
	return SyncUnallocated(ctx, r.getQueryer(), periodId)
}

func scanEnvelope(row pgx.Row) (Envelope, error) {
	var env Envelope
	var budgeted, funded string
	err := row.Scan(&env.ID, &env.PeriodID, &env.Name, &env.Color, &budgeted, &funded, &env.System)
	if errors.Is(err, pgx.ErrNoRows) {
		return Envelope{}, ErrEnvelopeNotFound
	}
	if err != nil {
		log.Errorf("could not scan envelope: %v", err)
		return Envelope{}, err
	}
	if env.Budgeted, err = decimal.NewFromString(budgeted); err != nil {
		return Envelope{}, err
	}
	if env.Funded, err = decimal.NewFromString(funded); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
