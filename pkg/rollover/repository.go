package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	FindByKey(ctx context.Context, userId int, domain period.Domain, kind period.Kind, startDate time.Time) (period.Period, error)
	// FindLatestBefore returns the most recent period of the same key that
	// starts strictly before startDate.
	FindLatestBefore(ctx context.Context, userId int, domain period.Domain, kind period.Kind, startDate time.Time) (period.Period, error)
	ListEnvelopes(ctx context.Context, periodId int) ([]envelope.Envelope, error)
	// SumExpensesByEnvelope returns the total EXPENSE amount recorded
	// against each envelope of the period. Envelopes without expenses are
	// absent from the map.
	SumExpensesByEnvelope(ctx context.Context, periodId int) (map[int]decimal.Decimal, error)
	// CreatePeriod inserts a new period row. A unique index on
	// (user_id, domain, kind, start_date) guards concurrent creation;
	// losing the race returns ErrDuplicatePeriod.
	CreatePeriod(ctx context.Context, p period.Period) (int, error)
	CreateEnvelope(ctx context.Context, env envelope.Envelope) (int, error)
	SyncUnallocated(ctx context.Context, periodId int) error
}

type repositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) getQueryer() envelope.Querier {
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
	return tx.Commit(ctx)
}

func (r *repositoryImpl) FindByKey(ctx context.Context, userId int, domain period.Domain, kind period.Kind, startDate time.Time) (period.Period, error) {
	row := r.getQueryer().QueryRow(ctx,
		`SELECT id, user_id, domain, kind, start_date, capacity
		 FROM budget_period
		 WHERE user_id = $1 AND domain = $2 AND kind = $3 AND start_date = $4`,
		userId, domain, kind, startDate,
	)
	return scanPeriod(row)
}

func (r *repositoryImpl) FindLatestBefore(ctx context.Context, userId int, domain period.Domain, kind period.Kind, startDate time.Time) (period.Period, error) {
	row := r.getQueryer().QueryRow(ctx,
		`SELECT id, user_id, domain, kind, start_date, capacity
		 FROM budget_period
		 WHERE user_id = $1 AND domain = $2 AND kind = $3 AND start_date < $4
		 ORDER BY start_date DESC
		 LIMIT 1`,
		userId, domain, kind, startDate,
	)
	return scanPeriod(row)
}

func (r *repositoryImpl) ListEnvelopes(ctx context.Context, periodId int) ([]envelope.Envelope, error) {
	rows, err := r.getQueryer().Query(ctx,
		`SELECT id, period_id, name, color, budgeted, funded, is_system
		 FROM envelope
		 WHERE period_id = $1
		 ORDER BY is_system, id`,
		periodId,
	)
	if err != nil {
		return nil, fmt.Errorf("query envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []envelope.Envelope
	for rows.Next() {
		var env envelope.Envelope
		var budgeted, funded string
		if err := rows.Scan(&env.ID, &env.PeriodID, &env.Name, &env.Color, &budgeted, &funded, &env.System); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		if env.Budgeted, err = decimal.NewFromString(budgeted); err != nil {
			return nil, fmt.Errorf("parse budgeted: %w", err)
		}
		if env.Funded, err = decimal.NewFromString(funded); err != nil {
			return nil, fmt.Errorf("parse funded: %w", err)
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, rows.Err()
}

func (r *repositoryImpl) SumExpensesByEnvelope(ctx context.Context, periodId int) (map[int]decimal.Decimal, error) {
	rows, err := r.getQueryer().Query(ctx,
		`SELECT t.envelope_id, COALESCE(SUM(t.amount), 0)
		 FROM transaction t
		 JOIN envelope e ON e.id = t.envelope_id
		 WHERE e.period_id = $1 AND t.kind = 'EXPENSE'
		 GROUP BY t.envelope_id`,
		periodId,
	)
	if err != nil {
		return nil, fmt.Errorf("query expense totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[int]decimal.Decimal)
	for rows.Next() {
		var envelopeId int
		var sum string
		if err := rows.Scan(&envelopeId, &sum); err != nil {
			return nil, fmt.Errorf("scan expense total: %w", err)
		}
		total, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("parse expense total: %w", err)
		}
		totals[envelopeId] = total
	}
	return totals, rows.Err()
}

func (r *repositoryImpl) CreatePeriod(ctx context.Context, p period.Period) (int, error) {
	var id int
	err := r.getQueryer().QueryRow(ctx,
		`INSERT INTO budget_period (user_id, domain, kind, start_date, capacity)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.UserID, p.Domain, p.Kind, p.StartDate, p.Capacity.String(),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicatePeriod
		}
		return 0, fmt.Errorf("insert period: %w", err)
	}
	return id, nil
}

func (r *repositoryImpl) CreateEnvelope(ctx context.Context, env envelope.Envelope) (int, error) {
	var id int
	err := r.getQueryer().QueryRow(ctx,
		`INSERT INTO envelope (period_id, name, color, budgeted, funded, is_system)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		env.PeriodID, env.Name, env.Color, env.Budgeted.String(), env.Funded.String(), env.System,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert envelope: %w", err)
	}
	return id, nil
}

func (r *repositoryImpl) SyncUnallocated(ctx context.Context, periodId int) error {
	return envelope.SyncUnallocated(ctx, r.getQueryer(), periodId)
}

func scanPeriod(row pgx.Row) (period.Period, error) {
	var p period.Period
	var capacity string
	err := row.Scan(&p.ID, &p.UserID, &p.Domain, &p.Kind, &p.StartDate, &capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return period.Period{}, period.ErrPeriodNotFound
	}
	if err != nil {
		return period.Period{}, fmt.Errorf("scan period: %w", err)
	}
	if p.Capacity, err = decimal.NewFromString(capacity); err != nil {
		return period.Period{}, fmt.Errorf("parse capacity: %w", err)
	}
	return p, nil
}
