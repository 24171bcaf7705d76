package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/transaction"
	"github.com/shopspring/decimal"
)

// Repository is the read-only store surface of the aggregator. It never
// writes; lazy period creation is delegated to the rollover engine.
type Repository interface {
	SumExpensesByEnvelope(ctx context.Context, periodId int) (map[int]decimal.Decimal, error)
	GetEnvelope(ctx context.Context, id int) (envelope.Envelope, error)
	GetPeriod(ctx context.Context, periodId int) (period.Period, error)
	ListTransactions(ctx context.Context, envelopeId int) ([]transaction.Transaction, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) SumExpensesByEnvelope(ctx context.Context, periodId int) (map[int]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx,
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

func (r *repositoryImpl) GetEnvelope(ctx context.Context, id int) (envelope.Envelope, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, period_id, name, color, budgeted, funded, is_system
		 FROM envelope
		 WHERE id = $1`,
		id,
	)
	var env envelope.Envelope
	var budgeted, funded string
	err := row.Scan(&env.ID, &env.PeriodID, &env.Name, &env.Color, &budgeted, &funded, &env.System)
	if errors.Is(err, pgx.ErrNoRows) {
		return envelope.Envelope{}, envelope.ErrEnvelopeNotFound
	}
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("scan envelope: %w", err)
	}
	if env.Budgeted, err = decimal.NewFromString(budgeted); err != nil {
		return envelope.Envelope{}, fmt.Errorf("parse budgeted: %w", err)
	}
	if env.Funded, err = decimal.NewFromString(funded); err != nil {
		return envelope.Envelope{}, fmt.Errorf("parse funded: %w", err)
	}
	return env, nil
}

func (r *repositoryImpl) GetPeriod(ctx context.Context, periodId int) (period.Period, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, domain, kind, start_date, capacity
		 FROM budget_period
		 WHERE id = $1`,
		periodId,
	)
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

func (r *repositoryImpl) ListTransactions(ctx context.Context, envelopeId int) ([]transaction.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, envelope_id, dest_envelope_id, kind, amount, description, entity, reference,
		        occurred_on, start_time, end_time
		 FROM transaction
		 WHERE envelope_id = $1
		 ORDER BY occurred_on DESC, id DESC`,
		envelopeId,
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		var amount string
		var start, end *time.Time
		if err := rows.Scan(&t.ID, &t.EnvelopeID, &t.DestEnvelopeID, &t.Kind, &amount,
			&t.Description, &t.Entity, &t.Reference, &t.Date, &start, &end); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		t.StartTime = start
		t.EndTime = end
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
