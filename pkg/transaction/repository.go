package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	Insert(ctx context.Context, t Transaction) (int, error)
	GetByID(ctx context.Context, id int) (Transaction, error)
	Update(ctx context.Context, t Transaction) error
	Delete(ctx context.Context, id int) error
	ListForEnvelope(ctx context.Context, envelopeId int) ([]Transaction, error)
	ListForUser(ctx context.Context, userId int, domain period.Domain) ([]Transaction, error)
	GetEnvelope(ctx context.Context, id int) (envelope.Envelope, error)
	GetPeriod(ctx context.Context, periodId int) (period.Period, error)
	// FindSystemEnvelope returns the period's Unallocated envelope.
	FindSystemEnvelope(ctx context.Context, periodId int) (envelope.Envelope, error)
	AdjustFunded(ctx context.Context, envelopeId int, delta decimal.Decimal) error
	IncrementCapacity(ctx context.Context, periodId int, delta decimal.Decimal) error
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

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *repositoryImpl) Insert(ctx context.Context, t Transaction) (int, error) {
	query := `INSERT INTO transaction (envelope_id, dest_envelope_id, kind, amount, description, entity, reference, occurred_on, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	var id int
	err := r.getQueryer().QueryRow(ctx, query,
		t.EnvelopeID,
		t.DestEnvelopeID,
		string(t.Kind),
		t.Amount.String(),
		t.Description,
		t.Entity,
		t.Reference,
		t.Date,
		t.StartTime,
		t.EndTime,
	).Scan(&id)
	if err != nil {
		log.Errorf("could not insert transaction: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *repositoryImpl) GetByID(ctx context.Context, id int) (Transaction, error) {
	query := `SELECT id, envelope_id, dest_envelope_id, kind, amount, description, entity, reference, occurred_on, start_time, end_time
				FROM transaction WHERE id = $1`
	return scanTransaction(r.getQueryer().QueryRow(ctx, query, id))
}

func (r *repositoryImpl) Update(ctx context.Context, t Transaction) error {
	query := `UPDATE transaction SET
					envelope_id = $1,
					amount = $2,
					description = $3,
					entity = $4,
					reference = $5,
					occurred_on = $6,
					start_time = $7,
					end_time = $8
				WHERE id = $9`
	tag, err := r.getQueryer().Exec(ctx, query,
		t.EnvelopeID,
		t.Amount.String(),
		t.Description,
		t.Entity,
		t.Reference,
		t.Date,
		t.StartTime,
		t.EndTime,
		t.ID,
	)
	if err != nil {
		log.Errorf("could not update transaction: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id int) error {
	tag, err := r.getQueryer().Exec(ctx, "DELETE FROM transaction WHERE id = $1", id)
	if err != nil {
		log.Errorf("could not delete transaction: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repositoryImpl) ListForEnvelope(ctx context.Context, envelopeId int) ([]Transaction, error) {
	query := `SELECT id, envelope_id, dest_envelope_id, kind, amount, description, entity, reference, occurred_on, start_time, end_time
				FROM transaction WHERE envelope_id = $1 ORDER BY occurred_on DESC, id DESC`
	return r.list(ctx, query, envelopeId)
}

func (r *repositoryImpl) ListForUser(ctx context.Context, userId int, domain period.Domain) ([]Transaction, error) {
	query := `SELECT t.id, t.envelope_id, t.dest_envelope_id, t.kind, t.amount, t.description, t.entity, t.reference, t.occurred_on, t.start_time, t.end_time
				FROM transaction t
				JOIN envelope e ON e.id = t.envelope_id
				JOIN budget_period p ON p.id = e.period_id
				WHERE p.user_id = $1 AND p.domain = $2
				ORDER BY t.occurred_on DESC, t.id DESC`
	return r.list(ctx, query, userId, string(domain))
}

func (r *repositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		log.Errorf("could not query transactions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over transaction rows: %v", err)
		return nil, err
	}
	return transactions, nil
}

func (r *repositoryImpl) GetEnvelope(ctx context.Context, id int) (envelope.Envelope, error) {
	query := `SELECT id, period_id, name, color, budgeted, funded, is_system
				FROM envelope WHERE id = $1`
	return r.scanEnvelopeRow(r.getQueryer().QueryRow(ctx, query, id))
}

func (r *repositoryImpl) FindSystemEnvelope(ctx context.Context, periodId int) (envelope.Envelope, error) {
	query := `SELECT id, period_id, name, color, budgeted, funded, is_system
				FROM envelope WHERE period_id = $1 AND is_system`
	return r.scanEnvelopeRow(r.getQueryer().QueryRow(ctx, query, periodId))
}

func (r *repositoryImpl) scanEnvelopeRow(row pgx.Row) (envelope.Envelope, error) {
	var env envelope.Envelope
	var budgeted, funded string
	err := row.Scan(&env.ID, &env.PeriodID, &env.Name, &env.Color, &budgeted, &funded, &env.System)
	if errors.Is(err, pgx.ErrNoRows) {
		return envelope.Envelope{}, envelope.ErrEnvelopeNotFound
	}
	if err != nil {
		log.Errorf("could not scan envelope: %v", err)
		return envelope.Envelope{}, err
	}
	if env.Budgeted, err = decimal.NewFromString(budgeted); err != nil {
		return envelope.Envelope{}, err
	}
	if env.Funded, err = decimal.NewFromString(funded); err != nil {
		return envelope.Envelope{}, err
	}
	return env, nil
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

func (r *repositoryImpl) AdjustFunded(ctx context.Context, envelopeId int, delta decimal.Decimal) error {
	tag, err := r.getQueryer().Exec(ctx,
		"UPDATE envelope SET funded = funded + $1 WHERE id = $2", delta.String(), envelopeId)
	if err != nil {
		log.Errorf("could not adjust envelope funded: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return envelope.ErrEnvelopeNotFound
	}
	return nil
}

func (r *repositoryImpl) IncrementCapacity(ctx context.Context, periodId int, delta decimal.Decimal) error {
	tag, err := r.getQueryer().Exec(ctx,
		"UPDATE budget_period SET capacity = capacity + $1 WHERE id = $2", delta.String(), periodId)
	if err != nil {
		log.Errorf("could not increment period capacity: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return period.ErrPeriodNotFound
	}
	return nil
}

func (r *repositoryImpl) SyncUnallocated(ctx context.Context, periodId int) error {
	return envelope.SyncUnallocated(ctx, r.getQueryer(), periodId)
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var kind, amount string
	err := row.Scan(
		&t.ID,
		&t.EnvelopeID,
		&t.DestEnvelopeID,
		&kind,
		&amount,
		&t.Description,
		&t.Entity,
		&t.Reference,
		&t.Date,
		&t.StartTime,
		&t.EndTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		log.Errorf("could not scan transaction: %v", err)
		return Transaction{}, err
	}
	t.Kind = Kind(kind)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return Transaction{}, err
	}
	return t, nil
}
