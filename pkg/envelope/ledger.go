package envelope

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx. It lets the
// ledger sync run inside whatever transaction the calling repository holds.
type Querier interface {
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
}

// SyncUnallocated recomputes the derived values of the period's Unallocated
// envelope so that the sum of budgeted and funded over all envelopes equals
// the period capacity:
//
//	unallocated.budgeted = capacity - sum(budgeted of regular envelopes)
//	unallocated.funded   = capacity - sum(funded of regular envelopes)
//
// The envelope is created when missing. Negative results are kept as-is; they
// signal over-allocation to the caller. Must be invoked, inside the same
// store transaction, after every mutation of capacity, envelope targets, or
// the envelope set.
func SyncUnallocated(ctx context.Context, q Querier, periodID int) error {
	query := `SELECT p.capacity,
					COALESCE(SUM(e.budgeted) FILTER (WHERE NOT e.is_system), 0),
					COALESCE(SUM(e.funded) FILTER (WHERE NOT e.is_system), 0),
					MAX(e.id) FILTER (WHERE e.is_system)
				FROM budget_period p
				LEFT JOIN envelope e ON e.period_id = p.id
				WHERE p.id = $1
				GROUP BY p.capacity`

	var capacityStr, budgetedStr, fundedStr string
	var systemID *int
	err := q.QueryRow(ctx, query, periodID).Scan(&capacityStr, &budgetedStr, &fundedStr, &systemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPeriodGone
	}
	if err != nil {
		return fmt.Errorf("failed to read period totals: %w", err)
	}

	capacity, err := decimal.NewFromString(capacityStr)
	if err != nil {
		return err
	}
	totalBudgeted, err := decimal.NewFromString(budgetedStr)
	if err != nil {
		return err
	}
	totalFunded, err := decimal.NewFromString(fundedStr)
	if err != nil {
		return err
	}

	budgeted := capacity.Sub(totalBudgeted)
	funded := capacity.Sub(totalFunded)

	if systemID != nil {
		_, err = q.Exec(ctx,
			"UPDATE envelope SET budgeted = $1, funded = $2 WHERE id = $3",
			budgeted.String(), funded.String(), *systemID)
		if err != nil {
			return fmt.Errorf("failed to update unallocated envelope: %w", err)
		}
		return nil
	}

	_, err = q.Exec(ctx,
		`INSERT INTO envelope (period_id, name, color, budgeted, funded, is_system)
			VALUES ($1, $2, $3, $4, $5, TRUE)`,
		periodID, UnallocatedName, unallocatedColor, budgeted.String(), funded.String())
	if err != nil {
		return fmt.Errorf("failed to create unallocated envelope: %w", err)
	}
	return nil
}

// ErrPeriodGone reports a sync against a period that no longer exists.
var ErrPeriodGone = errors.New("budget period not found during ledger sync")
