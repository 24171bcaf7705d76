package envelope

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuvert/kuvert/internal/test_utils"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	defer func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			log.Errorf("failed to terminate container: %s", err)
		}
	}()
	code := m.Run()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, Repository, int) {
	ctx := context.Background()
	db := openDb()
	repository := NewRepository(db)
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})

	testUser := test_utils.TestUser()
	_, err := db.Exec(ctx,
		`INSERT INTO users (id, uid, username, display_name, currency, week_first_day, time_capacity, base_income, auto_copy_envelopes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		testUser.Id,
		testUser.Uid,
		testUser.Username,
		testUser.DisplayName,
		testUser.Settings.Currency,
		int(testUser.Settings.WeekFirstDay),
		testUser.Settings.TimeCapacity.String(),
		testUser.Settings.BaseIncome.String(),
		testUser.Settings.AutoCopyEnvelopes,
	)
	require.NoError(t, err)

	var periodId int
	err = db.QueryRow(ctx,
		`INSERT INTO budget_period (user_id, domain, kind, start_date, capacity)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		testUser.Id,
		string(period.DomainMoney),
		string(period.KindMonthly),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		"2000",
	).Scan(&periodId)
	require.NoError(t, err)

	return ctx, repository, periodId
}

func TestRepositoryImpl_Create(t *testing.T) {
	// given
	ctx, repo, periodId := setupTestRepository(t)

	// when
	id, err := repo.Create(ctx, Envelope{
		PeriodID: periodId,
		Name:     "Groceries",
		Color:    "green",
		Budgeted: decimal.NewFromInt(400),
		Funded:   decimal.NewFromInt(150),
	})
	require.NoError(t, err)

	// then
	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", stored.Name)
	assert.Equal(t, "green", stored.Color)
	assert.True(t, decimal.NewFromInt(400).Equal(stored.Budgeted))
	assert.True(t, decimal.NewFromInt(150).Equal(stored.Funded))
	assert.False(t, stored.System)

	envelopes, err := repo.ListForPeriod(ctx, periodId)
	require.NoError(t, err)
	assert.Len(t, envelopes, 1)
}

func TestRepositoryImpl_Update(t *testing.T) {
	// given
	ctx, repo, periodId := setupTestRepository(t)
	id, err := repo.Create(ctx, Envelope{PeriodID: periodId, Name: "Rent", Budgeted: decimal.NewFromInt(1500)})
	require.NoError(t, err)

	// when
	err = repo.Update(ctx, Envelope{
		ID:       id,
		Name:     "Housing",
		Color:    "blue",
		Budgeted: decimal.NewFromInt(1600),
		Funded:   decimal.NewFromInt(800),
	})
	require.NoError(t, err)

	// then
	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Housing", stored.Name)
	assert.True(t, decimal.NewFromInt(1600).Equal(stored.Budgeted))
	assert.True(t, decimal.NewFromInt(800).Equal(stored.Funded))
}

func TestRepositoryImpl_Delete_ShouldFailWhenEnvelopeDoesNotExist(t *testing.T) {
	// given
	ctx, repo, _ := setupTestRepository(t)

	// when
	err := repo.Delete(ctx, 9999)

	// then
	assert.ErrorIs(t, err, ErrEnvelopeNotFound)
}

func TestRepositoryImpl_GetPeriod(t *testing.T) {
	// given
	ctx, repo, periodId := setupTestRepository(t)

	// when
	p, err := repo.GetPeriod(ctx, periodId)

	// then
	require.NoError(t, err)
	assert.Equal(t, period.DomainMoney, p.Domain)
	assert.Equal(t, period.KindMonthly, p.Kind)
	assert.True(t, decimal.NewFromInt(2000).Equal(p.Capacity))

	_, err = repo.GetPeriod(ctx, 9999)
	assert.ErrorIs(t, err, period.ErrPeriodNotFound)
}

func TestRepositoryImpl_SyncUnallocated(t *testing.T) {
	// given
	ctx, repo, periodId := setupTestRepository(t)
	_, err := repo.Create(ctx, Envelope{PeriodID: periodId, Name: "Rent", Budgeted: decimal.NewFromInt(1500), Funded: decimal.NewFromInt(300)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, Envelope{PeriodID: periodId, Name: "Groceries", Budgeted: decimal.NewFromInt(400), Funded: decimal.NewFromInt(500)})
	require.NoError(t, err)

	// when the system envelope is missing, sync creates it
	err = repo.SyncUnallocated(ctx, periodId)
	require.NoError(t, err)

	// then
	unallocated := findUnallocated(t, ctx, repo, periodId)
	assert.True(t, decimal.NewFromInt(100).Equal(unallocated.Budgeted), "expected 100, got %s", unallocated.Budgeted)
	assert.True(t, decimal.NewFromInt(1200).Equal(unallocated.Funded), "expected 1200, got %s", unallocated.Funded)

	// when capacity changes, a repeated sync updates the same row
	err = repo.UpdatePeriodCapacity(ctx, periodId, decimal.NewFromInt(2500))
	require.NoError(t, err)
	err = repo.SyncUnallocated(ctx, periodId)
	require.NoError(t, err)

	// then
	resynced := findUnallocated(t, ctx, repo, periodId)
	assert.Equal(t, unallocated.ID, resynced.ID)
	assert.True(t, decimal.NewFromInt(600).Equal(resynced.Budgeted))
	assert.True(t, decimal.NewFromInt(1700).Equal(resynced.Funded))
}

func TestRepositoryImpl_WithTransaction_ShouldRollBackOnError(t *testing.T) {
	// given
	ctx, repo, periodId := setupTestRepository(t)
	failure := errors.New("boom")

	// when
	err := repo.WithTransaction(ctx, func(txRepo Repository) error {
		if _, err := txRepo.Create(ctx, Envelope{PeriodID: periodId, Name: "Doomed"}); err != nil {
			return err
		}
		return failure
	})

	// then
	assert.ErrorIs(t, err, failure)
	envelopes, err := repo.ListForPeriod(ctx, periodId)
	require.NoError(t, err)
	assert.Empty(t, envelopes)
}

func findUnallocated(t *testing.T, ctx context.Context, repo Repository, periodId int) Envelope {
	t.Helper()
	envelopes, err := repo.ListForPeriod(ctx, periodId)
	require.NoError(t, err)
	for _, env := range envelopes {
		if env.System {
			return env
		}
	}
	t.Fatalf("no unallocated envelope in period %d", periodId)
	return Envelope{}
}
