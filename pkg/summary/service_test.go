package summary

import (
	"context"
	"testing"
	"time"

	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/rollover"
	"github.com/kuvert/kuvert/pkg/transaction"
	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerStub = envelope.NewRepositoryStub()
var rolloverStub = rollover.NewRepositoryStub(ledgerStub)
var repoStub = NewRepositoryStub(ledgerStub)

func setup(t *testing.T) (Service, context.Context, func()) {
	service := NewService(repoStub, rollover.NewService(rolloverStub))
	ctx := user.WithUser(context.Background(), user.User{
		Id:          1,
		Uid:         "summary-test-user",
		Username:    "test_user",
		DisplayName: "Test User",
		Settings: user.Settings{
			Currency:     "USD",
			WeekFirstDay: time.Sunday,
			TimeCapacity: decimal.NewFromInt(168),
			BaseIncome:   decimal.NewFromInt(2000),
		},
	})
	return service, ctx, func() {
		repoStub.Reset()
		rolloverStub.Reset()
	}
}

func seedMoneyPeriod(t *testing.T, ctx context.Context) (period.Period, envelope.Envelope, envelope.Envelope) {
	t.Helper()
	p := period.Period{
		UserID:    1,
		Domain:    period.DomainMoney,
		Kind:      period.KindMonthly,
		StartDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Capacity:  decimal.NewFromInt(2000),
	}
	id, err := rolloverStub.CreatePeriod(ctx, p)
	require.NoError(t, err)
	p.ID = id

	rent := envelope.Envelope{PeriodID: id, Name: "Rent", Color: "red", Budgeted: decimal.NewFromInt(1500), Funded: decimal.NewFromInt(1500)}
	rentId, err := rolloverStub.CreateEnvelope(ctx, rent)
	require.NoError(t, err)
	rent.ID = rentId

	groceries := envelope.Envelope{PeriodID: id, Name: "Groceries", Color: "orange", Budgeted: decimal.NewFromInt(400), Funded: decimal.NewFromInt(300)}
	groceriesId, err := rolloverStub.CreateEnvelope(ctx, groceries)
	require.NoError(t, err)
	groceries.ID = groceriesId

	require.NoError(t, rolloverStub.SyncUnallocated(ctx, id))
	return p, rent, groceries
}

func TestGetSummary_MoneyPeriod(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	// given
	p, rent, groceries := seedMoneyPeriod(t, ctx)
	repoStub.Expenses[rent.ID] = decimal.NewFromInt(600)
	repoStub.Expenses[groceries.ID] = decimal.NewFromInt(250)

	// when
	result, err := service.GetSummary(ctx, period.DomainMoney, period.KindMonthly, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))

	// then
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.Period.ID)
	assert.Equal(t, "USD", result.Currency)
	require.Len(t, result.Envelopes, 3)

	rentSummary := summaryByName(t, result.Envelopes, "Rent")
	assert.True(t, decimal.NewFromInt(600).Equal(rentSummary.Spent))
	assert.True(t, decimal.NewFromInt(900).Equal(rentSummary.Remaining), "1500 funded - 600 spent")

	// Unallocated: 2000 - 1900 = 100 budgeted and 200 funded, no expenses
	unallocated := summaryByName(t, result.Envelopes, envelope.UnallocatedName)
	assert.True(t, unallocated.Spent.IsZero())
	assert.True(t, decimal.NewFromInt(200).Equal(unallocated.Remaining))

	// totals: budgeted and funded both reconcile to capacity
	assert.True(t, decimal.NewFromInt(2000).Equal(result.TotalBudgeted))
	assert.True(t, decimal.NewFromInt(2000).Equal(result.TotalFunded))
	assert.True(t, decimal.NewFromInt(850).Equal(result.TotalSpent))
	// MONEY: remaining = budgeted - spent
	assert.True(t, decimal.NewFromInt(1150).Equal(result.TotalRemaining))
}

func TestGetSummary_TimeRemainingUsesCapacity(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	// lazily creates the default weekly period (capacity 168)
	result, err := service.GetSummary(ctx, period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	work := summaryByName(t, result.Envelopes, "Work")
	repoStub.Expenses[work.Envelope.ID] = decimal.NewFromInt(38)

	result, err = service.GetSummary(ctx, period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// TIME: remaining = capacity - spent
	assert.True(t, decimal.NewFromInt(38).Equal(result.TotalSpent))
	assert.True(t, decimal.NewFromInt(130).Equal(result.TotalRemaining))

	work = summaryByName(t, result.Envelopes, "Work")
	assert.True(t, decimal.NewFromInt(2).Equal(work.Remaining), "40 funded - 38 spent")
}

func TestGetSummary_IsRepeatable(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	date := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	first, err := service.GetSummary(ctx, period.DomainMoney, period.KindMonthly, date)
	require.NoError(t, err)
	second, err := service.GetSummary(ctx, period.DomainMoney, period.KindMonthly, date)
	require.NoError(t, err)

	assert.Equal(t, first.Period.ID, second.Period.ID)
	assert.True(t, first.TotalRemaining.Equal(second.TotalRemaining))
}

func TestGetEnvelopeDetails(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	_, rent, _ := seedMoneyPeriod(t, ctx)
	repoStub.Expenses[rent.ID] = decimal.NewFromInt(600)
	repoStub.Transactions[rent.ID] = []transaction.Transaction{
		{ID: 1, EnvelopeID: rent.ID, Kind: transaction.KindExpense, Amount: decimal.NewFromInt(600), Description: "June rent"},
	}

	details, err := service.GetEnvelopeDetails(ctx, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", details.Envelope.Name)
	assert.True(t, decimal.NewFromInt(600).Equal(details.Spent))
	assert.True(t, decimal.NewFromInt(900).Equal(details.Remaining))
	require.Len(t, details.Transactions, 1)
	assert.Equal(t, "June rent", details.Transactions[0].Description)
}

func TestGetEnvelopeDetails_RejectsForeignEnvelope(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	_, rent, _ := seedMoneyPeriod(t, ctx)
	stranger := user.WithUser(context.Background(), user.User{Id: 99})

	_, err := service.GetEnvelopeDetails(stranger, rent.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func summaryByName(t *testing.T, envelopes []EnvelopeSummary, name string) EnvelopeSummary {
	t.Helper()
	for _, es := range envelopes {
		if es.Envelope.Name == name {
			return es
		}
	}
	t.Fatalf("envelope %q not found in summary", name)
	return EnvelopeSummary{}
}
