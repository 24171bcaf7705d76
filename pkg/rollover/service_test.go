package rollover

import (
	"context"
	"testing"
	"time"

	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerStub = envelope.NewRepositoryStub()
var repoStub = NewRepositoryStub(ledgerStub)

func setup(t *testing.T) (Service, context.Context, func()) {
	service := NewService(repoStub)
	ctx := testContext(true)
	return service, ctx, func() {
		repoStub.Reset()
	}
}

func testContext(autoCopy bool) context.Context {
	return user.WithUser(context.Background(), user.User{
		Id:          1,
		Uid:         "rollover-test-user",
		Username:    "test_user",
		DisplayName: "Test User",
		Settings: user.Settings{
			Currency:          "USD",
			WeekFirstDay:      time.Sunday,
			TimeCapacity:      decimal.NewFromInt(168),
			BaseIncome:        decimal.NewFromInt(2000),
			AutoCopyEnvelopes: &autoCopy,
		},
	})
}

func seedPriorMoneyPeriod(t *testing.T, ctx context.Context) (period.Period, envelope.Envelope) {
	t.Helper()
	prior := period.Period{
		UserID:    1,
		Domain:    period.DomainMoney,
		Kind:      period.KindMonthly,
		StartDate: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		Capacity:  decimal.NewFromInt(2000),
	}
	id, err := repoStub.CreatePeriod(ctx, prior)
	require.NoError(t, err)
	prior.ID = id

	rent := envelope.Envelope{
		PeriodID: id,
		Name:     "Rent",
		Color:    "red",
		Budgeted: decimal.NewFromInt(1500),
		Funded:   decimal.NewFromInt(100),
	}
	rentId, err := repoStub.CreateEnvelope(ctx, rent)
	require.NoError(t, err)
	rent.ID = rentId
	require.NoError(t, repoStub.SyncUnallocated(ctx, id))
	return prior, rent
}

func envelopeByName(t *testing.T, envelopes []envelope.Envelope, name string) envelope.Envelope {
	t.Helper()
	for _, env := range envelopes {
		if env.Name == name {
			return env
		}
	}
	t.Fatalf("envelope %q not found", name)
	return envelope.Envelope{}
}

func TestGetOrCreatePeriod_FirstTimePeriodGetsDefaults(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	// when
	resolved, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 4, 10, 0, 0, 0, time.UTC))

	// then
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), resolved.Period.StartDate)
	assert.True(t, decimal.NewFromInt(168).Equal(resolved.Period.Capacity))
	require.Len(t, resolved.Envelopes, 4)

	work := envelopeByName(t, resolved.Envelopes, "Work")
	assert.True(t, decimal.NewFromInt(40).Equal(work.Budgeted))
	assert.True(t, work.Budgeted.Equal(work.Funded))

	// 168 - (40 + 56 + 20) = 52 lands in Unallocated
	unallocated := envelopeByName(t, resolved.Envelopes, envelope.UnallocatedName)
	assert.True(t, unallocated.System)
	assert.True(t, decimal.NewFromInt(52).Equal(unallocated.Budgeted))
	assert.True(t, decimal.NewFromInt(52).Equal(unallocated.Funded))
}

func TestGetOrCreatePeriod_FirstMoneyPeriodUsesBaseIncome(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	resolved, err := service.GetOrCreatePeriod(ctx, period.DomainMoney, period.KindMonthly, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(2000).Equal(resolved.Period.Capacity))

	// default money envelopes start unfunded; everything sits in Unallocated
	rent := envelopeByName(t, resolved.Envelopes, "Rent")
	assert.True(t, decimal.NewFromInt(1500).Equal(rent.Budgeted))
	assert.True(t, rent.Funded.IsZero())

	unallocated := envelopeByName(t, resolved.Envelopes, envelope.UnallocatedName)
	assert.True(t, decimal.NewFromInt(2000).Equal(unallocated.Funded))
}

func TestGetOrCreatePeriod_IsIdempotent(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	date := time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC)
	first, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, date)
	require.NoError(t, err)

	// a different date within the same week resolves to the same period
	second, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, date.AddDate(0, 0, 2))
	require.NoError(t, err)

	assert.Equal(t, first.Period.ID, second.Period.ID)
	assert.Len(t, second.Envelopes, len(first.Envelopes))
}

func TestGetOrCreatePeriod_RecoversFromLostCreationRace(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	// simulate losing the check-then-act race: the key lookup misses, the
	// insert collides with a concurrently committed row
	repoStub.LoseNextCreate = true

	date := time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC)
	resolved, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), resolved.Period.StartDate)

	// the duplicate error never surfaces and later calls return the same row
	again, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, date)
	require.NoError(t, err)
	assert.Equal(t, resolved.Period.ID, again.Period.ID)
}

func TestGetOrCreatePeriod_MoneyRolloverCarriesUnspentBalance(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	// given: prior period with Rent funded 100, spent 60
	prior, rent := seedPriorMoneyPeriod(t, ctx)
	repoStub.SeedExpense(rent.ID, decimal.NewFromInt(60))

	// when
	resolved, err := service.GetOrCreatePeriod(ctx, period.DomainMoney, period.KindMonthly, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// then: Rent seeds funded = 100 - 60 = 40 with a fresh spent total
	newRent := envelopeByName(t, resolved.Envelopes, "Rent")
	assert.True(t, decimal.NewFromInt(1500).Equal(newRent.Budgeted))
	assert.True(t, decimal.NewFromInt(40).Equal(newRent.Funded), "rolled over funded = %s", newRent.Funded)

	// prior Unallocated held 2000 - 100 = 1900; total rollover is
	// 40 + 1900 = 1940, so capacity = 2000 (base income) + 1940
	assert.True(t, decimal.NewFromInt(3940).Equal(resolved.Period.Capacity), "capacity = %s", resolved.Period.Capacity)
	assert.NotEqual(t, prior.ID, resolved.Period.ID)

	// rollover math must reconcile: sum of funded equals capacity
	totalFunded := decimal.Zero
	for _, env := range resolved.Envelopes {
		totalFunded = totalFunded.Add(env.Funded)
	}
	assert.True(t, resolved.Period.Capacity.Equal(totalFunded))
}

func TestGetOrCreatePeriod_TimeRolloverResetsFunded(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	first, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// next week clones the structure; time carries no balance forward
	next, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEqual(t, first.Period.ID, next.Period.ID)
	assert.True(t, decimal.NewFromInt(168).Equal(next.Period.Capacity))

	work := envelopeByName(t, next.Envelopes, "Work")
	assert.True(t, decimal.NewFromInt(40).Equal(work.Budgeted))
	assert.True(t, work.Budgeted.Equal(work.Funded))
}

func TestGetOrCreatePeriod_TimeRolloverCarriesCustomCapacity(t *testing.T) {
	service, ctx, teardown := setup(t)
	defer teardown()

	// given: a week whose capacity was customized down to 100 hours
	prior := period.Period{
		UserID:    1,
		Domain:    period.DomainTime,
		Kind:      period.KindWeekly,
		StartDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Capacity:  decimal.NewFromInt(100),
	}
	id, err := repoStub.CreatePeriod(ctx, prior)
	require.NoError(t, err)
	_, err = repoStub.CreateEnvelope(ctx, envelope.Envelope{
		PeriodID: id,
		Name:     "Work",
		Budgeted: decimal.NewFromInt(40),
		Funded:   decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	require.NoError(t, repoStub.SyncUnallocated(ctx, id))

	// when
	next, err := service.GetOrCreatePeriod(ctx, period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// then: the customization survives the week boundary instead of
	// snapping back to the configured 168
	assert.True(t, decimal.NewFromInt(100).Equal(next.Period.Capacity), "capacity = %s", next.Period.Capacity)

	// zero-based mode keeps the prior week's capacity too
	zeroBased, err := service.GetOrCreatePeriod(testContext(false), period.DomainTime, period.KindWeekly, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(zeroBased.Period.Capacity), "capacity = %s", zeroBased.Period.Capacity)
}

func TestGetOrCreatePeriod_ZeroBasedModeClonesStructureOnly(t *testing.T) {
	service, _, teardown := setup(t)
	defer teardown()
	ctx := testContext(false)

	_, _ = seedPriorMoneyPeriod(t, ctx)

	resolved, err := service.GetOrCreatePeriod(ctx, period.DomainMoney, period.KindMonthly, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// structure is kept, numbers are not
	newRent := envelopeByName(t, resolved.Envelopes, "Rent")
	assert.Equal(t, "red", newRent.Color)
	assert.True(t, newRent.Budgeted.IsZero())
	assert.True(t, newRent.Funded.IsZero())

	// capacity restarts from base income; everything sits in Unallocated
	assert.True(t, decimal.NewFromInt(2000).Equal(resolved.Period.Capacity))
	unallocated := envelopeByName(t, resolved.Envelopes, envelope.UnallocatedName)
	assert.True(t, decimal.NewFromInt(2000).Equal(unallocated.Funded))
}
