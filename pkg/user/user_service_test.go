package user

import (
	"context"
	"testing"
	"time"

	"github.com/kuvert/kuvert/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoStub = NewStubUserRepo()

func setup(t *testing.T) (Service, func()) {
	defaults := config.Budget{
		Currency:     "USD",
		WeekStartDay: 0,
		TimeCapacity: "168",
		BaseIncome:   "0",
		AutoCopy:     true,
	}
	service := NewUserService(repoStub, defaults)
	return service, func() {
		repoStub.Reset()
	}
}

func TestCreateUser_AppliesDefaultSettings(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	created, err := service.CreateUser(context.Background(), User{
		Username:    "alice",
		DisplayName: "Alice",
	})
	require.NoError(t, err)

	assert.NotZero(t, created.Id)
	assert.NotEmpty(t, created.Uid)
	assert.Equal(t, "USD", created.Settings.Currency)
	assert.Equal(t, time.Sunday, created.Settings.WeekFirstDay)
	assert.True(t, decimal.NewFromInt(168).Equal(created.Settings.TimeCapacity))
	assert.True(t, created.Settings.BaseIncome.IsZero())
	require.NotNil(t, created.Settings.AutoCopyEnvelopes)
	assert.True(t, *created.Settings.AutoCopyEnvelopes)
}

func TestCreateUser_KeepsAutoCopyDisabled(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	// the configured default is on; an explicit off must not be overridden
	autoCopy := false
	created, err := service.CreateUser(context.Background(), User{
		Username:    "carol",
		DisplayName: "Carol",
		Settings: Settings{
			AutoCopyEnvelopes: &autoCopy,
		},
	})
	require.NoError(t, err)

	require.NotNil(t, created.Settings.AutoCopyEnvelopes)
	assert.False(t, *created.Settings.AutoCopyEnvelopes)
	assert.False(t, created.Settings.AutoCopy())
}

func TestCreateUser_KeepsProvidedSettings(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	created, err := service.CreateUser(context.Background(), User{
		Username:    "bob",
		DisplayName: "Bob",
		Settings: Settings{
			Currency:     "EUR",
			WeekFirstDay: time.Monday,
			TimeCapacity: decimal.NewFromInt(100),
			BaseIncome:   decimal.NewFromInt(3000),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "EUR", created.Settings.Currency)
	assert.Equal(t, time.Monday, created.Settings.WeekFirstDay)
	assert.True(t, decimal.NewFromInt(100).Equal(created.Settings.TimeCapacity))
	assert.True(t, decimal.NewFromInt(3000).Equal(created.Settings.BaseIncome))
}

func TestCreateUser_IsIdempotentPerUid(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	first, err := service.CreateUser(context.Background(), User{Uid: "fixed-uid", Username: "alice"})
	require.NoError(t, err)
	second, err := service.CreateUser(context.Background(), User{Uid: "fixed-uid", Username: "alice"})
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
}

func TestUpdateSettings(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	created, err := service.CreateUser(context.Background(), User{Username: "alice"})
	require.NoError(t, err)
	ctx := WithUser(context.Background(), created)

	autoCopy := false
	updated, err := service.UpdateSettings(ctx, Settings{
		Currency:          "PLN",
		WeekFirstDay:      time.Monday,
		TimeCapacity:      decimal.NewFromInt(168),
		BaseIncome:        decimal.NewFromInt(5000),
		AutoCopyEnvelopes: &autoCopy,
	})
	require.NoError(t, err)
	assert.Equal(t, "PLN", updated.Settings.Currency)
	assert.False(t, updated.Settings.AutoCopy())
}

func TestUpdateSettings_RequiresUserInContext(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	_, err := service.UpdateSettings(context.Background(), Settings{})
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestIsUsernameAvailable(t *testing.T) {
	service, teardown := setup(t)
	defer teardown()

	available, err := service.IsUsernameAvailable(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = service.CreateUser(context.Background(), User{Username: "alice"})
	require.NoError(t, err)

	available, err = service.IsUsernameAvailable(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, available)
}
