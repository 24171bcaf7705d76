package test_utils

import (
	"context"
	"time"

	"github.com/kuvert/kuvert/pkg/user"
	"github.com/shopspring/decimal"
)

// TestUser returns the fixture user shared by service tests.
func TestUser() user.User {
	autoCopy := true
	return user.User{
		Id:          123,
		Uid:         "test-user-uid",
		Username:    "test_user",
		DisplayName: "Test User",
		Settings: user.Settings{
			Currency:          "USD",
			WeekFirstDay:      time.Sunday,
			TimeCapacity:      decimal.NewFromInt(168),
			BaseIncome:        decimal.Zero,
			AutoCopyEnvelopes: &autoCopy,
		},
	}
}

// UserContext returns a context carrying the fixture user, as the HTTP
// middleware would after resolving the X-User-Id header.
func UserContext() context.Context {
	return user.WithUser(context.Background(), TestUser())
}
