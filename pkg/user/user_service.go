package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kuvert/kuvert/internal/config"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	// CreateUser provisions a user together with their budgeting settings.
	// It is idempotent: re-provisioning an existing uid returns the existing user.
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateSettings(ctx context.Context, settings Settings) (User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
}

type ServiceImpl struct {
	repo     Repo
	defaults config.Budget
}

func NewUserService(repo Repo, defaults config.Budget) *ServiceImpl {
	return &ServiceImpl{repo: repo, defaults: defaults}
}

func (s *ServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetUser(ctx, userId)
}

func (s *ServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return s.repo.GetUserByUid(ctx, uid)
}

func (s *ServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	if user.Uid == "" {
		user.Uid = uuid.NewString()
	}
	user.Settings = s.applyDefaults(user.Settings)

	userId, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.Id = userId
	log.Debugf("provisioned user %d (%s)", userId, user.Uid)
	return s.repo.GetUser(ctx, userId)
}

func (s *ServiceImpl) UpdateSettings(ctx context.Context, settings Settings) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.UpdateSettings(ctx, userId, s.fillAutoCopy(settings))
}

func (s *ServiceImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	return s.repo.IsUsernameAvailable(ctx, username)
}

func (s *ServiceImpl) applyDefaults(settings Settings) Settings {
	if settings.Currency == "" {
		settings.Currency = s.defaults.Currency
	}
	if settings.WeekFirstDay < time.Sunday || settings.WeekFirstDay > time.Saturday {
		settings.WeekFirstDay = time.Weekday(s.defaults.WeekStartDay)
	}
	if settings.TimeCapacity.IsZero() {
		if capacity, err := decimal.NewFromString(s.defaults.TimeCapacity); err == nil {
			settings.TimeCapacity = capacity
		}
	}
	if settings.BaseIncome.IsZero() {
		if income, err := decimal.NewFromString(s.defaults.BaseIncome); err == nil {
			settings.BaseIncome = income
		}
	}
	return s.fillAutoCopy(settings)
}

// fillAutoCopy resolves an unspecified auto-copy choice to the configured
// default. An explicit false is kept as-is.
func (s *ServiceImpl) fillAutoCopy(settings Settings) Settings {
	if settings.AutoCopyEnvelopes == nil {
		autoCopy := s.defaults.AutoCopy
		settings.AutoCopyEnvelopes = &autoCopy
	}
	return settings
}
