package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateSettings(ctx context.Context, userId int, settings Settings) (User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, currency, week_first_day, time_capacity, base_income, auto_copy_envelopes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (uid) DO UPDATE SET uid = users.uid
				RETURNING id`
	var id int
	err := r.db.QueryRow(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		user.Settings.Currency,
		int(user.Settings.WeekFirstDay),
		user.Settings.TimeCapacity.String(),
		user.Settings.BaseIncome.String(),
		user.Settings.AutoCopyEnvelopes,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *RepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT id, uid, username, display_name, currency, week_first_day, time_capacity, base_income, auto_copy_envelopes
				FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *RepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT id, uid, username, display_name, currency, week_first_day, time_capacity, base_income, auto_copy_envelopes
				FROM users WHERE uid = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, uid))
}

func (r *RepoImpl) UpdateSettings(ctx context.Context, userId int, settings Settings) (User, error) {
	query := `UPDATE users SET
					currency = $1,
					week_first_day = $2,
					time_capacity = $3,
					base_income = $4,
					auto_copy_envelopes = $5
				WHERE id = $6`
	tag, err := r.db.Exec(ctx, query,
		settings.Currency,
		int(settings.WeekFirstDay),
		settings.TimeCapacity.String(),
		settings.BaseIncome.String(),
		settings.AutoCopyEnvelopes,
		userId,
	)
	if err != nil {
		log.Errorf("failed to update user settings: %v", err)
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrUserNotFound
	}
	return r.GetUser(ctx, userId)
}

func (r *RepoImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE username = $1", username).Scan(&count)
	if err != nil {
		log.Errorf("failed to check username availability: %v", err)
		return false, err
	}
	return count == 0, nil
}

func (r *RepoImpl) scanUser(row pgx.Row) (User, error) {
	var user User
	var weekFirstDay int
	var timeCapacity, baseIncome string
	err := row.Scan(
		&user.Id,
		&user.Uid,
		&user.Username,
		&user.DisplayName,
		&user.Settings.Currency,
		&weekFirstDay,
		&timeCapacity,
		&baseIncome,
		&user.Settings.AutoCopyEnvelopes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		log.Errorf("failed to scan user: %v", err)
		return User{}, err
	}
	user.Settings.WeekFirstDay = time.Weekday(weekFirstDay)
	if user.Settings.TimeCapacity, err = decimal.NewFromString(timeCapacity); err != nil {
		return User{}, err
	}
	if user.Settings.BaseIncome, err = decimal.NewFromString(baseIncome); err != nil {
		return User{}, err
	}
	return user, nil
}
