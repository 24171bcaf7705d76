package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuvert/kuvert/internal/config"
	"github.com/kuvert/kuvert/internal/utils"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/rollover"
	"github.com/kuvert/kuvert/pkg/summary"
	"github.com/kuvert/kuvert/pkg/transaction"
	"github.com/kuvert/kuvert/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	UserService user.Service
	UserHandler *user.Handler

	EnvelopeRepo    envelope.Repository
	EnvelopeService envelope.Service
	EnvelopeHandler *envelope.Handler

	TransactionRepo    transaction.Repository
	TransactionService transaction.Service
	TransactionHandler *transaction.Handler

	RolloverRepo    rollover.Repository
	RolloverService rollover.Service
	RolloverHandler *rollover.Handler

	SummaryRepo    summary.Repository
	SummaryService summary.Service
	SummaryHandler *summary.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db), cfg.Budget)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.EnvelopeRepo = envelope.NewRepository(db)
	deps.EnvelopeService = envelope.NewService(deps.EnvelopeRepo)
	deps.EnvelopeHandler = envelope.NewHandler(deps.EnvelopeService)

	deps.TransactionRepo = transaction.NewRepository(db)
	deps.TransactionService = transaction.NewService(deps.TransactionRepo, deps.Clock)
	deps.TransactionHandler = transaction.NewHandler(deps.TransactionService)

	deps.RolloverRepo = rollover.NewRepository(db)
	deps.RolloverService = rollover.NewService(deps.RolloverRepo)
	deps.RolloverHandler = rollover.NewHandler(deps.RolloverService, deps.Clock)

	deps.SummaryRepo = summary.NewRepository(db)
	deps.SummaryService = summary.NewService(deps.SummaryRepo, deps.RolloverService)
	deps.SummaryHandler = summary.NewHandler(deps.SummaryService, deps.Clock)

	return deps
}
