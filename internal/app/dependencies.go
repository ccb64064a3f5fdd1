package app

import (
	"database/sql"

	"github.com/commitly/commitly/internal/config"
	"github.com/commitly/commitly/internal/event_bus"
	"github.com/commitly/commitly/internal/utils"
	"github.com/commitly/commitly/pkg/calendar"
	"github.com/commitly/commitly/pkg/commitment"
	"github.com/commitly/commitly/pkg/google"
	"github.com/commitly/commitly/pkg/metadata"
	"github.com/commitly/commitly/pkg/reminder"
	"github.com/commitly/commitly/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	UserService user.Service
	UserHandler *user.Handler

	GoogleAuth    *google.GoogleAuth
	GoogleService google.Service

	CalendarSync    calendar.Sync
	MetadataFetcher metadata.Fetcher

	ReminderRepo       reminder.Repository
	ReminderScheduler  reminder.Scheduler
	ReminderDispatcher *reminder.Dispatcher

	CommitmentRepo    commitment.Repository
	CommitmentService commitment.Service
	CommitmentHandler *commitment.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.GoogleAuth = google.NewGoogleAuth(db, deps.UserService, cfg)
	deps.GoogleService = google.NewService(deps.GoogleAuth)

	deps.CalendarSync = calendar.NewGoogleSync(deps.GoogleService, deps.UserService)
	deps.MetadataFetcher = metadata.NewHTTPFetcher()

	deps.ReminderRepo = reminder.NewRepository(db)
	deps.ReminderScheduler = reminder.NewDurableScheduler(deps.ReminderRepo, deps.UserService, deps.Clock)
	notifier := reminder.NewNotifier(cfg.Reminder)
	deps.ReminderDispatcher = reminder.NewDispatcher(deps.ReminderRepo, notifier, deps.EventBus, deps.Clock, cfg.Reminder.DispatchInterval)

	deps.CommitmentRepo = commitment.NewRepository(db)
	deps.CommitmentService = commitment.NewService(
		deps.CommitmentRepo,
		deps.CalendarSync,
		deps.ReminderScheduler,
		deps.GoogleService,
		deps.UserService,
		deps.MetadataFetcher,
		deps.EventBus,
		deps.Clock,
	)
	deps.CommitmentHandler = commitment.NewHandler(deps.CommitmentService, deps.Clock)

	return deps
}
