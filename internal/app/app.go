// Package app wires the sqlite repositories, domain services and workflow
// engine into one object graph.
package app

import (
	"log/slog"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/mcp"
	"github.com/rpggio/sciflow/internal/notify"
	"github.com/rpggio/sciflow/internal/sqlite"
	"github.com/rpggio/sciflow/internal/workflow"
)

// Options tunes the wiring. Zero values are valid.
type Options struct {
	// Notifier receives messages after each committed transition.
	Notifier notify.Notifier
	// Locker serializes annual report fan-outs across processes.
	Locker annualreport.Locker
	// Workers bounds concurrent fan-out transitions.
	Workers int
	Logger  *slog.Logger
}

// App holds every service built over one database.
type App struct {
	DB        *sqlite.DB
	Store     *sqlite.Store
	Engine    *workflow.Engine
	Users     *user.Service
	Projects  *project.Service
	Documents *document.Service
	Reports   *annualreport.Service
	Activity  *activity.Service
}

// New builds the services over db.
func New(db *sqlite.DB, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := sqlite.NewStore(db)
	userRepo := sqlite.NewUserRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	engine := workflow.New(store, opts.Notifier, logger.With("component", "workflow"))
	projects := project.NewService(projectRepo, userRepo, logger)

	reportOpts := []annualreport.Option{annualreport.WithWorkers(opts.Workers)}
	if opts.Locker != nil {
		reportOpts = append(reportOpts, annualreport.WithLocker(opts.Locker))
	}

	return &App{
		DB:        db,
		Store:     store,
		Engine:    engine,
		Users:     user.NewService(userRepo, logger),
		Projects:  projects,
		Documents: document.NewService(sqlite.NewDocumentRepository(db), projectRepo, userRepo, activityRepo, logger),
		Reports:   annualreport.NewService(sqlite.NewAnnualReportRepository(db), projects, engine, userRepo, logger, reportOpts...),
		Activity:  activity.NewService(activityRepo, logger),
	}
}

// Services returns the MCP view of the app.
func (a *App) Services() mcp.Services {
	return mcp.Services{
		Engine:    a.Engine,
		Projects:  a.Projects,
		Documents: a.Documents,
		Reports:   a.Reports,
		Activity:  a.Activity,
	}
}
