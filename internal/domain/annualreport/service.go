package annualreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Project transitions requested by the fan-out.
const (
	TransitionRequestUpdate      = "request_update"
	TransitionRequestFinalUpdate = "request_final_update"
)

// Service creates annual reports and requests updates from eligible projects.
type Service struct {
	repo     Repository
	projects Projects
	engine   Transitioner
	roles    RoleChecker
	lock     Locker
	workers  int
	logger   *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithLocker serializes fan-outs across processes.
func WithLocker(l Locker) Option { return func(s *Service) { s.lock = l } }

// WithWorkers bounds concurrent project transitions.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService creates a new annual report service.
func NewService(repo Repository, projects Projects, engine Transitioner, roles RoleChecker, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		repo:     repo,
		projects: projects,
		engine:   engine,
		roles:    roles,
		workers:  4,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest defines annual report inputs.
type CreateRequest struct {
	Year    int
	ActorID string
}

// Create registers the report for a year, then requests an update from every
// active project that reports annually and a final update from every closing
// project. A rejected project is recorded in the outcomes and never stops the rest.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	if req.Year < 1900 || req.Year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrInvalidInput, req.Year)
	}
	if err := s.authorize(ctx, req.ActorID); err != nil {
		return nil, err
	}

	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire fan-out lock: %w", err)
		}
		if !ok {
			return nil, ErrBusy
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				s.logger.Warn("failed to release fan-out lock", "error", err)
			}
		}()
	}

	if err := s.checkChronology(ctx, req.Year); err != nil {
		return nil, err
	}

	report := &Report{
		ID:        uuid.NewString(),
		Year:      req.Year,
		CreatedBy: req.ActorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, report); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %d", ErrReportExists, req.Year)
		}
		return nil, fmt.Errorf("creating annual report: %w", err)
	}
	s.logger.Info("annual report created", "year", report.Year, "report_id", report.ID, "actor_id", req.ActorID)

	outcomes, err := s.fanOut(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	result := &Result{Report: report, Outcomes: outcomes}
	s.logger.Info("annual report fan-out finished",
		"year", report.Year,
		"projects", len(outcomes),
		"failed", result.Failed(),
	)
	return result, nil
}

func (s *Service) fanOut(ctx context.Context, actorID string) ([]Outcome, error) {
	candidates, err := s.projects.List(ctx, project.ListOptions{
		Statuses: []project.Status{project.StatusActive, project.StatusClosing},
	})
	if err != nil {
		return nil, fmt.Errorf("listing eligible projects: %w", err)
	}

	var jobs []Outcome
	for _, p := range candidates {
		switch {
		case p.Status == project.StatusActive && p.Kind.ReportsAnnually():
			jobs = append(jobs, Outcome{ProjectID: p.ID, Code: p.Code, Transition: TransitionRequestUpdate})
		case p.Status == project.StatusClosing:
			jobs = append(jobs, Outcome{ProjectID: p.ID, Code: p.Code, Transition: TransitionRequestFinalUpdate})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range jobs {
		g.Go(func() error {
			job := &jobs[i]
			status, err := s.engine.TransitionProject(gctx, job.ProjectID, job.Transition, actorID)
			if err != nil {
				job.Error = err.Error()
				s.logger.Warn("annual report update request failed",
					"project_id", job.ProjectID,
					"transition", job.Transition,
					"error", err,
				)
				return nil
			}
			job.Status = string(status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("annual report fan-out: %w", err)
	}
	return jobs, nil
}

// checkChronology rejects a year older than the latest report. Project
// updates always resolve against the latest year.
func (s *Service) checkChronology(ctx context.Context, year int) error {
	latest, err := s.repo.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting latest report: %w", err)
	}
	if year < latest.Year {
		return fmt.Errorf("%w: %d precedes latest report %d", ErrYearBackdated, year, latest.Year)
	}
	return nil
}

// Latest returns the most recent report.
func (s *Service) Latest(ctx context.Context) (*Report, error) {
	r, err := s.repo.Latest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("getting latest report: %w", err)
	}
	return r, nil
}

// List returns every report, newest first.
func (s *Service) List(ctx context.Context) ([]Report, error) {
	return s.repo.List(ctx)
}

func (s *Service) authorize(ctx context.Context, actorID string) error {
	if actorID == "" || s.roles == nil {
		return ErrNotPermitted
	}
	for _, role := range []string{user.RoleAdmins, user.RoleApprovers} {
		ok, err := s.roles.IsMember(ctx, actorID, role)
		if err != nil {
			return fmt.Errorf("checking role %s: %w", role, err)
		}
		if ok {
			return nil
		}
	}
	return ErrNotPermitted
}
