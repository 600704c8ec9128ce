package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rpggio/sciflow/internal/app"
	"github.com/rpggio/sciflow/internal/config"
	"github.com/rpggio/sciflow/internal/logging"
	"github.com/rpggio/sciflow/internal/notify"
	"github.com/rpggio/sciflow/internal/sqlite"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil {
			if path := strings.TrimSpace(*c.configFlag); path != "" {
				if err := os.Setenv("SCIFLOW_CONFIG_PATH", path); err != nil {
					c.configErr = err
					return
				}
			}
		}
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

// runtime is an opened database plus the services built over it.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.App

	closers []io.Closer
}

func (r *runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// open loads configuration, builds the logger over logWriter and opens the
// database. The caller must Close the runtime.
func (c *commandContext) open(ctx context.Context, logWriter io.Writer) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Log, logWriter)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.Open(ctx, cfg.DB.Path)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	rt.closers = append(rt.closers, db)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notify.Outbox {
		notifier = notify.Multi{notifier, notify.NewOutbox(sqlite.NewStore(db).Outbox())}
	}

	opts := app.Options{
		Notifier: notifier,
		Workers:  cfg.Workflow.FanOutWorkers,
		Logger:   logger,
	}
	if cfg.Workflow.LockPath != "" {
		opts.Locker = flock.New(cfg.Workflow.LockPath)
	}
	rt.app = app.New(db, opts)
	return rt, nil
}

func (c *commandContext) withRuntime(ctx context.Context, logWriter io.Writer, fn func(*runtime) error) error {
	rt, err := c.open(ctx, logWriter)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// actor resolves a user ID or username, falling back to the configured
// default user.
func (r *runtime) actor(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = r.cfg.Auth.DefaultUser
	}
	if ref == "" {
		return "", fmt.Errorf("no acting user: pass --as or set auth.default_user")
	}
	u, err := r.app.Users.Lookup(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve user %q: %w", ref, err)
	}
	return u.ID, nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
