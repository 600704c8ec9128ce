package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	DB        DBConfig        `yaml:"db" toml:"db"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Notify    NotifyConfig    `yaml:"notify" toml:"notify"`
	Workflow  WorkflowConfig  `yaml:"workflow" toml:"workflow"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Path   string `yaml:"path" toml:"path"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode" toml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// DefaultUser is the username requests act as when auth is off or in
	// stdio mode.
	DefaultUser string `yaml:"default_user" toml:"default_user"`
}

type NotifyConfig struct {
	// Outbox stores messages in the database in addition to logging them.
	Outbox bool `yaml:"outbox" toml:"outbox"`
}

type WorkflowConfig struct {
	FanOutWorkers int    `yaml:"fanout_workers" toml:"fanout_workers"`
	LockPath      string `yaml:"lock_path" toml:"lock_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "sciflow.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Notify: NotifyConfig{
			Outbox: true,
		},
		Workflow: WorkflowConfig{
			FanOutWorkers: 4,
			LockPath:      "sciflow.lock",
		},
	}
}

// Load reads configuration from an optional YAML or TOML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("SCIFLOW_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("SCIFLOW_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("SCIFLOW_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid SCIFLOW_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("SCIFLOW_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("SCIFLOW_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("SCIFLOW_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if path := os.Getenv("SCIFLOW_LOG_PATH"); path != "" {
		cfg.Log.Path = path
	}
	if mode := os.Getenv("SCIFLOW_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if v := os.Getenv("SCIFLOW_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCIFLOW_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if v := os.Getenv("SCIFLOW_AUTH_DEFAULT_USER"); v != "" {
		cfg.Auth.DefaultUser = v
	}
	if v := os.Getenv("SCIFLOW_NOTIFY_OUTBOX"); v != "" {
		outbox, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCIFLOW_NOTIFY_OUTBOX: %w", err)
		}
		cfg.Notify.Outbox = outbox
	}
	if v := os.Getenv("SCIFLOW_FANOUT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SCIFLOW_FANOUT_WORKERS: %w", err)
		}
		cfg.Workflow.FanOutWorkers = n
	}
	if path := os.Getenv("SCIFLOW_LOCK_PATH"); path != "" {
		cfg.Workflow.LockPath = path
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text, json or pretty", c.Log.Format))
	}
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		errs = append(errs, fmt.Errorf("transport.mode %q must be http or stdio", c.Transport.Mode))
	}
	if c.Workflow.FanOutWorkers < 1 {
		errs = append(errs, fmt.Errorf("workflow.fanout_workers must be positive, got %d", c.Workflow.FanOutWorkers))
	}
	return errors.Join(errs...)
}
