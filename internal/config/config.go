// Package config loads the daemon's settings.
//
// Sources, lowest precedence first:
//
//  1. defaults declared in the struct tags of Config;
//  2. a dotenv file (".env" unless CADENCE_ENV_FILE names another one),
//     which never overrides a variable already set in the environment;
//  3. CADENCE_* environment variables;
//  4. command-line flags.
//
// Passwords are configured as "secret@permissions" entries, for example
// CADENCE_PASSWORDS="hunter2@read,add,control,admin;guest@read".
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"cadence.lopezb.com/internal/command"
)

// Config holds every tunable of the daemon.
type Config struct {
	Port               int           `env:"CADENCE_PORT" envDefault:"6600"`
	Bind               string        `env:"CADENCE_BIND"`
	MaxConnections     int           `env:"CADENCE_MAX_CONNECTIONS" envDefault:"100"`
	ShutdownTimeout    time.Duration `env:"CADENCE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	ConnectionTimeout  time.Duration `env:"CADENCE_CONNECTION_TIMEOUT" envDefault:"60s"`
	MaxCommandListSize int           `env:"CADENCE_MAX_COMMAND_LIST_SIZE" envDefault:"2097152"`

	// CommandRate limits commands per second per connection; zero disables
	// the limit.
	CommandRate  float64 `env:"CADENCE_COMMAND_RATE" envDefault:"0"`
	CommandBurst int     `env:"CADENCE_COMMAND_BURST" envDefault:"100"`

	Passwords          []string `env:"CADENCE_PASSWORDS" envSeparator:";"`
	DefaultPermissions string   `env:"CADENCE_DEFAULT_PERMISSIONS" envDefault:"read,add,control,admin"`

	MusicDir       string   `env:"CADENCE_MUSIC_DIR"`
	MaxQueueLength int      `env:"CADENCE_MAX_QUEUE_LENGTH" envDefault:"16384"`
	Outputs        []string `env:"CADENCE_OUTPUTS" envSeparator:"," envDefault:"default"`
	Volume         int      `env:"CADENCE_VOLUME" envDefault:"100"`

	// HTTPAddr is the listen address of the HTTP side channel; empty
	// disables it.
	HTTPAddr string `env:"CADENCE_HTTP_ADDR"`

	LogLevel  string `env:"CADENCE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CADENCE_LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the process environment and args, which
// excludes the program name.
func Load(args []string) (*Config, error) {
	return load(args, env.ToMap(os.Environ()))
}

func load(args []string, environ map[string]string) (*Config, error) {
	envFile := environ["CADENCE_ENV_FILE"]
	if envFile == "" {
		envFile = ".env"
	}

	merged, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		merged = make(map[string]string)
	}
	maps.Copy(merged, environ)

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: merged}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	flags := flag.NewFlagSet("cadenced", flag.ContinueOnError)
	cfg.bindFlags(flags)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindFlags registers a flag for every field, defaulting to the value the
// environment already produced.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.IntVarP(&c.Port, "port", "p", c.Port, "TCP port to listen on")
	fs.StringVar(&c.Bind, "bind", c.Bind, "address to bind (empty for all interfaces)")
	fs.IntVar(&c.MaxConnections, "max-conn", c.MaxConnections, "maximum concurrent connections")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown timeout")
	fs.DurationVar(&c.ConnectionTimeout, "connection-timeout", c.ConnectionTimeout, "close clients silent for this long (0 disables)")
	fs.IntVar(&c.MaxCommandListSize, "max-command-list-size", c.MaxCommandListSize, "maximum size of a command list in bytes")
	fs.Float64Var(&c.CommandRate, "command-rate", c.CommandRate, "commands per second per connection (0 for unlimited)")
	fs.IntVar(&c.CommandBurst, "command-burst", c.CommandBurst, "command rate burst size")
	fs.StringArrayVar(&c.Passwords, "password", c.Passwords, "password entry secret@perm,perm (repeatable)")
	fs.StringVar(&c.DefaultPermissions, "default-permissions", c.DefaultPermissions, "permissions of clients that sent no password")
	fs.StringVarP(&c.MusicDir, "music-dir", "m", c.MusicDir, "music directory to index")
	fs.IntVar(&c.MaxQueueLength, "max-queue-length", c.MaxQueueLength, "maximum number of songs in the queue")
	fs.StringSliceVar(&c.Outputs, "output", c.Outputs, "audio output names")
	fs.IntVar(&c.Volume, "volume", c.Volume, "initial mixer volume")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP side channel address (empty disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxConnections < 1 {
		errs = append(errs, errors.New("max-conn must be at least 1"))
	}
	if c.MaxCommandListSize < 1 {
		errs = append(errs, errors.New("max-command-list-size must be positive"))
	}
	if c.CommandRate < 0 {
		errs = append(errs, errors.New("command-rate must not be negative"))
	}
	if c.CommandRate > 0 && c.CommandBurst < 1 {
		errs = append(errs, errors.New("command-burst must be at least 1"))
	}
	if c.Volume < 0 || c.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume %d out of range", c.Volume))
	}
	if _, err := c.PasswordTable(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DefaultPermission(); err != nil {
		errs = append(errs, fmt.Errorf("default permissions: %w", err))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// PasswordTable maps each configured secret to the permissions it grants.
func (c *Config) PasswordTable() (map[string]command.Permission, error) {
	table := make(map[string]command.Permission, len(c.Passwords))
	for _, entry := range c.Passwords {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		secret, perms, ok := strings.Cut(entry, "@")
		if !ok || secret == "" {
			return nil, fmt.Errorf("password entry %q: want secret@permissions", entry)
		}
		if _, dup := table[secret]; dup {
			return nil, fmt.Errorf("password entry %q: duplicate secret", entry)
		}
		p, err := command.ParsePermissions(perms)
		if err != nil {
			return nil, fmt.Errorf("password entry %q: %w", entry, err)
		}
		table[secret] = p
	}
	return table, nil
}

// DefaultPermission returns the permissions granted on connect.
func (c *Config) DefaultPermission() (command.Permission, error) {
	return command.ParsePermissions(c.DefaultPermissions)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// Addr is the TCP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
