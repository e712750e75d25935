// main.go is the entry point for the cadence daemon. It wires together the
// configuration, the in-memory engine, the idle hub, the command registry and
// the network servers, and manages the process lifecycle.
//
// Startup Sequence
// ================
//
// Configuration is loaded first (defaults, .env, environment, flags) and any
// invalid value aborts startup before a socket is opened. The music directory
// is then scanned into the Database; the engine and its idle hub are built on
// top of it; and the command registry is assembled. The registry asserts its
// own ordering at construction, so a broken command table fails here and not
// on the first client request.
//
// Only after all state is ready do we start listening, which means a client
// that manages to connect always sees a fully indexed database.
//
// Shutdown
// ========
//
// The daemon stops when it receives SIGINT or SIGTERM, or when an admin client
// sends "kill". Both paths cancel the same context, so the shutdown sequence
// (see run in server.go) is identical regardless of the trigger.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"cadence.lopezb.com/internal/command"
	"cadence.lopezb.com/internal/config"
	"cadence.lopezb.com/internal/engine"
	"cadence.lopezb.com/internal/idle"
)

type application struct {
	config      *config.Config
	logger      *slog.Logger
	listener    net.Listener
	httpServer  *http.Server
	engine      *engine.Engine
	hub         *idle.Hub
	dispatcher  *command.Dispatcher
	metrics     *Metrics
	passwords   map[string]command.Permission
	defaultPerm command.Permission
	readyCh     chan struct{}
	wg          sync.WaitGroup
	connLimiter chan struct{}

	// done is closed when shutdown begins; every session watches it.
	done     chan struct{}
	doneOnce sync.Once
	stop     context.CancelFunc
}

// newApplication builds the daemon from a validated configuration.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	passwords, err := cfg.PasswordTable()
	if err != nil {
		return nil, err
	}
	defaultPerm, err := cfg.DefaultPermission()
	if err != nil {
		return nil, err
	}

	db := engine.NewDatabase(cfg.MusicDir)
	if err := db.Scan(); err != nil {
		return nil, err
	}

	hub := idle.NewHub()

	app := &application{
		config: cfg,
		logger: logger,
		engine: engine.New(engine.Config{
			MaxQueueLength: cfg.MaxQueueLength,
			Outputs:        cfg.Outputs,
			Volume:         cfg.Volume,
		}, hub, db),
		hub:         hub,
		metrics:     NewMetrics(),
		passwords:   passwords,
		defaultPerm: defaultPerm,
		readyCh:     make(chan struct{}),
		connLimiter: make(chan struct{}, cfg.MaxConnections),
		done:        make(chan struct{}),
	}
	app.dispatcher = command.NewDispatcher(app.commands(), command.WithObserver(app.observe))

	return app, nil
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := cfg.NewLogger(os.Stdout)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	songs, dirs := app.engine.Database().Counts()
	logger.Info("database loaded", "music_dir", cfg.MusicDir, "songs", songs, "directories", dirs)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.run(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
