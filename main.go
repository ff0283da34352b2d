package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"swap-sentinel/api"
	"swap-sentinel/config"
	"swap-sentinel/daemon"
	"swap-sentinel/interfaces"
	"swap-sentinel/internal/constants"
	"swap-sentinel/internal/loop"
	"swap-sentinel/journal"
	"swap-sentinel/logging"
	"swap-sentinel/models"
	"swap-sentinel/notify"
	"swap-sentinel/position"
	"swap-sentinel/status"
	"swap-sentinel/strategy"
	"swap-sentinel/web_interface"
)

var (
	cfg    *config.Config
	logger *logging.Logger
)

// Initialize logging with the provided configuration
func initLogging() error {
	logLevel := logging.LogLevel(cfg.LogLevel)
	if cfg.Debug {
		logLevel = logging.DEBUG
	}

	var err error
	logger, err = logging.NewLogger(
		cfg.LogFile,
		cfg.LogMaxSize,
		cfg.LogMaxBackups,
		cfg.LogMaxAge,
		cfg.LogCompress,
		logLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// stripFlag removes a daemon control flag before re-executing the binary
func stripFlag(args []string, names ...string) []string {
	out := make([]string, 0, len(args))
next:
	for _, arg := range args {
		for _, name := range names {
			if arg == "-"+name || arg == "--"+name {
				continue next
			}
		}
		out = append(out, arg)
	}
	return out
}

// handleDaemonCommands runs -start-daemon/-stop-daemon/-restart-daemon and
// reports whether one was given
func handleDaemonCommands(start, stop, restart bool) bool {
	switch {
	case start:
		logInfo("Starting daemon...")
		if err := daemon.StartDaemon(stripFlag(os.Args[1:], "start-daemon"), cfg.PidFile); err != nil {
			logFatal("Failed to start daemon: %v", err)
		}
	case stop:
		logInfo("Stopping daemon...")
		if err := daemon.StopDaemon(cfg.PidFile); err != nil {
			logFatal("Failed to stop daemon: %v", err)
		}
	case restart:
		logInfo("Restarting daemon...")
		if err := daemon.RestartDaemon(stripFlag(os.Args[1:], "restart-daemon"), cfg.PidFile); err != nil {
			logFatal("Failed to restart daemon: %v", err)
		}
	default:
		return false
	}
	return true
}

// app holds the wired components
type app struct {
	client   *api.Client
	stream   *api.TickerStream
	state    *models.State
	registry *position.Registry
	trader   *strategy.Trader
	exits    *position.ExitController
	webUI    *web_interface.WebUI
	reader   journal.Reader
	closers  []func() error
}

// buildApp wires gateway, observers and loops
func buildApp() (*app, error) {
	a := &app{
		state:    &models.State{},
		registry: position.NewRegistry(),
	}
	a.client = api.NewClient(cfg, logger)
	a.stream = api.NewTickerStream(cfg, logger)
	a.client.Prices = a.stream

	var observers interfaces.Observers
	if cfg.JournalFile != "" {
		fj, err := journal.NewFileJournal(cfg.JournalFile, logger)
		if err != nil {
			return nil, err
		}
		observers = append(observers, fj)
		a.reader = fj
		logInfo("Order journal: %s", cfg.JournalFile)
	}
	if cfg.JournalDSN != "" {
		dbj, err := journal.OpenDB(cfg.JournalDSN, cfg.InstID, logger)
		if err != nil {
			return nil, err
		}
		observers = append(observers, dbj)
		a.reader = dbj
		a.closers = append(a.closers, dbj.Close)
	}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.InstID, logger)
		if err != nil {
			logWarning("Telegram notifications disabled: %v", err)
		} else {
			observers = append(observers, tg)
		}
	}
	a.webUI = web_interface.NewWebUI(cfg, a.state, a.registry, a.reader, logger)
	observers = append(observers, a.webUI)

	a.trader = strategy.NewTrader(a.client, a.registry, cfg, a.state, logger, observers)
	a.exits = position.NewExitController(a.client, a.registry, cfg, logger, observers, a.state)
	return a, nil
}

func main() {
	daemonStart := flag.Bool("start-daemon", false, "Start the application as a daemon")
	daemonStop := flag.Bool("stop-daemon", false, "Stop the daemon process")
	daemonRestart := flag.Bool("restart-daemon", false, "Restart the daemon process")
	debugFlag := flag.Bool("debug", false, "enable debug logs")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}
	cfg = config.LoadConfig()
	cfg.Debug = cfg.Debug || *debugFlag
	cfg.DaemonMode = cfg.DaemonMode || daemon.IsDaemon()

	if err := initLogging(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Close()

	if handleDaemonCommands(*daemonStart, *daemonStop, *daemonRestart) {
		return
	}

	logInfo("Application starting...")
	logInfo("Daemon mode: %t", cfg.DaemonMode)
	if err := cfg.Validate(); err != nil {
		logFatal("%v", err)
	}
	if !cfg.HasCredentials() {
		logFatal("OKX_API_KEY, OKX_API_SECRET and OKX_PASSPHRASE are required")
	}
	logInfo("Instrument %s, timeframe %s, policy %s, trail %s, simulated %t",
		cfg.InstID, cfg.Timeframe, cfg.EntryPolicy, cfg.TrailPolicy, cfg.Simulated)

	a, err := buildApp()
	if err != nil {
		logFatal("Startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if err := a.client.SetLeverage(lctx, cfg.Leverage); err != nil {
		logWarning("Setting leverage %dx failed: %v", cfg.Leverage, err)
	} else {
		logInfo("Leverage set to %dx (%s)", cfg.Leverage, constants.MarginModeCross)
	}
	cancel()

	server := status.StartServer(&status.Server{
		Config:   cfg,
		State:    a.state,
		Registry: a.registry,
		Journal:  a.reader,
		UI:       a.webUI,
		Logger:   logger,
	})

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	onError := func(name string, err error) {
		a.state.RecordError(name)
		logDebug("%s loop error recorded: %v", name, err)
	}

	run(func(ctx context.Context) { _ = a.stream.Run(ctx) })
	run(a.webUI.Run)
	run(func(ctx context.Context) {
		l := &loop.Loop{Name: constants.LoopPoll, Interval: cfg.PollInterval, Backoff: cfg.ErrorBackoff,
			Task: a.trader.RunCycle, Logger: logger, OnError: onError}
		_ = l.Run(ctx)
	})
	run(func(ctx context.Context) {
		l := &loop.Loop{Name: constants.LoopExit, Interval: cfg.ExitInterval, Backoff: cfg.ErrorBackoff,
			Task: a.exits.Tick, Logger: logger, OnError: onError}
		_ = l.Run(ctx)
	})

	<-ctx.Done()
	logInfo("Received shutdown signal, shutting down gracefully...")
	if n := a.registry.Count(); n > 0 {
		logWarning("%d position(s) stay open on the exchange with their attached SL/TP", n)
	}

	var shutdownErr error
	if server != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(sctx); err != nil && err != http.ErrServerClosed {
			shutdownErr = multierr.Append(shutdownErr, err)
		}
		scancel()
	}
	wg.Wait()
	for _, c := range a.closers {
		shutdownErr = multierr.Append(shutdownErr, c())
	}
	if cfg.DaemonMode {
		daemon.RemovePIDFile(cfg.PidFile)
	}
	if shutdownErr != nil {
		logError("Shutdown errors: %v", shutdownErr)
	}
	if err := logger.Sync(); err != nil {
		log.Printf("Error syncing logger: %v", err)
	}
	logInfo("Shutdown complete")
}

// logDebug logs debug messages
func logDebug(format string, v ...interface{}) {
	logger.Debug(format, v...)
}

// logInfo logs info messages
func logInfo(format string, v ...interface{}) {
	logger.Info(format, v...)
}

// logWarning logs warning messages
func logWarning(format string, v ...interface{}) {
	logger.Warning(format, v...)
}

// logError logs error messages
func logError(format string, v ...interface{}) {
	logger.Error(format, v...)
}

// logFatal logs fatal messages and exits
func logFatal(format string, v ...interface{}) {
	logger.Fatal(format, v...)
}
