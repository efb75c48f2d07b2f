// Command araliyad is the Araliya supervisor daemon: it owns the bus,
// the control channel, the health registry and the dispatch table, and
// runs the supervisor loop alongside the configured transport adapters
// (Unix control socket, optional console, optional HTTP live-ops feed).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/araliya/araliyad/internal/buildinfo"
	"github.com/araliya/araliyad/internal/config"
	"github.com/araliya/araliyad/internal/handlers/cron"
	"github.com/araliya/araliyad/internal/handlers/echo"
	"github.com/araliya/araliyad/internal/handlers/llm"
	"github.com/araliya/araliyad/internal/handlers/management"
	"github.com/araliya/araliyad/internal/kernel"
	"github.com/araliya/araliyad/internal/kernel/eventfeed"
	"github.com/araliya/araliyad/internal/transport/console"
	"github.com/araliya/araliyad/internal/transport/httpapi"
	"github.com/araliya/araliyad/internal/transport/socket"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (searches default locations if unset)")
	interactive := flag.Bool("console", false, "also run an interactive stdin console")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	logger := slog.Default()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if env := os.Getenv("ARALIYA_LOG_LEVEL"); env != "" {
		level = env
	}
	logger = newLogger(level)
	slog.SetDefault(logger)
	logger.Info("starting araliyad", "version", buildinfo.Version, "work_dir", cfg.WorkDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *interactive); err != nil {
		logger.Error("araliyad exited with error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		if explicit == "" {
			return config.Default(), nil
		}
		return nil, err
	}
	return config.Load(path)
}

func newLogger(level string) *slog.Logger {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})
	return slog.New(handler)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, interactive bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := os.MkdirAll(cfg.WorkDir, 0o700); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	bus := kernel.NewBus(cfg.Bus.Buffer)
	control := kernel.NewControl(cfg.Bus.ControlBuffer)
	table := kernel.NewTable()
	health := kernel.NewHealthRegistry()
	events := eventfeed.New()

	registerHandlers(ctx, cfg, table, bus, health, logger)

	sup := kernel.NewSupervisor(bus, control, table, health, events, logger)

	var wg sync.WaitGroup
	runAdapter := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Error("adapter exited with error", "adapter", name, "error", err)
			}
		}()
	}

	socketAdapter := socket.New(cfg.Socket.Path, control, logger)
	runAdapter("socket", func() error { return socketAdapter.ListenAndServe(ctx) })

	var httpServer *httpapi.Server
	if cfg.Listen.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
		httpServer = httpapi.New(addr, health, events, logger)
		runAdapter("httpapi", httpServer.Start)
	}

	if interactive || cfg.Console.Enabled {
		consoleAdapter := console.New(control, logger)
		runAdapter("console", func() error { return consoleAdapter.Run(ctx) })
	}

	err := sup.Run(ctx)
	// A Shutdown command ends Run without touching ctx; cancel it so the
	// adapters holding it stop too.
	cancel()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	_ = socketAdapter.Close()

	wg.Wait()
	return err
}

const shutdownGrace = 5 * time.Second

func registerHandlers(ctx context.Context, cfg *config.Config, table *kernel.Table, bus *kernel.Bus, health *kernel.HealthRegistry, logger *slog.Logger) {
	enabled := make(map[string]bool, len(cfg.Handlers))
	for _, h := range cfg.Handlers {
		enabled[strings.ToLower(h)] = true
	}

	if enabled["echo"] {
		table.Register("echo", echo.New())
	}
	if enabled["llm"] {
		reporter := health.Reporter("llm")
		table.Register("llm", llm.New(llm.Config{BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.Model}, reporter))
	}
	if enabled["cron"] && cfg.Cron.Enabled {
		h, err := cron.New(ctx, cfg.Cron.DBPath, bus, logger)
		if err != nil {
			logger.Error("failed to start cron handler, skipping registration", "error", err)
		} else {
			table.Register("cron", h)
		}
	}
	if enabled["management"] {
		table.Register("management", management.New(bus, table, health))
	}
}
