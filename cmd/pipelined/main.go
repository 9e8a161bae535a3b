// Pipelined is the build-pipeline daemon for agency site and content
// production.
//
// It loads site build profiles, executes phase-gated pipelines against the
// configured collaborators (AI, CMS, design source, headless browser), and
// exposes an HTTP trigger surface plus an optional NATS run-request queue.
//
// Usage:
//
//	# Start daemon with defaults
//	pipelined
//
//	# Start with a config file
//	pipelined -config /etc/pipelined/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9190 NATS_URL=nats://localhost:4222 pipelined
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/config"
	"github.com/fyrsmithlabs/pipelined/internal/httpapi"
	"github.com/fyrsmithlabs/pipelined/internal/logging"
	"github.com/fyrsmithlabs/pipelined/internal/phases"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"github.com/fyrsmithlabs/pipelined/internal/queue"
	"github.com/fyrsmithlabs/pipelined/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  pipelined           Start the pipelined daemon\n")
			fmt.Fprintf(os.Stderr, "  pipelined version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}

	log.Println("Daemon shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("pipelined by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger
//  3. Wire collaborators and the phase registry
//  4. Create the orchestrator and dispatcher
//  5. Connect NATS (when enabled) and start the queue consumer
//  6. Start the HTTP server
//  7. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync(logger)

	logger.Info("starting pipelined",
		zap.String("version", version),
		zap.String("commit", gitCommit),
	)

	// OTLP export for the orchestrator's tracer and meter. Degrades to no-op
	// providers when the collector is unreachable.
	tel, err := telemetry.New(ctx, &cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}()
	if tel.IsEnabled() {
		logger.Info("telemetry enabled",
			zap.String("endpoint", cfg.Telemetry.Endpoint),
			zap.String("protocol", cfg.Telemetry.Protocol),
		)
	}

	// Collaborators start unconfigured; real adapters are registered as the
	// deployment wires its design, CMS, browser, and AI endpoints. Runs fail
	// loudly at preflight until then.
	unconfigured := &collab.Unconfigured{}
	deps := &phases.Deps{
		AI:       collab.NewRateLimitedCompleter(unconfigured, cfg.AI.RatePerSecond, cfg.AI.Burst),
		CMS:      unconfigured,
		Design:   unconfigured,
		Browser:  unconfigured,
		Head:     collab.NewHTTPHeadChecker(),
		Cfg:      cfg.Pipeline,
		AITokens: cfg.AI.MaxTokens,
		Dialects: phases.BuiltinDialects(),
		Logger:   logger,
	}
	if err := deps.Validate(); err != nil {
		return fmt.Errorf("failed to wire phase dependencies: %w", err)
	}

	registry := pipeline.NewRegistry()
	if err := phases.RegisterAll(registry, deps); err != nil {
		return fmt.Errorf("failed to register phases: %w", err)
	}

	store := pipeline.NewMemStore()

	// NATS connection (optional)
	var nc *nats.Conn
	var reporter pipeline.Reporter = pipeline.NewLogReporter(logger)
	var messages pipeline.MessageLog = pipeline.NewLogMessageLog(logger)
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		defer nc.Close()
		logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))

		notifier := queue.NewNotifier(nc, "pipelined", logger)
		reporter = notifier
		messages = notifier
	}

	orch, err := pipeline.New(store, registry, reporter, messages, logger)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	dispatcher, err := queue.NewDispatcher(orch, logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	var consumer *queue.Consumer
	if nc != nil {
		consumer, err = queue.NewConsumer(nc, dispatcher, cfg.NATS.Subject, logger)
		if err != nil {
			return fmt.Errorf("failed to create queue consumer: %w", err)
		}
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start queue consumer: %w", err)
		}
	}

	server, err := httpapi.NewServer(store, dispatcher, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("queue consumer shutdown error", zap.Error(err))
		}
	} else {
		dispatcher.Wait()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}

	return nil
}
