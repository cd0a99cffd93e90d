package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aaronzipp/avalon-alone/internal/config"
	"github.com/aaronzipp/avalon-alone/internal/decision"
	"github.com/aaronzipp/avalon-alone/internal/decision/llm"
	"github.com/aaronzipp/avalon-alone/internal/eventlog"
	"github.com/aaronzipp/avalon-alone/internal/handlers"
	"github.com/aaronzipp/avalon-alone/internal/logging"
	"github.com/aaronzipp/avalon-alone/internal/observer"
	"github.com/aaronzipp/avalon-alone/internal/orchestrator"
	"github.com/aaronzipp/avalon-alone/internal/session"
	"github.com/aaronzipp/avalon-alone/internal/store"
	"github.com/aaronzipp/avalon-alone/internal/telemetry"
)

const serviceName = "avalon-alone"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel, cfg.Debug)
	logger := logging.New(os.Stderr, level, cfg.LogNoColor)
	if err != nil {
		logger.Warn("falling back to info logging", "error", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	var sinks []observer.Sink
	var events *eventlog.Store
	if cfg.EventLogPath != "" {
		events, err = eventlog.Open(ctx, cfg.EventLogPath)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer events.Close()
		sinks = append(sinks, events)
		logger.Info("event log enabled", "path", cfg.EventLogPath)
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	games := store.NewGameStore()
	app := &handlers.Context{
		Store: games,
		Sessions: session.Options{
			Loop: orchestrator.Config{
				MaxIterations:   cfg.MaxIterations,
				PacingDelay:     cfg.PacingDelay,
				DecisionTimeout: cfg.DecisionTimeout,
				BarrierEnabled:  cfg.BarrierEnabled,
				BarrierTimeout:  cfg.BarrierTimeout,
			},
			Provider:        provider,
			Sinks:           sinks,
			ObserverTimeout: cfg.ObserverTimeout,
			Logger:          logger,
			Tracer:          telemetry.Tracer(),
			BaseContext:     ctx,
		},
		EventLog:  events,
		Logger:    logger,
		PublicURL: cfg.PublicURL,
		AIEnabled: cfg.AIEnabled(),
		StartedAt: time.Now(),
	}

	mux := http.NewServeMux()
	app.Routes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "ai", cfg.AIEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Close games first so streaming handlers return
		for _, game := range games.List() {
			if err := game.Close(shutdownCtx); err != nil {
				logger.Warn("close game", "code", game.Code, "error", err)
			}
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newProvider builds the decision provider used by automated seats. Without
// credentials every decision comes from the fallback policy.
func newProvider(cfg config.Config, logger *slog.Logger) (decision.Provider, error) {
	if !cfg.AIEnabled() {
		logger.Info("AI provider disabled, automated seats use the fallback policy", "provider", cfg.AIProvider)
		return decision.Unavailable{}, nil
	}

	client, err := llm.New(llm.Config{
		APIKey:  cfg.APIKey(),
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build AI provider: %w", err)
	}
	logger.Info("AI provider enabled", "model", cfg.AIModel, "base_url", cfg.AIBaseURL)

	retried := decision.WithRetry(client, decision.RetryConfig{MaxAttempts: cfg.AIAttempts})
	return decision.Traced(retried, telemetry.Tracer()), nil
}
