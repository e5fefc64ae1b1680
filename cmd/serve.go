package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhisek/tierwise/internal/api"
	"github.com/abhisek/tierwise/internal/assess"
	"github.com/abhisek/tierwise/internal/config"
	"github.com/abhisek/tierwise/internal/grading"
	"github.com/abhisek/tierwise/internal/llm"
	"github.com/abhisek/tierwise/internal/metrics"
	"github.com/abhisek/tierwise/internal/notify"
	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/store"
	"github.com/abhisek/tierwise/internal/thresholds"
	"github.com/spf13/cobra"
)

// resumeLimit bounds how many stored attempts are regraded or retried in
// one pass.
const resumeLimit = 200

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assessment HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides TIERWISE_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Dependencies ────────────────────────────────────────────────
	th, err := loadThresholds(cfg)
	if err != nil {
		return err
	}
	holder := thresholds.NewHolder(th)
	logger.Info("thresholds loaded", "version", th.Version, "bands", th.BandNames())
	if cfg.Thresholds != "" {
		go func() {
			if err := thresholds.Watch(ctx, cfg.Thresholds, holder, logger); err != nil {
				logger.Error("threshold watcher stopped", "error", err)
			}
		}()
	}

	b, err := loadBank(cfg)
	if err != nil {
		return err
	}
	logger.Info("question bank loaded", "tests", len(b.TestNames()), "skills", len(b.Skills()))

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	m := metrics.New()
	engine := placement.New(holder, placement.WithObserver(m), placement.WithLogger(logger))

	var attempts *assess.Service
	gs, err := newGradingService(ctx, cfg, s, logger, func(ctx context.Context, id string) {
		attempts.Settled(ctx, id)
	})
	if err != nil {
		return err
	}

	var pub notify.Publisher = notify.Nop{}
	if cfg.NATSURL != "" {
		np, err := notify.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return err
		}
		logger.Info("publishing placements", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
		pub = np
	}
	defer pub.Close()

	attempts = assess.New(s.Attempts(), gs, engine,
		assess.WithPublisher(pub),
		assess.WithLogger(logger))
	if _, err := attempts.Resume(ctx, resumeLimit); err != nil {
		logger.Warn("could not resume automatic grading", "error", err)
	}
	if _, err := attempts.RetryUntiered(ctx, resumeLimit); err != nil {
		logger.Warn("could not retry untiered attempts", "error", err)
	}
	holder.OnSwap(func(*thresholds.Config) {
		if _, err := attempts.RetryUntiered(ctx, resumeLimit); err != nil {
			logger.Warn("could not retry untiered attempts after reload", "error", err)
		}
	})

	handler := api.NewHandler(api.Deps{
		Questions:    b,
		Thresholds:   holder,
		Engine:       engine,
		Attempts:     attempts,
		Metrics:      m,
		Health:       s,
		Logger:       logger,
		SessionLimit: cfg.SessionLimit,
	})
	defer handler.Close()

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "address", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := gs.Shutdown(shutdownCtx); err != nil {
		logger.Warn("grading jobs still running at shutdown", "error", err)
	}
	return nil
}

// newGradingService wires the LLM grader when a provider is configured.
func newGradingService(ctx context.Context, cfg *config.Config, s *store.Store, logger *slog.Logger, settled func(context.Context, string)) (*grading.Service, error) {
	opts := []grading.Option{
		grading.WithLogger(logger),
		grading.WithTimeout(cfg.LLM.Timeout),
		grading.WithMinConfidence(cfg.GradeMinConfidence),
		grading.WithSettled(settled),
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, s.Events(), logger)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		logger.Info("automatic grading disabled; free-text answers wait for manual grades")
	case err != nil:
		return nil, fmt.Errorf("llm provider: %w", err)
	default:
		grader := grading.NewLLMGrader(provider, grading.DefaultLLMGraderConfig())
		opts = append(opts, grading.WithGrader(grader))
		logger.Info("automatic grading enabled", "provider", cfg.LLM.Provider, "model", provider.ModelID())
	}
	return grading.NewService(s.Grades(), opts...), nil
}
