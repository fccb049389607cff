// Command cba runs climate-adaptation benefit-cost analyses from definition
// files, or serves them over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/storm-benefit-cost/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-benefit-cost/internal/adapter/kafka"
	"github.com/couchcryptid/storm-benefit-cost/internal/adapter/sqlite"
	"github.com/couchcryptid/storm-benefit-cost/internal/config"
	"github.com/couchcryptid/storm-benefit-cost/internal/definition"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
	"github.com/couchcryptid/storm-benefit-cost/internal/impact"
	"github.com/couchcryptid/storm-benefit-cost/internal/observability"
	"github.com/couchcryptid/storm-benefit-cost/internal/pipeline"
	"github.com/couchcryptid/storm-benefit-cost/internal/report"
	"github.com/couchcryptid/storm-benefit-cost/internal/scenario"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "cba",
		Short:         "Adaptation benefit-cost analysis under climate scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		store     string
		withKafka bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "run [definition-file]",
		Short: "Run an analysis and print the per-scenario results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("store") {
				cfg.ResultsDBPath = store
			}
			if withKafka {
				cfg.KafkaEnabled = true
			}
			logger := newLogger(cfg)
			return runAnalysis(cmd.Context(), cfg, logger, observability.NewMetrics(), args[0], format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "SQLite results file (overrides RESULTS_DB_PATH)")
	cmd.Flags().BoolVar(&withKafka, "kafka", false, "publish results to KAFKA_RESULTS_TOPIC")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [definition-file]",
		Short: "Check a definition file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], cmd.OutOrStdout())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runAnalysis(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, path, format string, out io.Writer) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}
	def, err := definition.Load(path)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer svc.close()

	rs, err := svc.pipeline.Process(ctx, def)
	if err != nil && rs.RunID == "" {
		return err
	}
	if format == "json" {
		if werr := report.WriteJSON(out, rs); werr != nil {
			return werr
		}
	} else if werr := report.WriteTable(out, rs); werr != nil {
		return werr
	}
	return err
}

func runValidate(path string, out io.Writer) error {
	def, err := definition.Load(path)
	if err != nil {
		return err
	}
	a, err := def.Build()
	if err != nil {
		return err
	}
	rows, cols := a.Hazard.Grid().Shape()
	fmt.Fprintf(out, "%s: ok\n", path)
	fmt.Fprintf(out, "  centroids   %d (%dx%d)\n", a.Hazard.Len(), rows, cols)
	fmt.Fprintf(out, "  hazard      %s, event %q, max intensity %.2f\n", a.Hazard.HazardType(), a.Hazard.EventID(), a.Hazard.MaxIntensity())
	fmt.Fprintf(out, "  exposure    %s, total %.0f\n", a.Entity.Exposure().Basis(), a.Entity.Exposure().TotalValue())
	fmt.Fprintf(out, "  measures    %v, cost %.0f\n", a.Entity.Measures().Names(), a.Entity.Measures().TotalCost())
	fmt.Fprintf(out, "  scenarios   %v\n", a.Scenarios)
	for _, id := range a.Scenarios {
		if _, err := scenario.Parse(string(id)); err != nil {
			fmt.Fprintf(out, "  warning     %v\n", err)
		}
	}
	return nil
}

func runServe(cfg *config.Config) error {
	logger := newLogger(cfg)
	metrics := observability.NewMetrics()
	svc, err := newService(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer svc.close()

	var runs httpadapter.RunStore
	if svc.store != nil {
		runs = svc.store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc.pipeline, runs, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// service holds the wired pipeline and the sinks that need closing.
type service struct {
	pipeline *pipeline.Pipeline
	store    *sqlite.Store
	writer   *kafkaadapter.Writer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func newService(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*service, error) {
	svc := &service{logger: logger, metrics: metrics}
	var sinks []pipeline.Sink

	if cfg.ResultsDBPath != "" {
		store, err := sqlite.Open(cfg.ResultsDBPath)
		if err != nil {
			return nil, err
		}
		svc.store = store
		sinks = append(sinks, pipeline.Sink{Name: "sqlite", Loader: store})
		logger.Info("sqlite results store enabled", "path", cfg.ResultsDBPath)
	}
	if cfg.KafkaEnabled {
		svc.writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, pipeline.Sink{Name: "kafka", Loader: svc.writer})
		logger.Info("kafka results sink enabled", "topic", cfg.KafkaResultsTopic, "brokers", cfg.KafkaBrokers)
	}

	eng := engine.New(scenario.Default(), impact.NewCalculator(cfg.EngineWorkers), logger, metrics, nil)
	svc.pipeline = pipeline.New(eng, sinks, logger, metrics, cfg.SinkMaxAttempts, cfg.EngineWorkers)
	return svc, nil
}

// CheckReadiness implements observability.ReadinessChecker. The service can
// take analyses as soon as its results store, if any, answers.
func (s *service) CheckReadiness(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			s.metrics.ServiceReady.Set(0)
			return fmt.Errorf("results store: %w", err)
		}
	}
	s.metrics.ServiceReady.Set(1)
	return nil
}

func (s *service) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("sqlite store close error", "error", err)
		}
	}
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			s.logger.Error("kafka writer close error", "error", err)
		}
	}
}
