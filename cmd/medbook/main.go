package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/api"
	"github.com/Freeeeeet/medbook/internal/app"
	"github.com/Freeeeeet/medbook/internal/config"
	"github.com/Freeeeeet/medbook/internal/model"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "medbook",
		Short:        "Doctor appointment booking service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(expireHoldsCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup загружает конфиг и создаёт логгер
func setup() (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg, app.NewLogger(cfg.Environment)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the hold sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			defer logger.Sync()
			return runServer(cfg, logger)
		},
	}
}

func runServer(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	components, err := app.Build(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	if components.Pool != nil {
		migrator, err := app.NewMigrator(components.Pool, logger)
		if err != nil {
			return err
		}
		err = migrator.Run(ctx)
		_ = migrator.Close()
		if err != nil {
			return err
		}
	}

	scheduler := app.NewScheduler(components.Bookings, cfg.HoldSweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Config{
			Bookings:       components.Bookings,
			Schedule:       components.Schedule,
			Doctors:        components.Doctors,
			Logger:         logger,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting medbook",
			zap.String("environment", cfg.Environment),
			zap.String("addr", cfg.HTTPAddr),
			zap.Bool("memory_store", cfg.UseMemoryStore),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
				return mg.Run(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
				return mg.Status(ctx)
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *app.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger := setup()
	defer logger.Sync()

	pool, err := app.NewPool(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return fn(ctx, migrator)
}

func expireHoldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-holds",
		Short: "Release unpaid holds older than PAYMENT_HOLD_TTL once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := setup()
			defer logger.Sync()

			components, err := app.Build(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			expired, err := components.Bookings.ExpireStaleHolds(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %d hold(s)\n", expired)
			return nil
		},
	}
}

func slotsCmd() *cobra.Command {
	var (
		doctorID           int64
		date               string
		consultationType   string
		includeUnavailable bool
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the computed slots of a doctor for one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := model.ParseDate(date)
			if err != nil {
				return err
			}

			cfg, logger := setup()
			defer logger.Sync()

			components, err := app.Build(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			slots, err := components.Bookings.ComputeAvailableSlots(cmd.Context(), doctorID, day,
				model.ConsultationType(consultationType), includeUnavailable)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(slots)
		},
	}

	cmd.Flags().Int64Var(&doctorID, "doctor", 0, "Doctor ID")
	cmd.Flags().StringVar(&date, "date", "", "Date in YYYY-MM-DD")
	cmd.Flags().StringVar(&consultationType, "type", string(model.ConsultationBoth), "in_person, video or both")
	cmd.Flags().BoolVar(&includeUnavailable, "all", false, "Include booked and past slots")
	_ = cmd.MarkFlagRequired("doctor")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}
