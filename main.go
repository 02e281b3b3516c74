package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	saleUsecase "kassa/src/sale/application/usecase"
	salePort "kassa/src/sale/domain/port"
	saleCache "kassa/src/sale/infrastructure/cache"
	saleClient "kassa/src/sale/infrastructure/client"
	saleController "kassa/src/sale/infrastructure/controller"
	salePersistence "kassa/src/sale/infrastructure/persistence"
	"kassa/src/shared/infrastructure/config"
	"kassa/src/shared/infrastructure/database"
	"kassa/src/shared/infrastructure/logger"
	"kassa/src/shared/infrastructure/metrics"
	"kassa/src/shared/infrastructure/server"
	shiftUsecase "kassa/src/shift/application/usecase"
	shiftController "kassa/src/shift/infrastructure/controller"
	shiftPersistence "kassa/src/shift/infrastructure/persistence"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "kassa",
		Short:        "Point-of-sale register backend",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	cmd.AddCommand(serveCmd(&configPath))
	cmd.AddCommand(migrateCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kassa %s\n", version)
		},
	})
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

	reader := salePersistence.NewCatalogPostgresReader(db)
	var (
		source      saleCache.Source = reader
		invalidator salePort.ReadModelInvalidator
		notifier    salePort.SaleNotifier
	)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, reads will fall through to postgres", zap.Error(err))
		}
		readModels := saleCache.NewReadModelCache(rdb, reader, cfg.Redis.TTL, log)
		source = readModels
		invalidator = readModels
		log.Info("read-model cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	if cfg.Telegram.BotToken != "" {
		notifier = saleClient.NewTelegramClient(cfg.Telegram, log)
		log.Info("telegram notifications enabled")
	}

	shifts := shiftUsecase.NewShiftUseCase(
		shiftPersistence.NewShiftPostgresRepository(db),
		shiftUsecase.NewRolePolicy(cfg.Register.ExemptRoles...),
		m,
		log,
	)

	deps := saleUsecase.Collaborators{
		Catalog:     source,
		Customers:   source,
		Settings:    source,
		Sales:       salePersistence.NewSalePostgresRepository(db),
		Shifts:      shifts,
		Invalidator: invalidator,
		Notifier:    notifier,
	}
	registers := saleUsecase.NewRegisterPool(deps, cfg.Register.SubmitTimeout, m, log)
	refunds := saleUsecase.NewRefundSaleUseCase(deps, cfg.Register.SubmitTimeout, m, log)

	opts := server.Options{DB: db}
	if cfg.Server.PrometheusEnabled {
		opts.Gatherer = reg
	}
	router := server.NewRouter(log, opts)

	api := router.Group("/api/v1")
	saleController.NewRegisterController(registers, refunds).RegisterRoutes(api)
	shiftController.NewShiftController(shifts, log).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.Bool("metrics", cfg.Server.PrometheusEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.MigrateUp(db, cfg.Database.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.MigrateDown(db, cfg.Database.MigrationsPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
