// Command lawcastd polls the legislative notice feed and fans new notices out
// to the registered webhook destinations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-command"
	lawcast "github.com/goliatone/go-lawcast"
	"github.com/goliatone/go-lawcast/adapters/gocommand"
	"github.com/goliatone/go-lawcast/core"
	"github.com/goliatone/go-lawcast/migrations"
	sqlstore "github.com/goliatone/go-lawcast/store/sql"
	"github.com/goliatone/go-lawcast/verify"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"

	destinationStatsTTL = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := run(ctx, logger); err != nil {
		logger.Error("lawcastd stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slogLogger) error {
	dbConfig, err := loadDatabaseConfig(os.LookupEnv)
	if err != nil {
		return err
	}
	client, err := openPersistence(ctx, dbConfig)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		return fmt.Errorf("lawcastd: build stores: %w", err)
	}
	statsCache, err := sqlstore.NewDestinationStatsCache(destinationStatsTTL)
	if err != nil {
		return fmt.Errorf("lawcastd: build stats cache: %w", err)
	}
	destinations, err := factory.CachedDestinationStore(statsCache)
	if err != nil {
		return fmt.Errorf("lawcastd: build destination store: %w", err)
	}

	verifierCfg, err := loadVerifierConfig(os.LookupEnv)
	if err != nil {
		return err
	}

	provider := slogProvider{root: logger}
	verifier := verify.Chain{
		verify.NewBurstGuard(verify.BurstOptions{Window: verifierCfg.BurstWindow}),
		verify.NewSiteVerifier(verify.SiteVerifierConfig{
			Secret:   verifierCfg.Secret,
			URL:      verifierCfg.URL,
			MinScore: verifierCfg.MinScore,
		}, verify.WithSiteVerifierLogger(provider.GetLogger("lawcast.verify"))),
	}
	service, err := lawcast.NewService(lawcast.Config{},
		lawcast.WithLoggerProvider(provider),
		lawcast.WithConfigProvider(core.NewCfgxConfigProvider(newEnvLoader())),
		lawcast.WithDestinationStore(destinations),
		lawcast.WithDeliveryLedger(factory.DeliveryLogStore()),
		lawcast.WithRegistrationVerifier(verifier),
	)
	if err != nil {
		return err
	}

	facade, err := lawcast.NewFacade(service)
	if err != nil {
		return err
	}
	subscriptions, err := gocommand.RegisterFacade(gocommand.NewRegistryAdapter(command.NewRegistry()), facade)
	if err != nil {
		return fmt.Errorf("lawcastd: register commands: %w", err)
	}
	defer subscriptions.Unsubscribe()

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("lawcastd: startup fetch: %w", err)
	}
	logger.Info("lawcastd started",
		"driver", dbConfig.Driver,
		"poll_interval", service.Config().Poll.Interval.String(),
	)

	runErr := service.Run(ctx)

	shutdownCtx := context.WithoutCancel(ctx)
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func openPersistence(ctx context.Context, cfg databaseConfig) (*persistence.Client, error) {
	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("lawcastd: open %s: %w", cfg.Driver, err)
	}

	migrationDialect, err := migrations.DialectForDriver(cfg.Driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	var client *persistence.Client
	switch migrationDialect {
	case migrations.DialectPostgres:
		client, err = persistence.New(cfg, sqlDB, pgdialect.New())
	default:
		sqlDB.SetMaxOpenConns(1)
		client, err = persistence.New(cfg, sqlDB, sqlitedialect.New())
	}
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("lawcastd: persistence client: %w", err)
	}

	_, err = migrations.Register(ctx, func(_ context.Context, dialectName string, _ string, fsys fs.FS) error {
		if dialectName != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(migrationDialect))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("lawcastd: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("lawcastd: migrate: %w", err)
	}
	return client, nil
}
