// Command server runs the workflow engine HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/bpmflow/bpmflow/pkg/api"
	"github.com/bpmflow/bpmflow/pkg/auth"
	"github.com/bpmflow/bpmflow/pkg/common/config"
	"github.com/bpmflow/bpmflow/pkg/database"
	"github.com/bpmflow/bpmflow/pkg/observability"
	pgrepo "github.com/bpmflow/bpmflow/pkg/repository/postgres"
	"github.com/bpmflow/bpmflow/pkg/retry"
	"github.com/bpmflow/bpmflow/pkg/schema"
	"github.com/bpmflow/bpmflow/pkg/services"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrateUp := flag.Bool("migrate", false, "apply pending migrations before serving")
	flag.Parse()

	if err := run(*configPath, *migrateUp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, migrateUp bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewStandardLoggerWithLevel("bpmflow", observability.ParseLogLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateUp {
		if err := applyMigrations(db, cfg.Database.MigrationsPath, logger); err != nil {
			return err
		}
	}

	deps, err := wire(cfg, db, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.API, cfg.Environment, deps, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func wire(cfg *config.Config, db *database.Database, logger observability.Logger) (api.Deps, error) {
	tracer := observability.NewStartSpan("bpmflow")
	uow := database.NewUnitOfWork(db, logger)
	provisioner := schema.NewProvisioner(db.DB(), logger)

	templateRepo := pgrepo.NewTemplateRepository(db.DB(), logger, tracer)
	taskRepo := pgrepo.NewTaskRepository(db.DB(), logger, tracer)
	formRepo := pgrepo.NewFormRepository(db.DB(), logger, tracer)
	instanceRepo := pgrepo.NewInstanceRepository(db.DB(), logger, tracer)
	directoryRepo := pgrepo.NewDirectoryRepository(db.DB(), logger, tracer)
	userRepo := pgrepo.NewUserRepository(db.DB(), logger, tracer)

	resolver, err := services.NewRoutingResolver(taskRepo, cfg.Engine.RoutingCacheSize, logger)
	if err != nil {
		return api.Deps{}, err
	}
	join, err := services.NewJoinPolicy(cfg.Engine.JoinPolicy, taskRepo, instanceRepo)
	if err != nil {
		return api.Deps{}, err
	}
	compiler, err := services.NewCompilerService(templateRepo, taskRepo, formRepo, uow, provisioner, logger)
	if err != nil {
		return api.Deps{}, err
	}

	notifier := services.NewLogNotifier(logger)
	completePolicy := retry.NewFixedDelay(cfg.Engine.CompleteRetryDelay, cfg.Engine.CompleteRetryAttempts)
	runtime := services.NewRuntimeService(templateRepo, taskRepo, instanceRepo, uow, resolver, join, notifier, completePolicy, logger)
	templates := services.NewTemplateService(templateRepo, logger)
	registry := services.NewRegistryService(formRepo, taskRepo, uow, provisioner, logger)
	directory := services.NewDirectoryService(directoryRepo, provisioner, logger)

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret, userRepo, cfg.Auth.TokenTTL)
	} else {
		logger.Warn("auth disabled, no jwt secret configured", nil)
	}

	return api.Deps{
		Workflows: api.NewWorkflowAPI(templates, compiler),
		Instances: api.NewInstanceAPI(runtime),
		Forms:     api.NewFormAPI(registry),
		Directory: api.NewDirectoryAPI(directory),
		Verifier:  verifier,
	}, nil
}

func applyMigrations(db *database.Database, path string, logger observability.Logger) error {
	driver, err := postgres.WithInstance(db.DB().DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied", map[string]interface{}{"path": path})
	return nil
}
