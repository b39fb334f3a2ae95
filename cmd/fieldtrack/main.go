package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/fieldtrack/fieldtrack/internal/app"
	"github.com/fieldtrack/fieldtrack/internal/history"
	"github.com/fieldtrack/fieldtrack/internal/notify"
	"github.com/fieldtrack/fieldtrack/internal/observability"
	"github.com/fieldtrack/fieldtrack/internal/platform/cache"
	"github.com/fieldtrack/fieldtrack/internal/platform/db"
	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/users"
	"github.com/fieldtrack/fieldtrack/internal/workflow"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rbacRepo := rbac.NewRepository(pool)

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := rbac.Seed(ctx, rbacRepo); err != nil {
			logger.Error("seed roles", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("role catalog seeded")
		return
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalog := rbac.NewCatalog(rbacRepo, logger)
	if err := catalog.Reload(ctx); err != nil {
		logger.Error("load role catalog", slog.Any("error", err))
		os.Exit(1)
	}

	rbacService := rbac.NewService(catalog, rbacRepo)
	rbacMW := rbac.Middleware{Service: rbacService, Logger: logger}

	ledger := history.NewLedger(pool)
	workflowRepo := workflow.NewRepository(pool, ledger)
	workflowService := workflow.NewService(workflowRepo, rbacService, ledger, logger)

	metrics := observability.NewMetrics()
	workflowService.SetMetrics(metrics)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(pool)
	sink := notify.NewSink(pool)
	dispatcher := notify.NewDispatcher(notify.EditAccessPolicy{
		Catalog: catalog,
		Members: usersRepo,
	}, asynqClient, logger)
	workflowService.SetDispatcher(dispatcher)

	usersService := users.NewService(usersRepo, catalog)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		WorkflowHandler:      workflow.NewHandler(logger, workflowService, rbacMW),
		RolesHandler:         rbac.NewHandler(logger, rbacService),
		UsersHandler:         users.NewHandler(logger, usersService, rbacService),
		NotificationsHandler: notify.NewHandler(logger, sink),
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("http server started", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := catalog.SubscribeInvalidation(groupCtx, redisClient, cfg.CatalogChannel)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("runtime stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
