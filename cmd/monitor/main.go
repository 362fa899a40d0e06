package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-monitor/internal/api/http"
	"github.com/spec-kit/sla-monitor/internal/api/http/handlers"
	"github.com/spec-kit/sla-monitor/internal/cache"
	"github.com/spec-kit/sla-monitor/internal/config"
	"github.com/spec-kit/sla-monitor/internal/events"
	"github.com/spec-kit/sla-monitor/internal/observability"
	"github.com/spec-kit/sla-monitor/internal/persistence"
	"github.com/spec-kit/sla-monitor/internal/repository"
	"github.com/spec-kit/sla-monitor/internal/service"
	"github.com/spec-kit/sla-monitor/internal/sla"
	"github.com/spec-kit/sla-monitor/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rds := persistence.NewRedis(cfg.Redis, logger)
	defer rds.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	calendarRepo := repository.NewCalendarRepository(pool)
	runRepo := repository.NewRunRepository(pool)

	slaCache := cache.NewSLACache(rds.ClientHandle(), ruleRepo, calendarRepo, cfg.Monitor.CacheTTL, logger)
	calendar := sla.NewCalendar(slaCache, logger)
	calculator := sla.NewCalculator(calendar)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	monitorService := service.NewMonitorService(service.MonitorDependencies{
		TicketStore:      ticketRepo,
		Rules:            slaCache,
		Calculator:       calculator,
		RunStore:         runRepo,
		Dispatcher:       dispatcher,
		Escalation:       service.NewEventEscalation(dispatcher, logger),
		Metrics:          metrics,
		Logger:           logger,
		WarningThreshold: cfg.Monitor.WarningThreshold,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	var runLock worker.RunLock
	if client := rds.ClientHandle(); client != nil && rds.Ping(ctx) == nil {
		runLock = worker.NewRedisRunLock(client, cfg.Monitor.LockTTL, logger)
	} else {
		logger.Warn("redis unavailable, sweep lock is process local")
		runLock = worker.NewLocalRunLock()
	}

	scheduler := worker.NewScheduler(worker.SchedulerDependencies{
		Monitor:    monitorService,
		Lock:       runLock,
		Metrics:    metrics,
		Logger:     logger,
		Interval:   cfg.Monitor.Interval,
		RunOnStart: cfg.Monitor.RunOnStart,
	})
	if err := scheduler.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rds),
		SLA:    handlers.NewSLAHandler(monitorService, scheduler),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	scheduler.Stop(stopCtx)
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
