package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/hrdesk/helpdesk-service/internal/api/http"
	"github.com/hrdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/hrdesk/helpdesk-service/internal/auth"
	"github.com/hrdesk/helpdesk-service/internal/clock"
	"github.com/hrdesk/helpdesk-service/internal/config"
	"github.com/hrdesk/helpdesk-service/internal/events"
	"github.com/hrdesk/helpdesk-service/internal/observability"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	"github.com/hrdesk/helpdesk-service/internal/service"
	"github.com/hrdesk/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	areaRepo := repository.NewAreaRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	chatRepo := repository.NewChatRoomRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	systemClock := clock.System{}
	metrics := observability.NewMetrics()

	rules := service.NewCategoryRules(categoryRepo)
	balancer := service.NewLoadBalancer(accountRepo, ticketRepo)
	chatService := service.NewChatService(chatRepo, redis, logger)

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:     ticketRepo,
		AccountRepo:    accountRepo,
		AssignmentRepo: assignmentRepo,
		HistoryRepo:    historyRepo,
		Balancer:       balancer,
		Rules:          rules,
		Chat:           chatService,
		Dispatcher:     dispatcher,
		Tx:             pg,
		Clock:          systemClock,
		Config:         cfg.Assignment,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		AccountRepo: accountRepo,
		HistoryRepo: historyRepo,
		Rules:       rules,
		Assignment:  assignmentService,
		Balancer:    balancer,
		Chat:        chatService,
		Dispatcher:  dispatcher,
		Tx:          pg,
		Clock:       systemClock,
		Config:      cfg.Assignment,
		Logger:      logger,
	})
	catalogService := service.NewCatalogService(categoryRepo, roleRepo, areaRepo)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		RoleRepo:    roleRepo,
	})
	notificationService := service.NewNotificationService(notificationRepo, accountRepo, ticketRepo, redis, dispatcher, logger)
	notificationService.RegisterHandlers()

	sweeper := worker.NewSweeper(assignmentService, metrics, logger)
	if err := sweeper.Start(cfg.Assignment.SweepCronSpec); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), accountRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Accounts:       handlers.NewAccountsHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
