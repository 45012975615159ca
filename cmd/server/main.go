package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/fixora/tasktrail/internal/adapter/http"
	"github.com/fixora/tasktrail/internal/adapter/persistence"
	"github.com/fixora/tasktrail/internal/adapter/ratelimit"
	"github.com/fixora/tasktrail/internal/adapter/security"
	"github.com/fixora/tasktrail/internal/audit"
	"github.com/fixora/tasktrail/internal/config"
	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/usecase"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "tasktrail",
	})
	appLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		appLogger.Error(ctx, "Failed to open database", err, nil)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		appLogger.Error(ctx, "Failed to ping database", err, nil)
		os.Exit(1)
	}
	appLogger.Info(ctx, "Database connection established", nil)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "tasktrail"),
	)

	// Change audit: the interceptor observes every repository mutation
	policy, err := audit.ParseActorPolicy(cfg.Audit.ActorPolicy)
	if err != nil {
		appLogger.Error(ctx, "Invalid audit actor policy", err, nil)
		os.Exit(1)
	}
	auditStore := persistence.NewPostgresAuditRepository(db)
	interceptor := audit.NewInterceptor(
		audit.NewDomainSchema(),
		auditStore,
		appLogger,
		audit.WithIgnoredFields(cfg.Audit.IgnoredFields...),
		audit.WithActorPolicy(policy),
		audit.WithMetrics(audit.NewMetrics(registry)),
		audit.WithClassifier(domain.EntityTask, audit.AssignmentClassifier("assignedToId")),
		audit.WithWriteTimeout(cfg.Audit.WriteTimeout),
	)
	if err := interceptor.Verify(persistence.TrackedEntities...); err != nil {
		appLogger.Error(ctx, "Audit schema does not cover tracked entities", err, nil)
		os.Exit(1)
	}

	// Initialize repositories
	txManager := persistence.NewTxManager(db, interceptor)
	userRepo := persistence.NewPostgresUserRepository(txManager)
	taskRepo := persistence.NewPostgresTaskRepository(txManager)
	teamRepo := persistence.NewPostgresTeamRepository(txManager)
	commentRepo := persistence.NewPostgresCommentRepository(txManager)

	// Initialize services
	limiter, closeLimiter, err := ratelimit.NewLoginLimiter(ctx, ratelimit.Config{
		Enabled:       cfg.Security.RateLimitEnabled,
		RedisURL:      cfg.Redis.URL,
		Attempts:      cfg.Security.LoginAttempts,
		Window:        cfg.Security.LoginWindow,
		BlockDuration: cfg.Security.LoginBlockDuration,
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize login rate limiting", err, nil)
		os.Exit(1)
	}
	defer closeLimiter()

	tokenService, err := security.NewJWTService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize JWT service", err, nil)
		os.Exit(1)
	}
	passwordService := security.NewBcryptPasswordService(cfg.Security.BcryptCost)

	// Initialize use cases
	authUseCase := usecase.NewAuthUseCase(userRepo, passwordService, tokenService, limiter, interceptor, appLogger)
	taskUseCase := usecase.NewTaskUseCase(taskRepo, userRepo, teamRepo)
	userUseCase := usecase.NewUserUseCase(userRepo, taskRepo, txManager, passwordService)
	teamUseCase := usecase.NewTeamUseCase(teamRepo, userRepo, taskRepo, txManager)
	commentUseCase := usecase.NewCommentUseCase(commentRepo, taskRepo)
	historyUseCase := usecase.NewHistoryUseCase(auditStore, cfg.Audit.DefaultLimit, cfg.Audit.MaxLimit)

	// Initialize HTTP server
	serverConfig := httpadapter.ServerConfig{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		HealthCheck:    db.PingContext,
	}
	if cfg.Metrics.Enabled {
		serverConfig.MetricsPath = cfg.Metrics.Path
		serverConfig.Gatherer = registry
	}

	server := httpadapter.NewServer(
		serverConfig,
		httpadapter.Handlers{
			Auth:     httpadapter.NewAuthHandler(authUseCase, appLogger),
			Tasks:    httpadapter.NewTaskHandler(taskUseCase, appLogger),
			Users:    httpadapter.NewUserHandler(userUseCase, appLogger),
			Teams:    httpadapter.NewTeamHandler(teamUseCase, appLogger),
			Comments: httpadapter.NewCommentHandler(commentUseCase, appLogger),
			History:  httpadapter.NewHistoryHandler(historyUseCase, appLogger),
		},
		httpadapter.NewAuthMiddleware(tokenService, appLogger),
		httpadapter.NewMetrics(registry),
		appLogger,
	)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(ctx, "Server stopped with error", err, nil)
		os.Exit(1)
	}

	if pending := interceptor.Pending(); pending > 0 {
		appLogger.Warn(ctx, "Exiting with unfinished audited mutations", map[string]interface{}{"armed": pending})
	}
	appLogger.Info(ctx, "Server exited", nil)
}
