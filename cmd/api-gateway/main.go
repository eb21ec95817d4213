package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/noah-isme/gin-admin-kit/api/swagger"
	"github.com/noah-isme/gin-admin-kit/internal/admin"
	"github.com/noah-isme/gin-admin-kit/internal/handler"
	"github.com/noah-isme/gin-admin-kit/internal/middleware"
	"github.com/noah-isme/gin-admin-kit/internal/models"
	"github.com/noah-isme/gin-admin-kit/internal/repository"
	"github.com/noah-isme/gin-admin-kit/internal/service"
	"github.com/noah-isme/gin-admin-kit/internal/session"
	"github.com/noah-isme/gin-admin-kit/pkg/cache"
	"github.com/noah-isme/gin-admin-kit/pkg/config"
	"github.com/noah-isme/gin-admin-kit/pkg/database"
	"github.com/noah-isme/gin-admin-kit/pkg/logger"
	reqidmiddleware "github.com/noah-isme/gin-admin-kit/pkg/middleware/requestid"
	"github.com/noah-isme/gin-admin-kit/pkg/middleware/secure"
)

// @title Gin Admin Kit API
// @version 1.0.0
// @description Authentication and user API served next to the admin panel
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Admin.SessionStore == config.BackendRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	hasher := service.NewBcryptHasher(bcrypt.DefaultCost)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.Expiration,
		RefreshTTL: cfg.JWT.RefreshExpiration,
		Issuer:     cfg.JWT.Issuer,
	})

	userRepo := repository.NewUserRepository(db)
	auditSvc := service.NewAuditService(repository.NewAuditRepository(db), service.AuditConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	}, logr.Named("audit"))
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	commands, queries, err := service.NewBuses()
	if err != nil {
		logr.Sugar().Fatalw("bus registration failed", "error", err)
	}
	commands.Observe(metricsSvc.ObserveDispatch)
	queries.Observe(metricsSvc.ObserveDispatch)

	commandDeps := service.CommandDeps{
		UoW:    repository.NewSQLUnitOfWork(db, logr.Named("uow"), metricsSvc.ObserveTransaction),
		Hasher: hasher,
		Tokens: tokens,
		Audit:  auditSvc,
	}
	queryDeps := service.QueryDeps{Users: userRepo}

	sessionStore, purger := buildSessionStore(cfg, redisClient)
	maintenance := service.NewMaintenanceService(commands, commandDeps, purger, cfg.Maintenance.TokenPurgeSchedule, logr.Named("maintenance"))
	if err := maintenance.Start(); err != nil {
		logr.Sugar().Fatalw("maintenance schedule invalid", "error", err)
	}
	defer maintenance.Stop()

	loginLimiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)
	validate := validator.New()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(secure.Headers(cfg.IsProduction()))
	r.Use(secure.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	authHandler := handler.NewAuthHandler(commands, queries, commandDeps, queryDeps, validate)
	userHandler := handler.NewUserHandler(commands, queries, commandDeps, queryDeps, validate)

	api := r.Group(cfg.APIPrefix)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", loginLimiter.Middleware(), authHandler.Register)
	authGroup.POST("/login", loginLimiter.Middleware(), authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	protected := api.Group("", middleware.JWT(tokens))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.POST("/users", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
	protected.GET("/users/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), userHandler.Get)

	if cfg.Admin.Enabled {
		sessions, err := session.NewManager(sessionStore, []byte(cfg.Admin.SessionSecret), session.Options{
			CookieName: cfg.Admin.SessionCookie,
			Path:       cfg.Admin.Prefix,
			TTL:        cfg.Admin.SessionTTL,
			Secure:     cfg.IsProduction(),
			Observer:   metricsSvc.ObserveSession,
		}, logr.Named("session"))
		if err != nil {
			logr.Sugar().Fatalw("session manager invalid", "error", err)
		}

		site, err := buildAdminSite(adminDeps{
			cfg:       cfg,
			db:        db,
			users:     userRepo,
			hasher:    hasher,
			sessions:  sessions,
			limiter:   loginLimiter,
			logger:    logr,
			observers: []admin.Observer{metricsSvc, auditSvc},
		})
		if err != nil {
			logr.Sugar().Fatalw("admin setup failed", "error", err)
		}
		if err := site.Mount(r); err != nil {
			logr.Sugar().Fatalw("admin mount failed", "error", err)
		}
	}

	if !cfg.IsProduction() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "admin", cfg.Admin.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildSessionStore(cfg *config.Config, client *redis.Client) (session.Store, service.SessionPurger) {
	if cfg.Admin.SessionStore == config.BackendRedis {
		store := session.NewRedisStore(client, cfg.Admin.SessionTTL, nil)
		return store, store
	}
	store := session.NewMemoryStore(cfg.Admin.SessionTTL)
	return store, store
}
