package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/iqrolife/iqrolife-api/api/swagger"
	"github.com/iqrolife/iqrolife-api/internal/handler"
	"github.com/iqrolife/iqrolife-api/internal/middleware"
	"github.com/iqrolife/iqrolife-api/internal/repository"
	"github.com/iqrolife/iqrolife-api/internal/service"
	"github.com/iqrolife/iqrolife-api/internal/session"
	"github.com/iqrolife/iqrolife-api/pkg/cache"
	"github.com/iqrolife/iqrolife-api/pkg/config"
	"github.com/iqrolife/iqrolife-api/pkg/database"
	"github.com/iqrolife/iqrolife-api/pkg/export"
	"github.com/iqrolife/iqrolife-api/pkg/jobs"
	"github.com/iqrolife/iqrolife-api/pkg/logger"
	corsmiddleware "github.com/iqrolife/iqrolife-api/pkg/middleware/cors"
	reqidmiddleware "github.com/iqrolife/iqrolife-api/pkg/middleware/requestid"
	"github.com/iqrolife/iqrolife-api/pkg/proxy"
	"github.com/iqrolife/iqrolife-api/pkg/storage"
)

// @title Iqrolife Dashboard API
// @version 1.0.0
// @description Session, role permission and menu service for the Iqrolife dashboard
// @BasePath /api/v1
// @schemes http https

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	resetRepo := repository.NewResetTokenRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Menu.CacheTTL, logr, redisClient != nil)
	auditSvc := service.NewAuditService(auditRepo, metrics, logr, service.AuditConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	})
	auditSvc.Start(context.Background())

	menuSvc := service.NewMenuService(menuRepo, cacheSvc, auditSvc, validate, logr, cfg.Menu.CacheTTL)
	roleSvc := service.NewRoleService(roleRepo, menuSvc, auditSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, roleRepo, resetRepo, menuSvc, auditSvc, nil, metrics, validate, logr, service.AuthConfig{
		ResetTokenTTL: cfg.PasswordReset.TokenTTL,
		ResetURL:      cfg.PasswordReset.ResetURL,
	})

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(auditRepo, files, signer, export.NewRenderer(), auditSvc, validate, logr, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
	})

	codec, err := session.NewCodec(cfg.Session)
	if err != nil {
		logr.Fatal("failed to init session codec", zap.Error(err))
	}
	sessions := session.NewManager(codec, cfg.Session)

	scheduler := jobs.NewScheduler(logr)
	if cfg.Exports.CleanupSchedule != "" {
		if err := scheduler.Register("export-cleanup", cfg.Exports.CleanupSchedule, func(context.Context) {
			exportSvc.Cleanup()
		}); err != nil {
			logr.Fatal("invalid export cleanup schedule", zap.Error(err))
		}
	}
	scheduler.Start()

	checks := map[string]handler.Checker{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.Routes{
		APIPrefix:       cfg.APIPrefix,
		Authenticator:   middleware.NewAuthenticator(sessions, logr),
		Audit:           auditSvc,
		Auth:            handler.NewAuthHandler(authSvc, sessions),
		Menus:           handler.NewMenuHandler(menuSvc),
		Roles:           handler.NewRoleHandler(roleSvc),
		Users:           handler.NewUserHandler(userSvc),
		AuditLogs:       handler.NewAuditHandler(auditSvc, exportSvc),
		Proxy:           handler.NewProxyHandler(proxy.NewClient(cfg.Backend.BaseURL, nil), metrics),
		Metrics:         handler.NewMetricsHandler(metrics, checks),
		Dashboard:       handler.NewDashboardHandler(cfg.Dashboard.Dir),
		DashboardPrefix: cfg.Dashboard.PathPrefix,
		DashboardGuard: middleware.DashboardGuardConfig{
			LoginPath:   cfg.Dashboard.LoginPath,
			PublicPaths: cfg.Dashboard.PublicPaths,
			AssetPaths:  cfg.Dashboard.AssetPaths,
		},
	}.Register(r)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	auditSvc.Shutdown(shutdownCtx)
}
