package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webmail/backend/internal/auth"
	jwtpkg "webmail/backend/internal/auth/jwt"
	"webmail/backend/internal/cache"
	"webmail/backend/internal/config"
	"webmail/backend/internal/credential"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/health"
	"webmail/backend/internal/logger"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/service"
	"webmail/backend/internal/storage"
	"webmail/backend/internal/storage/memory"
	rediscache "webmail/backend/internal/storage/redis"
	sqlstore "webmail/backend/internal/storage/sql"
	httptransport "webmail/backend/internal/transport/http"
)

// main 启动邮件系统的 HTTP API 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting webmail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// 初始化已验证域名缓存：优先 Redis，未启用时退回进程内缓存
	var (
		domainCache service.DomainCache
		redisPinger health.Pinger
	)
	if cfg.Redis.Enabled {
		redisCache, err := rediscache.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to redis: %v", err))
		}
		defer redisCache.Close()
		domainCache = redisCache
		redisPinger = redisCache
		log.Info("using redis domain cache", zap.String("address", cfg.Redis.Address))
	} else {
		localCache := cache.NewLocalCache(time.Minute)
		defer localCache.Close()
		domainCache = cache.NewDomainCache(localCache)
		log.Info("using in-process domain cache")
	}

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, redisPinger, log)

	// 初始化凭证系统与认证
	provider := credential.NewLocalProvider(store)
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(store, provider, jwtManager, log)

	// 初始化业务服务
	var checker service.Checker
	if cfg.Verify.Mode == "dns" {
		checker = service.NewDNSChecker()
	} else {
		checker = service.InstantChecker{}
	}
	directoryService := service.NewDirectoryService(store, provider, cfg, log)
	verifierService := service.NewVerifierService(store, checker, domainCache, cfg, log)
	deliveryService := service.NewDeliveryService(store, domainCache, cfg, log)

	// 停用或删除域名时失效可投递域名缓存
	directoryService.SetDomainCache(domainCache)

	// 业务指标挂到各服务
	authService.SetMetrics(metrics)
	directoryService.SetMetrics(metrics)
	verifierService.SetMetrics(metrics)
	deliveryService.SetMetrics(metrics)

	log.Info("services initialized",
		zap.String("verify_mode", cfg.Verify.Mode),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
	)

	// 开发环境引导：创建默认域名与管理员账户
	if cfg.Mail.BootstrapDomain != "" {
		bootstrapDomain(directoryService, verifierService, cfg, log)
	}

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		AuthService:      authService,
		DirectoryService: directoryService,
		VerifierService:  verifierService,
		DeliveryService:  deliveryService,
		JWTManager:       jwtManager,
		Metrics:          metrics,
		HealthHandler:    healthChecker.Handler(),
		Logger:           log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// DNS 模式下定时轮询待验证域名 goroutine
	if cfg.Verify.Mode == "dns" {
		group.Go(func() error {
			ticker := time.NewTicker(cfg.Verify.Interval)
			defer ticker.Stop()

			log.Info("starting domain verification poller", zap.Duration("interval", cfg.Verify.Interval))

			for {
				select {
				case <-groupCtx.Done():
					log.Info("domain verification poller stopped")
					return nil
				case <-ticker.C:
					count, err := verifierService.RunPendingChecks(groupCtx)
					if err != nil {
						log.Error("domain verification round failed", zap.Error(err))
					} else if count > 0 {
						log.Info("domains verified", zap.Int("count", count))
					}
				}
			}
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// bootstrapDomain 创建并验证引导域名，附带一个默认管理员账户。
// 仅在 WEBMAIL_MAIL_BOOTSTRAP_DOMAIN 非空时执行，已存在则跳过。
func bootstrapDomain(
	directory *service.DirectoryService,
	verifier *service.VerifierService,
	cfg *config.Config,
	log *zap.Logger,
) {
	name := cfg.Mail.BootstrapDomain

	d, err := directory.CreateDomain(name, "system")
	if err != nil {
		if domain.IsConflict(err) {
			log.Info("bootstrap domain already exists, skipping", zap.String("domain", name))
			return
		}
		log.Error("failed to create bootstrap domain", zap.String("domain", name), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := verifier.VerifyDomain(ctx, d.ID); err != nil {
		log.Warn("bootstrap domain not verified yet, verify it manually",
			zap.String("domain", name),
			zap.Error(err),
		)
	}

	const adminPassword = "Admin123456"
	admin, err := directory.CreateUser(service.CreateUserInput{
		FullName:        "Administrator",
		Username:        "admin",
		DomainID:        d.ID,
		Password:        adminPassword,
		ConfirmPassword: adminPassword,
		Role:            domain.RoleAdmin,
	})
	if err != nil {
		log.Error("failed to create bootstrap admin", zap.Error(err))
		return
	}

	log.Warn("bootstrap admin account created (development only)",
		zap.String("email", admin.Email),
		zap.String("password", adminPassword),
	)
}
