package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"webmail/backend/internal/auth"
	jwtpkg "webmail/backend/internal/auth/jwt"
	"webmail/backend/internal/config"
	"webmail/backend/internal/middleware"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	AuthService      *auth.Service
	DirectoryService *service.DirectoryService
	VerifierService  *service.VerifierService
	DeliveryService  *service.DeliveryService
	JWTManager       *jwtpkg.Manager
	Metrics          *monitoring.Metrics
	HealthHandler    http.Handler
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.MessageBodyLimit))

	if deps.Metrics != nil {
		router.Use(deps.Metrics.GinMiddleware())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	adminHandler := NewAdminHandler(deps.DirectoryService, deps.VerifierService, deps.Logger)
	messageHandler := NewMessageHandler(deps.DeliveryService, deps.Logger)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)
	adminAuth := middleware.NewAdminAuth(deps.AuthService)
	sendLimit := middleware.NewSendRateLimiter(
		deps.Config.RateLimit.SendPerMinute,
		deps.Config.RateLimit.SendBurst,
	)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	if deps.HealthHandler != nil {
		router.GET("/health/live", gin.WrapH(deps.HealthHandler))
		router.GET("/health/ready", gin.WrapH(deps.HealthHandler))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		// ========== Message Routes ==========
		messageRoutes := v1.Group("/messages")
		messageRoutes.Use(jwtAuth.RequireAuth())
		{
			messageRoutes.POST("", sendLimit.Limit(), messageHandler.Send)
			messageRoutes.GET("/inbox", messageHandler.Inbox)
			messageRoutes.GET("/sent", messageHandler.Sent)
			messageRoutes.GET("/unread", messageHandler.UnreadCount)
			messageRoutes.GET("/recipients", messageHandler.Recipients)
			messageRoutes.GET("/validate-recipient", messageHandler.ValidateRecipient)
			messageRoutes.PUT("/:id/read", messageHandler.MarkRead)
		}

		// ========== Admin Routes ==========
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(jwtAuth.RequireAuth(), adminAuth.RequireAdmin())
		{
			// 域名管理
			adminRoutes.GET("/domains", adminHandler.ListDomains)
			adminRoutes.POST("/domains", adminHandler.CreateDomain)
			adminRoutes.GET("/domains/:id", adminHandler.GetDomain)
			adminRoutes.GET("/domains/:id/instructions", adminHandler.GetDomainInstructions)
			adminRoutes.POST("/domains/:id/verify", adminHandler.VerifyDomain)
			adminRoutes.POST("/domains/:id/retry", adminHandler.RetryDomain)
			adminRoutes.PUT("/domains/:id/active", adminHandler.SetDomainActive)
			adminRoutes.DELETE("/domains/:id", adminHandler.DeleteDomain)

			// 用户管理
			adminRoutes.GET("/users", adminHandler.ListUsers)
			adminRoutes.POST("/users", adminHandler.CreateUser)
			adminRoutes.GET("/users/exists", adminHandler.CheckUserExists)
			adminRoutes.PUT("/users/:id/active", adminHandler.SetUserActive)
			adminRoutes.DELETE("/users/:id", adminHandler.DeleteUser)
		}
	}

	return router
}
