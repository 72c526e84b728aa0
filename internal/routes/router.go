// Package routes はroutingを行います。
package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"time-nest/backend/internal/config"
	"time-nest/backend/internal/handlers"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/services"
	"time-nest/backend/internal/session"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(cfg *config.Config, store *repositories.Store) (*gin.Engine, error) {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// nil の場合はX-Forwarded-Forを無視し、接続元アドレスをクライアントIPとする
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.Use(RequestID(), AccessLog(), Metrics(), Recovery(), CORS(cfg.Server.CORSOrigins))

	// サービス
	sessions, err := session.NewManager(session.Config{
		Secret:          cfg.Auth.SecretKey,
		SessionLifetime: cfg.Auth.SessionLifetime,
		StateTTL:        cfg.Auth.StateTTL,
		Secure:          cfg.Auth.CookieSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	jwtService := services.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime())
	taskService := services.NewTaskService(store.Tasks)
	userService := services.NewUserService(store.Users)
	oauthService := services.NewGoogleOAuthService(cfg.Google)

	// ハンドラー
	authHandler := handlers.NewAuthHandler(oauthService, userService, jwtService, sessions, cfg.Server.DashboardPath)
	taskHandler := handlers.NewTaskHandler(taskService)
	healthHandler := handlers.NewHealthHandler(store, cfg.Database.Timeout)
	staticHandler := handlers.NewStaticHandler(cfg.Server.StaticDir)

	// ルーティング
	oauth := r.Group("/auth", RateLimit(cfg.Auth.LoginRatePerMinute))
	{
		oauth.GET("/google", authHandler.GoogleLoginHandler)
		oauth.GET("/google/callback", authHandler.GoogleCallbackHandler)
	}

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.HealthHandler)
		api.GET("/dbcheck", healthHandler.DBCheckHandler)

		api.GET("/auth/me", authHandler.MeHandler)
		api.POST("/auth/token", authHandler.TokenHandler)
		api.POST("/auth/logout", authHandler.LogoutHandler)

		api.GET("/tasks/ping", taskHandler.PingHandler)

		tasks := api.Group("/tasks", AuthMiddleware(jwtService))
		{
			tasks.GET("", taskHandler.ListTasksHandler)
			tasks.GET("/", taskHandler.ListTasksHandler)
			tasks.POST("", taskHandler.CreateTaskHandler)
			tasks.POST("/", taskHandler.CreateTaskHandler)
			tasks.PUT("/:id", taskHandler.UpdateTaskHandler)
			tasks.DELETE("/:id", taskHandler.DeleteTaskHandler)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(staticHandler.ServeHandler)

	return r, nil
}
