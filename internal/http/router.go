package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/devstackhq/boilerplate/internal/auth"
	"github.com/devstackhq/boilerplate/internal/cache"
	"github.com/devstackhq/boilerplate/internal/config"
	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/domain/user"
	"github.com/devstackhq/boilerplate/internal/http/handlers"
	"github.com/devstackhq/boilerplate/internal/http/middlewares"
	"github.com/devstackhq/boilerplate/internal/observability"
	"github.com/devstackhq/boilerplate/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Store    *docstore.Store
	JWT      *auth.Manager
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Redis    *redis.Client
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("boilerplate"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	if len(d.Cfg.CORSAllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))
	}

	// health
	ping := func() error {
		if d.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/", h.Hello)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// wire up collections and services
	usersCol := d.Store.Collection(user.Collection)
	payloadsCol := d.Store.Collection(services.PayloadsCollection)

	userService := services.NewUserService(usersCol, d.Log, d.Cfg.BcryptCost)
	authService := services.NewAuthService(usersCol, d.JWT, d.Log)
	payloadService := services.NewPayloadService(payloadsCol, d.Log)
	statsService := services.NewStatsService(usersCol, payloadsCol, cache.New(30*time.Second), d.Log)

	usersHandler := handlers.NewUsersHandler(userService)
	authHandler := handlers.NewAuthHandler(authService)
	payloadsHandler := handlers.NewPayloadsHandler(payloadService)
	statsHandler := handlers.NewStatsHandler(statsService)

	authMW := middlewares.NewAuthMiddleware(d.JWT)

	// auth endpoints get a limiter keyed by client IP; a shared redis backend
	// wins over the in-process window when configured
	var limit gin.HandlerFunc

	if d.Redis != nil {
		limit = middlewares.NewRedisRateLimiter(d.Redis, d.Cfg.RateLimit, d.Cfg.RateWindow, d.Log).
			RateLimiterMiddleware(middlewares.KeyByIP)
	} else {
		limit = middlewares.NewRateLimiter(d.Cfg.RateLimit, d.Cfg.RateWindow).
			RateLimiterMiddleware(middlewares.KeyByIP)
	}

	r.POST("/user/create", limit, usersHandler.CreateUser)
	r.POST("/user/login", limit, authHandler.Login)

	r.POST("/post", authMW.RequireAuth(), payloadsHandler.Post)

	r.GET("/admin/stats", authMW.RequireAuth(), authMW.RequireAdmin(), statsHandler.Overview)

	return r
}
