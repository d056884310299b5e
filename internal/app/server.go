// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wasa_admin_backend/internal/admin"
	"wasa_admin_backend/internal/agent"
	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/auth"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/customer"
	"wasa_admin_backend/internal/dashboard"
	"wasa_admin_backend/internal/jobs"
	"wasa_admin_backend/internal/location"
	"wasa_admin_backend/internal/meter"
	"wasa_admin_backend/internal/middleware"
	"wasa_admin_backend/internal/scoring"
	"wasa_admin_backend/internal/tariff"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth      *auth.Handler
	Admin     *admin.Handler
	Agent     *agent.Handler
	Location  *location.Handler
	Tariff    *tariff.Handler
	Scoring   *scoring.Handler
	Approval  *approval.Handler
	Audit     *audit.Handler
	Customer  *customer.Handler
	Meter     *meter.Handler
	Dashboard *dashboard.Handler
}

// Jobs bundles the cron jobs started with the server. Either may be nil.
type Jobs struct {
	ApprovalExpiry *jobs.ApprovalExpiryJob
	AuditRetention *jobs.AuditRetentionJob
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	jobs       Jobs
}

// NewServer creates the HTTP server with every route group mounted.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	background Jobs,
	tokens auth.TokenService,
	blocklist auth.TokenBlocklistService,
	accounts middleware.AccountLookup,
	rdb *redis.Client,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	authMW := middleware.AuthMiddleware(tokens, blocklist, accounts, logger.Named("AuthMiddleware"))
	loginMW := middleware.RateLimiter(rdb, middleware.RateLimitConfig{
		Name:              "login",
		RequestsPerSecond: cfg.LoginRatePerSecond,
		Burst:             cfg.LoginRateBurst,
	}, logger.Named("RateLimiter"))
	guards := newRoleGuards()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "WASA admin API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	handlers.Auth.RegisterRoutes(v1, authMW, loginMW)
	handlers.Admin.RegisterRoutes(v1, authMW, guards.superAdmin)
	handlers.Agent.RegisterRoutes(v1, authMW, guards.agentRead, guards.agentWrite)
	handlers.Location.RegisterRoutes(v1, authMW, guards.locationWrite)
	handlers.Tariff.RegisterRoutes(v1, authMW, guards.tariffWrite)
	handlers.Scoring.RegisterRoutes(v1, authMW, guards.scoringRead, guards.scoringWrite)
	handlers.Approval.RegisterRoutes(v1, authMW, guards.approvalReview)
	handlers.Audit.RegisterRoutes(v1, authMW, guards.auditRead)
	handlers.Customer.RegisterRoutes(v1, authMW, guards.customerRead, guards.customerWrite)
	handlers.Meter.RegisterRoutes(v1, authMW, guards.customerRead, guards.customerWrite, guards.meterReading)
	handlers.Dashboard.RegisterRoutes(v1, authMW)

	traced := otelhttp.NewHandler(router, cfg.OTELServiceName,
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method + " " + r.URL.Path }),
	)

	timeout := cfg.ServerTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      traced,
		ReadTimeout:  timeout,
		WriteTimeout: 4 * timeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		jobs:       background,
	}, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	c.ExposeHeaders = []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader}

	origins := cfg.CORSAllowedOrigins
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	if s.jobs.ApprovalExpiry != nil {
		if err := s.jobs.ApprovalExpiry.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start approval expiry job", zap.Error(err))
		}
	}
	if s.jobs.AuditRetention != nil {
		if err := s.jobs.AuditRetention.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start audit retention job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.jobs.ApprovalExpiry != nil {
		s.jobs.ApprovalExpiry.Stop()
	}
	if s.jobs.AuditRetention != nil {
		s.jobs.AuditRetention.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
