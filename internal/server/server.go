// Package server exposes the direct-debit engine over HTTP: presentment
// batch creation, response-file import, batch listing and file download,
// plus health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/southtrip/caravel/internal/config"
	directdebitdomain "github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/observability/logger"
	obsmetrics "github.com/southtrip/caravel/internal/observability/metrics"
)

const (
	// importRateLimit caps response-file uploads per client IP and window.
	// Imports hold row locks; a runaway retry loop must not pile them up.
	importRateLimit  = 10
	importRateWindow = time.Minute
)

// Module wires the gin engine, the server and its lifecycle into fx.
var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)

// EngineParams collects the middleware dependencies of the gin engine.
type EngineParams struct {
	fx.In

	Cfg         config.Config
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(p EngineParams) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	if p.HTTPMetrics != nil {
		engine.Use(obsmetrics.GinMiddleware(p.HTTPMetrics))
	}
	engine.Use(requestAttribution())
	return engine
}

// Params collects the server's dependencies.
type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Engine      *gin.Engine
	DirectDebit directdebitdomain.Service
}

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg            config.Config
	log            *zap.Logger
	db             *gorm.DB
	engine         *gin.Engine
	directDebitSvc directdebitdomain.Service
	importLimiter  *rateLimiter
}

// NewServer constructs the API server.
func NewServer(p Params) *Server {
	return &Server{
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		db:             p.DB,
		engine:         p.Engine,
		directDebitSvc: p.DirectDebit,
		importLimiter:  newRateLimiter(importRateLimit, importRateWindow),
	}
}

// RegisterAPIRoutes mounts every endpoint on the engine.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	dd := api.Group("/direct-debit")
	dd.POST("/batches", s.CreateDirectDebitBatch)
	dd.GET("/batches", s.ListDirectDebitBatches)
	dd.GET("/batches/:id/file", s.DownloadDirectDebitBatchFile)
	dd.POST("/batches/:id/responses", s.ImportDirectDebitResponses)

	api.POST("/test/cleanup", s.TestCleanup)
}

// Healthz reports liveness; it fails when the database is unreachable.
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the listener on fx start and drains it on stop.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()
			log.Info("http server shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	})
}
