// Package api provides the HTTP server for the Kaiwa bot: route setup,
// middleware wiring, and graceful shutdown. The webhook callback is the only
// write path; health and metrics are read-only.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaiwa-bot/kaiwa/internal/api/middleware"
	"github.com/kaiwa-bot/kaiwa/internal/buildinfo"
	"github.com/kaiwa-bot/kaiwa/internal/config"
	"github.com/kaiwa-bot/kaiwa/internal/logging"
	"github.com/kaiwa-bot/kaiwa/internal/webhook"
	log "github.com/sirupsen/logrus"
)

// Server hosts the webhook gateway and operational endpoints.
type Server struct {
	engine  *gin.Engine
	httpSrv *http.Server
	gateway *webhook.Gateway
}

// NewServer builds the gin engine and routes for the given configuration.
func NewServer(cfg *config.Config, gateway *webhook.Gateway) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		logging.GinLogrusRecovery(),
		logging.GinLogrusLogger(),
		middleware.PrometheusMiddleware(),
	)

	middleware.SetMetricsEnabled(cfg.Metrics)
	if cfg.Metrics {
		middleware.RegisterMetrics()
	}

	engine.POST("/callback", gateway.Handler())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": buildinfo.Version,
		})
	})
	engine.GET("/metrics", middleware.MetricsHandler())

	return &Server{
		engine:  engine,
		gateway: gateway,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("kaiwa listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// ApplyConfig propagates hot-reloadable settings: log level, metrics toggle
// and the webhook channel secret. Port changes require a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	logging.SetLevel(cfg.LoggingLevel)
	middleware.SetMetricsEnabled(cfg.Metrics)
	s.gateway.UpdateSecret(cfg.ChannelSecret)
	log.Info("runtime configuration applied")
}
