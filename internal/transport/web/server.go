package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/EgorLis/retail-pos/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Server struct {
	log    *zap.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *zap.Logger, cfg *config.Config, svc Services, probes Probes, reg *prometheus.Registry) *Server {
	httpLog := logger.Named("http")

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newRouter(svc, probes, httpLog, reg),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: httpLog}
}

// Run блокируется до Close; ошибка старта возвращается вызывающему.
func (ws *Server) Run() error {
	ws.log.Info("started", zap.String("addr", ws.server.Addr), zap.String("node", ws.cfg.NodeID))
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Warn("forced to shutdown", zap.Error(err))
	}
	ws.log.Info("exited gracefully")
}
