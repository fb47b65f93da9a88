package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/jaennil/guide_helper/backend/mbtiles/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/usecase"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/config"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/telemetry"
)

// New wires the archive, use case, handler and router for the configured
// deployment mode.
func New(cfg *config.Config, l logger.Logger) *TileServer {
	conn := archive.NewConnection(cfg.Archive.Path, archive.OpenSQLite, l)
	tileUseCase := usecase.NewTileUseCase(conn, l)
	h := handler.NewHandler(tileUseCase, cfg.Tiles.Prefix, cfg.Tiles.Extension, l)

	var router http.Handler
	switch cfg.HTTP.Server.Mode {
	case config.ModeEmbedded:
		router = v1.NewEmbeddedRouter(h, cfg.HTTP.Server.StaticDir, l)
	default:
		router = v1.NewRouter(h, l, cfg.Telemetry.Enabled)
	}

	l.Info("tile route configured", "mode", cfg.HTTP.Server.Mode, "route", h.RouteTemplate(), "archive", cfg.Archive.Path)

	return NewTileServer(cfg.HTTP.Server, conn, router, l)
}

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger.Level)
	defer l.Sync()

	l.Info("app config", "cfg", cfg)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Error("failed to initialize telemetry, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					l.Error("failed to shutdown telemetry", "error", err)
				}
			}()
			l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := New(cfg, l)

	if err := server.Start(ctx); err != nil {
		l.Error("tile server unavailable", "error", err)
		if err := server.Shutdown(context.Background()); err != nil {
			l.Error("cleanup after failed start", "error", err)
		}
		return
	}

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("tile server shutdown failed", "error", err)
	} else {
		l.Info("tile server shutdown completed")
	}

	l.Info("application shutdown completed")
}
