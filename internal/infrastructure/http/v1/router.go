package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the standalone listener: tile requests are taken by
// middleware, anything else that no route claims gets a plain 404.
func NewRouter(h *handler.Handler, l logger.Logger, telemetryEnabled bool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())

	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware())
	}

	r.Use(ginZapLogger(l))
	r.Use(h.GinMiddleware())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(h.NotFound)

	return r
}

// NewEmbeddedRouter mounts the tile middleware ahead of a static file server,
// the way a development server serves its bundle.
func NewEmbeddedRouter(h *handler.Handler, staticDir string, l logger.Logger) http.Handler {
	return withLoggingMiddleware(l, h.Middleware(http.FileServer(http.Dir(staticDir))))
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"size", c.Writer.Size(),
		)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLoggingMiddleware(l logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		l.Info("request",
			"status", rec.status,
			"method", r.Method,
			"path", r.URL.Path,
			"ip", r.RemoteAddr,
			"latency", time.Since(start),
		)
	})
}
