package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware intercepts tile requests ahead of the engine's routes and
// NoRoute handlers; everything else continues down the chain.
func (h *Handler) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.ServeTile(c.Writer, c.Request) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// Middleware is the net/http form of GinMiddleware, for mounting in front of
// a host's own handler such as a static file server.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.serveTileRecovered(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) serveTileRecovered(w http.ResponseWriter, r *http.Request) (served bool) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic while serving tile", "path", r.URL.Path, "panic", rec)
			writeText(w, r, http.StatusInternalServerError, tileErrorText, true)
			served = true
		}
	}()

	return h.ServeTile(w, r)
}
