package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/usecase"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
)

const (
	tileMissingText = "Tile missing"
	tileErrorText   = "Tile error"
	badRequestText  = "Invalid tile coordinates"
	notFoundText    = "Not found"

	tileCacheControl = "public, max-age=604800"
)

type Handler struct {
	tileUseCase *usecase.TileUseCase
	logger      logger.Logger

	// prefix is the route prefix with surrounding slashes, e.g. "/tiles/malabo/".
	prefix string
	suffix string
}

// NewHandler serves /<prefix>/<z>/<x>/<y>.<extension>. The prefix may span
// several path segments.
func NewHandler(uc *usecase.TileUseCase, prefix, extension string, l logger.Logger) *Handler {
	return &Handler{
		tileUseCase: uc,
		logger:      l,
		prefix:      "/" + strings.Trim(prefix, "/") + "/",
		suffix:      "." + strings.TrimPrefix(extension, "."),
	}
}

// RouteTemplate is the URL pattern map clients should be configured with.
func (h *Handler) RouteTemplate() string {
	return h.prefix + "{z}/{x}/{y}" + h.suffix
}

func (h *Handler) Healthz(c *gin.Context) {
	archiveStatus := "available"
	if !h.tileUseCase.ArchiveAvailable() {
		archiveStatus = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"archive": archiveStatus,
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	writeText(c.Writer, c.Request, http.StatusNotFound, notFoundText, false)
}

func writeText(w http.ResponseWriter, r *http.Request, code int, body string, cors bool) {
	header := w.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("X-Content-Type-Options", "nosniff")
	if cors {
		header.Set("Access-Control-Allow-Origin", "*")
	}
	w.WriteHeader(code)

	if r.Method != http.MethodHead {
		io.WriteString(w, body)
	}
}
