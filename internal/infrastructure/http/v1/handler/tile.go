package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jaennil/guide_helper/backend/mbtiles/internal/entity"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/metrics"
)

// ServeTile handles the request when its path has the tile route shape and
// reports whether it did. On false nothing has been written.
func (h *Handler) ServeTile(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	strZ, strX, strY, ok := h.matchPath(r.URL.Path)
	if !ok {
		return false
	}

	coord, err := entity.ParseTileCoordinate(strZ, strX, strY)
	if err != nil {
		metrics.TileRequests.WithLabelValues(metrics.ResultBadRequest).Inc()
		h.logger.Debug("invalid tile coordinates", "path", r.URL.Path, "error", err)
		writeText(w, r, http.StatusBadRequest, badRequestText, true)
		return true
	}

	blob, err := h.tileUseCase.GetTile(r.Context(), coord)
	switch {
	case err == nil:
		h.writeTile(w, r, blob)
	case errors.Is(err, archive.ErrTileMissing), errors.Is(err, archive.ErrArchiveUnavailable):
		writeText(w, r, http.StatusNotFound, tileMissingText, true)
	default:
		writeText(w, r, http.StatusInternalServerError, tileErrorText, true)
	}

	return true
}

func (h *Handler) matchPath(path string) (z, x, y string, ok bool) {
	rest, found := strings.CutPrefix(path, h.prefix)
	if !found {
		return "", "", "", false
	}
	rest, found = strings.CutSuffix(rest, h.suffix)
	if !found {
		return "", "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}

	return parts[0], parts[1], parts[2], true
}

func (h *Handler) writeTile(w http.ResponseWriter, r *http.Request, blob archive.TileBlob) {
	contentType := blob.ContentType
	if contentType == "" {
		contentType = archive.DefaultContentType
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(blob.Data)))
	header.Set("Cache-Control", tileCacheControl)
	header.Set("Access-Control-Allow-Origin", "*")
	if blob.ContentEncoding != "" {
		header.Set("Content-Encoding", blob.ContentEncoding)
	}
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := w.Write(blob.Data); err != nil {
		h.logger.Debug("failed to write tile", "path", r.URL.Path, "error", err)
	}
}
