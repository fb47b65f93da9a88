package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jaennil/guide_helper/backend/mbtiles/internal/entity"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type TileUseCase struct {
	archive *archive.Connection
	logger  logger.Logger
}

func NewTileUseCase(conn *archive.Connection, l logger.Logger) *TileUseCase {
	return &TileUseCase{
		archive: conn,
		logger:  l,
	}
}

// GetTile resolves an XYZ coordinate against the archive, opening it on first use.
// Any failure to open surfaces as archive.ErrArchiveUnavailable.
func (uc *TileUseCase) GetTile(ctx context.Context, c entity.TileCoordinate) (archive.TileBlob, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "archive.GetTile")
	defer span.End()

	row := c.StorageRow()
	span.SetAttributes(
		attribute.Int("tile.z", c.Z),
		attribute.Int("tile.x", c.X),
		attribute.Int("tile.y", c.Y),
		attribute.Int("tile.storage_row", row),
	)

	if err := uc.archive.Open(ctx); err != nil {
		metrics.TileRequests.WithLabelValues(metrics.ResultUnavailable).Inc()
		return archive.TileBlob{}, errors.Join(archive.ErrArchiveUnavailable, err)
	}

	start := time.Now()
	blob, err := uc.archive.GetTile(ctx, c.Z, c.X, row)
	metrics.ArchiveLookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.TileRequests.WithLabelValues(metrics.ResultHit).Inc()
		metrics.TileBytes.Add(float64(len(blob.Data)))
		return blob, nil
	case errors.Is(err, archive.ErrTileMissing):
		metrics.TileRequests.WithLabelValues(metrics.ResultMiss).Inc()
		uc.logger.Debug("tile missing", "z", c.Z, "x", c.X, "y", c.Y, "storage_row", row)
		return archive.TileBlob{}, err
	case errors.Is(err, archive.ErrArchiveUnavailable):
		metrics.TileRequests.WithLabelValues(metrics.ResultUnavailable).Inc()
		return archive.TileBlob{}, err
	case errors.Is(err, context.Canceled):
		uc.logger.Debug("tile lookup abandoned", "z", c.Z, "x", c.X, "y", c.Y)
		return archive.TileBlob{}, err
	default:
		metrics.TileRequests.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.Error("tile lookup failed",
			"path", uc.archive.Path(),
			"z", c.Z,
			"x", c.X,
			"y", c.Y,
			"storage_row", row,
			"error", err,
		)
		return archive.TileBlob{}, err
	}
}

func (uc *TileUseCase) ArchiveAvailable() bool {
	return uc.archive.Available()
}
