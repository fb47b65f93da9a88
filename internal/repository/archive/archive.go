package archive

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrArchiveNotFound    = errors.New("tile archive not found")
	ErrArchiveOpen        = errors.New("tile archive could not be opened")
	ErrArchiveUnavailable = errors.New("tile archive unavailable")
	ErrArchiveClosed      = fmt.Errorf("%w: connection closed", ErrArchiveUnavailable)
	ErrTileMissing        = errors.New("tile missing")
	ErrLookupIO           = errors.New("tile lookup failed")
)

// Metadata holds the name/value rows of the MBTiles metadata table.
type Metadata map[string]string

func (m Metadata) Format() string {
	return m["format"]
}

// TileBlob is one stored tile. ContentEncoding is set for gzip-compressed vector tiles.
type TileBlob struct {
	Data            []byte
	ContentType     string
	ContentEncoding string
}

// Reader is an open, read-only tile archive. Rows are addressed in TMS order.
type Reader interface {
	Tile(ctx context.Context, z, x, row int) (TileBlob, error)
	Metadata() Metadata
	Close() error
}

// OpenFunc opens the archive at path. It must return errors wrapping
// ErrArchiveNotFound or ErrArchiveOpen.
type OpenFunc func(ctx context.Context, path string) (Reader, error)
