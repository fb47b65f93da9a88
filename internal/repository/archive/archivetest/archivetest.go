// Package archivetest builds MBTiles fixtures and stub readers for tests.
package archivetest

import (
	"context"
	"database/sql"
	"embed"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

var (
	PNG  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x01\x00\x00\x00\x01\x00\x08\x06\x00\x00\x00")
	GZIP = []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0xff, 0xff}
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its FS and dialect in package globals.
var gooseMu sync.Mutex

// Key is a storage (TMS) key: zoom, column, row.
type Key struct {
	Z, X, Row int
}

// Build writes an MBTiles file into a temp dir and returns its path.
func Build(tb testing.TB, metadata map[string]string, tiles map[Key][]byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "fixture.mbtiles")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		tb.Fatalf("failed to create fixture archive: %v", err)
	}
	defer db.Close()

	gooseMu.Lock()
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		gooseMu.Unlock()
		tb.Fatalf("failed to set goose dialect: %v", err)
	}
	err = goose.Up(db, "migrations")
	gooseMu.Unlock()
	if err != nil {
		tb.Fatalf("failed to migrate fixture archive: %v", err)
	}

	for name, value := range metadata {
		if _, err := db.Exec(`INSERT INTO metadata (name, value) VALUES (?, ?)`, name, value); err != nil {
			tb.Fatalf("failed to insert metadata %q: %v", name, err)
		}
	}

	for k, data := range tiles {
		query := `INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data)
		VALUES (?, ?, ?, ?)`
		if _, err := db.Exec(query, k.Z, k.X, k.Row, data); err != nil {
			tb.Fatalf("failed to insert tile %+v: %v", k, err)
		}
	}

	return path
}

// Reader is an in-memory archive.Reader. Err, when set, is returned from every lookup.
type Reader struct {
	Tiles map[Key][]byte
	Meta  archive.Metadata
	Err   error

	mu      sync.Mutex
	lookups []Key
	closed  atomic.Bool
}

var _ archive.Reader = (*Reader)(nil)

func (r *Reader) Tile(ctx context.Context, z, x, row int) (archive.TileBlob, error) {
	k := Key{Z: z, X: x, Row: row}

	r.mu.Lock()
	r.lookups = append(r.lookups, k)
	r.mu.Unlock()

	if r.Err != nil {
		return archive.TileBlob{}, r.Err
	}
	data, ok := r.Tiles[k]
	if !ok {
		return archive.TileBlob{}, archive.ErrTileMissing
	}
	return archive.NewTileBlob(data, r.Meta.Format()), nil
}

func (r *Reader) Metadata() archive.Metadata {
	return r.Meta
}

func (r *Reader) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *Reader) Closed() bool {
	return r.closed.Load()
}

func (r *Reader) Lookups() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Key(nil), r.lookups...)
}

// Opener counts calls and returns Reader or Err.
type Opener struct {
	Reader *Reader
	Err    error
	// Gate, when non-nil, blocks every open until it is closed.
	Gate chan struct{}

	calls atomic.Int32
}

func (o *Opener) Open(ctx context.Context, path string) (archive.Reader, error) {
	o.calls.Add(1)
	if o.Gate != nil {
		<-o.Gate
	}
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Reader, nil
}

func (o *Opener) Calls() int {
	return int(o.calls.Load())
}
