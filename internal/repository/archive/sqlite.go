package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteReader struct {
	db       *sql.DB
	metadata Metadata
}

var _ Reader = (*SQLiteReader)(nil)

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// OpenSQLite opens an MBTiles file read-only over a single shared connection.
// Concurrent lookups queue inside database/sql for that connection.
func OpenSQLite(ctx context.Context, path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrArchiveOpen, path)
	}

	dsn := "file:" + uriEscaper.Replace(path) + "?mode=ro&_query_only=true"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	r := &SQLiteReader{db: db}
	if err := r.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}

	return r, nil
}

func (r *SQLiteReader) init(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return err
	}

	// The header is only read on the first query, so a corrupt file fails here.
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sqlite_master
	WHERE type IN ('table', 'view') AND name IN ('tiles', 'metadata')`)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := make(map[string]bool, 2)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !found["tiles"] {
		return errors.New("no tiles table")
	}

	r.metadata = Metadata{}
	if found["metadata"] {
		if err := r.loadMetadata(ctx); err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
	}

	return nil
}

func (r *SQLiteReader) loadMetadata(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM metadata`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		if name.Valid {
			r.metadata[name.String] = value.String
		}
	}

	return rows.Err()
}

func (r *SQLiteReader) Tile(ctx context.Context, z, x, row int) (TileBlob, error) {
	query := `SELECT tile_data
	FROM tiles
	WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`

	var tileData []byte
	err := r.db.QueryRowContext(ctx, query, z, x, row).Scan(&tileData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TileBlob{}, ErrTileMissing
		}
		return TileBlob{}, fmt.Errorf("%w: %w", ErrLookupIO, err)
	}

	if len(tileData) == 0 {
		return TileBlob{}, ErrTileMissing
	}

	return NewTileBlob(tileData, r.metadata.Format()), nil
}

func (r *SQLiteReader) Metadata() Metadata {
	return r.metadata
}

func (r *SQLiteReader) Close() error {
	return r.db.Close()
}
