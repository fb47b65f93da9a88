package archive

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Connection owns the one Reader for an archive path. The first Open decides
// the outcome for the lifetime of the Connection: a failure is remembered and
// every later caller sees the same error without a new attempt.
type Connection struct {
	path   string
	open   OpenFunc
	logger logger.Logger

	group singleflight.Group

	mu        sync.RWMutex
	attempted bool
	closed    bool
	reader    Reader
	err       error
}

func NewConnection(path string, open OpenFunc, l logger.Logger) *Connection {
	if open == nil {
		open = OpenSQLite
	}
	return &Connection{
		path:   path,
		open:   open,
		logger: l,
	}
}

func (c *Connection) Path() string {
	return c.path
}

// Open is safe for concurrent use; callers arriving while an attempt is in
// flight wait for it and share its result.
func (c *Connection) Open(ctx context.Context) error {
	if done, err := c.result(); done {
		return err
	}

	_, err, _ := c.group.Do("open", func() (any, error) {
		if done, err := c.result(); done {
			return nil, err
		}

		// One caller going away must not fail the attempt for everyone else.
		reader, err := c.open(context.WithoutCancel(ctx), c.path)
		if err == nil && reader == nil {
			err = fmt.Errorf("%w: no reader returned", ErrArchiveOpen)
		}
		if err != nil {
			reader = nil
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			if reader != nil {
				reader.Close()
			}
			return nil, ErrArchiveClosed
		}
		c.attempted = true
		c.reader = reader
		c.err = err
		c.mu.Unlock()

		if err != nil {
			metrics.ArchiveOpens.WithLabelValues("failure").Inc()
			metrics.ArchiveAvailable.Set(0)
			c.logger.Warn("tile archive unavailable, serving in degraded mode", "path", c.path, "error", err)
			return nil, err
		}

		metrics.ArchiveOpens.WithLabelValues("success").Inc()
		metrics.ArchiveAvailable.Set(1)
		md := reader.Metadata()
		c.logger.Info("tile archive opened", "path", c.path, "name", md["name"], "format", md.Format())
		return nil, nil
	})

	return err
}

func (c *Connection) result() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return true, ErrArchiveClosed
	}
	return c.attempted, c.err
}

func (c *Connection) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reader != nil && !c.closed
}

func (c *Connection) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.reader == nil {
		return Metadata{}
	}
	return maps.Clone(c.reader.Metadata())
}

// GetTile looks a tile up by its storage (TMS) row. The read lock is held for
// the lookup so Close waits for in-flight reads.
func (c *Connection) GetTile(ctx context.Context, z, x, row int) (TileBlob, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || c.reader == nil {
		return TileBlob{}, ErrArchiveUnavailable
	}

	return c.reader.Tile(ctx, z, x, row)
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	metrics.ArchiveAvailable.Set(0)

	if c.reader == nil {
		return nil
	}
	err := c.reader.Close()
	c.reader = nil
	return err
}
