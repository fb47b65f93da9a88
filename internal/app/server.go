package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/config"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
)

// TileServer owns the listening socket and the archive connection. It is
// started at most once: after the first successful Start it stays started,
// and later calls return immediately.
type TileServer struct {
	cfg     config.Server
	archive *archive.Connection
	handler http.Handler
	logger  logger.Logger

	mu        sync.Mutex
	listening bool
	server    *http.Server
	addr      net.Addr
	served    chan struct{}
}

func NewTileServer(cfg config.Server, conn *archive.Connection, h http.Handler, l logger.Logger) *TileServer {
	return &TileServer{
		cfg:     cfg,
		archive: conn,
		handler: h,
		logger:  l,
		served:  make(chan struct{}),
	}
}

// Start opens the archive and binds the listener. An archive that fails to
// open leaves the server running in degraded mode; only a bind failure is
// returned.
func (s *TileServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return nil
	}

	// Failure is logged by the connection and answered with 404s per request.
	_ = s.archive.Open(ctx)

	srv := http_server.NewServer(s.cfg, s.handler)

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind tile server on %s: %w", srv.Addr, err)
	}

	s.server = srv
	s.addr = ln.Addr()
	s.listening = true

	go func() {
		defer close(s.served)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("tile server stopped unexpectedly", "address", s.addr.String(), "error", err)
		}
	}()

	s.logger.Info("tile server listening", "address", s.addr.String(), "archive_available", s.archive.Available())

	return nil
}

func (s *TileServer) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Addr is the bound address, or "" before Start.
func (s *TileServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Shutdown stops accepting connections, waits for in-flight requests and then
// releases the archive.
func (s *TileServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		s.logger.Info("shutting down tile server...", "address", srv.Addr)
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		} else {
			<-s.served
		}
	}

	if err := s.archive.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close archive: %w", err))
	}

	return errors.Join(errs...)
}
