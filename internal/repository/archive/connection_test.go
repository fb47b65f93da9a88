package archive_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive"
	"github.com/jaennil/guide_helper/backend/mbtiles/internal/repository/archive/archivetest"
	"github.com/jaennil/guide_helper/backend/mbtiles/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConnectionConcurrentOpenIsSingleFlight(t *testing.T) {
	opener := &archivetest.Opener{
		Reader: &archivetest.Reader{},
		Gate:   make(chan struct{}),
	}
	conn := archive.NewConnection("malabo.mbtiles", opener.Open, logger.NewNoOpLogger())

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- conn.Open(context.Background())
		}()
	}

	// let the callers pile up behind the first attempt
	deadline := time.Now().Add(2 * time.Second)
	for opener.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(opener.Gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
	}
	if got := opener.Calls(); got != 1 {
		t.Fatalf("expected exactly one open attempt, got %d", got)
	}
	if !conn.Available() {
		t.Fatal("expected archive to be available")
	}

	// later callers see the cached handle
	if err := conn.Open(context.Background()); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := opener.Calls(); got != 1 {
		t.Fatalf("expected cached handle, got %d open attempts", got)
	}
}

func TestConnectionFailedOpenIsStickyAndLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	opener := &archivetest.Opener{Err: fmt.Errorf("%w: /maps/malabo.mbtiles", archive.ErrArchiveNotFound)}
	conn := archive.NewConnection("/maps/malabo.mbtiles", opener.Open, logger.New(zap.New(core)))

	for i := 0; i < 3; i++ {
		err := conn.Open(context.Background())
		if !errors.Is(err, archive.ErrArchiveNotFound) {
			t.Fatalf("attempt %d: expected ErrArchiveNotFound, got %v", i, err)
		}
	}

	if got := opener.Calls(); got != 1 {
		t.Fatalf("expected one open attempt, got %d", got)
	}
	if got := logs.FilterLevelExact(zapcore.WarnLevel).Len(); got != 1 {
		t.Fatalf("expected one warning, got %d", got)
	}
	if conn.Available() {
		t.Fatal("expected archive to be unavailable")
	}

	_, err := conn.GetTile(context.Background(), 0, 0, 0)
	if !errors.Is(err, archive.ErrArchiveUnavailable) {
		t.Fatalf("expected ErrArchiveUnavailable, got %v", err)
	}
}

func TestConnectionGetTileBeforeOpen(t *testing.T) {
	opener := &archivetest.Opener{Reader: &archivetest.Reader{}}
	conn := archive.NewConnection("malabo.mbtiles", opener.Open, logger.NewNoOpLogger())

	_, err := conn.GetTile(context.Background(), 0, 0, 0)
	if !errors.Is(err, archive.ErrArchiveUnavailable) {
		t.Fatalf("expected ErrArchiveUnavailable, got %v", err)
	}
	if opener.Calls() != 0 {
		t.Fatal("GetTile must not open the archive")
	}
}

func TestConnectionGetTile(t *testing.T) {
	reader := &archivetest.Reader{
		Tiles: map[archivetest.Key][]byte{{Z: 2, X: 1, Row: 2}: archivetest.PNG},
		Meta:  archive.Metadata{"format": "png", "name": "Malabo"},
	}
	conn := archive.NewConnection("malabo.mbtiles", (&archivetest.Opener{Reader: reader}).Open, logger.NewNoOpLogger())
	if err := conn.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	blob, err := conn.GetTile(context.Background(), 2, 1, 2)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if blob.ContentType != "image/png" {
		t.Errorf("content type: got %q", blob.ContentType)
	}

	if _, err := conn.GetTile(context.Background(), 2, 1, 1); !errors.Is(err, archive.ErrTileMissing) {
		t.Fatalf("expected ErrTileMissing, got %v", err)
	}

	md := conn.Metadata()
	md["name"] = "changed"
	if conn.Metadata()["name"] != "Malabo" {
		t.Fatal("Metadata must return a copy")
	}
}

func TestConnectionClose(t *testing.T) {
	reader := &archivetest.Reader{}
	opener := &archivetest.Opener{Reader: reader}
	conn := archive.NewConnection("malabo.mbtiles", opener.Open, logger.NewNoOpLogger())
	if err := conn.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !reader.Closed() {
		t.Fatal("expected reader to be closed")
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if err := conn.Open(context.Background()); !errors.Is(err, archive.ErrArchiveClosed) {
		t.Fatalf("expected ErrArchiveClosed, got %v", err)
	}
	if _, err := conn.GetTile(context.Background(), 0, 0, 0); !errors.Is(err, archive.ErrArchiveUnavailable) {
		t.Fatalf("expected ErrArchiveUnavailable, got %v", err)
	}
	if opener.Calls() != 1 {
		t.Fatalf("expected no reopen after close, got %d attempts", opener.Calls())
	}
}

func TestConnectionOpenSQLiteEndToEnd(t *testing.T) {
	path := archivetest.Build(t, map[string]string{"format": "png"}, map[archivetest.Key][]byte{
		{Z: 0, X: 0, Row: 0}: archivetest.PNG,
	})
	conn := archive.NewConnection(path, nil, logger.NewNoOpLogger())
	defer conn.Close()

	if err := conn.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := conn.GetTile(context.Background(), 0, 0, 0); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
}
