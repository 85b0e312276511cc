package daemon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"folio/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = root
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDaemonStartServesAPI(t *testing.T) {
	d, err := New(testConfig(t), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + d.APIAddr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	d.Stop()
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	logger := discardLogger()

	first, err := New(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := New(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		t.Fatal("second instance acquired the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("restart after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStartTwice(t *testing.T) {
	d, err := New(testConfig(t), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("double start succeeded")
	}
	d.Stop()
}
