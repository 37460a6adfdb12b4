package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

func TestWatchSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkvpn.yaml")
	if err := os.WriteFile(path, []byte("interval: 60s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path, logger.Nop())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
		t.Fatal("unexpected signal for unrelated file")
	case <-time.After(3 * watchDebounce):
	}

	if err := os.WriteFile(path, []byte("interval: 30s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change signal")
	}
}
