package roster

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnCSVChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher test in short mode")
	}

	dir := t.TempDir()

	var reloads int64
	w, err := NewWatcher(dir, func() {
		atomic.AddInt64(&reloads, 1)
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if !w.IsWatching() {
		t.Fatal("expected watcher running")
	}

	if err := os.WriteFile(filepath.Join(dir, "roster.csv"), []byte("provider_id\nP1\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for atomic.LoadInt64(&reloads) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatcher_IgnoresNonCSV(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher test in short mode")
	}

	dir := t.TempDir()

	var reloads int64
	w, err := NewWatcher(dir, func() {
		atomic.AddInt64(&reloads, 1)
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounceDur = 50 * time.Millisecond

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	time.Sleep(400 * time.Millisecond)
	if atomic.LoadInt64(&reloads) != 0 {
		t.Errorf("expected no reloads for non-CSV change, got %d", reloads)
	}
}
