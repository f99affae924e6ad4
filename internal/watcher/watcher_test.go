package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) onChange(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "technology_database.xlsx")
	if err := writeFile(target, "v1"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := NewWatcher(target, rec.onChange, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := writeFile(target, "v2"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(t, func() bool { return rec.count() >= 1 }) {
		t.Fatal("expected a change callback")
	}
	time.Sleep(300 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("expected a single debounced callback, got %d", n)
	}
	if rec.paths[0] != filepath.Clean(target) {
		t.Errorf("callback path = %q", rec.paths[0])
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "technology_database.xlsx")

	rec := &recorder{}
	w := NewWatcher(target, rec.onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("expected no callbacks for unrelated files, got %d", n)
	}
}

func TestWatcher_DetectsReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "catalog.xlsx")
	if err := writeFile(target, "v1"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := NewWatcher(target, rec.onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, "catalog.xlsx.tmp")
	if err := writeFile(tmp, "v2"); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rec.count() >= 1 }) {
		t.Error("expected a callback after the file was replaced")
	}
}

func TestWatcher_StopDropsPendingCallback(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "catalog.xlsx")

	rec := &recorder{}
	w := NewWatcher(target, rec.onChange, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(target, "v1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	time.Sleep(300 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("expected no callbacks after Stop, got %d", n)
	}
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "catalog.xlsx")
	w := NewWatcher(target, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected an error when the parent directory does not exist")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
