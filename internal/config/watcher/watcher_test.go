package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/dshills/modelundo/internal/config"
)

const waitTimeout = 5 * time.Second

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := New(path, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelundo.toml")
	writeConfig(t, path, "[undo]\ndepth = 5\n")

	w := startWatcher(t, path)
	changes := make(chan config.Config, 4)
	w.OnChange(func(cfg config.Config) { changes <- cfg })
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	writeConfig(t, path, "[undo]\ndepth = 9\n")

	select {
	case cfg := <-changes:
		if cfg.Undo.Depth != 9 {
			t.Errorf("depth = %d, want 9", cfg.Undo.Depth)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_ReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelundo.toml")
	writeConfig(t, path, "[undo]\ndepth = 5\n")

	w := startWatcher(t, path)
	errs := make(chan error, 4)
	w.OnError(func(err error) { errs <- err })
	w.OnChange(func(cfg config.Config) { t.Errorf("unexpected change: %+v", cfg) })
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	writeConfig(t, path, "[undo]\ndepth = 0\n")

	select {
	case err := <-errs:
		if !errors.Is(err, config.ErrInvalid) {
			t.Errorf("err = %v, want ErrInvalid", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for error")
	}
}

func TestWatcher_NotifiesEveryHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelundo.toml")
	writeConfig(t, path, "[undo]\ndepth = 6\n")

	w := startWatcher(t, path)
	var changed, failed []string
	for _, name := range []string{"first", "second"} {
		w.OnChange(func(cfg config.Config) {
			if cfg.Undo.Depth != 6 {
				t.Errorf("%s handler: depth = %d, want 6", name, cfg.Undo.Depth)
			}
			changed = append(changed, name)
		})
		w.OnError(func(error) { failed = append(failed, name) })
	}

	w.reload()
	if want := []string{"first", "second"}; !slices.Equal(changed, want) {
		t.Errorf("change handlers = %v, want %v", changed, want)
	}

	errLoad := errors.New("load failed")
	w.load = func(string) (config.Config, error) { return config.Config{}, errLoad }
	w.reload()
	if want := []string{"first", "second"}; !slices.Equal(failed, want) {
		t.Errorf("error handlers = %v, want %v", failed, want)
	}
	if len(changed) != 2 {
		t.Errorf("change handlers ran on a failed load: %v", changed)
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modelundo.toml")
	writeConfig(t, path, "[undo]\ndepth = 5\n")

	w := startWatcher(t, path)
	reloads := make(chan string, 4)
	w.load = func(p string) (config.Config, error) {
		reloads <- p
		return config.Default(), nil
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	writeConfig(t, filepath.Join(dir, "other.toml"), "x = 1\n")

	select {
	case p := <-reloads:
		t.Errorf("reloaded %s after sibling write", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_Debounces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelundo.toml")
	writeConfig(t, path, "[undo]\ndepth = 1\n")

	w, err := New(path, WithDebounce(150*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	changes := make(chan config.Config, 8)
	w.OnChange(func(cfg config.Config) { changes <- cfg })
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for depth := 2; depth <= 4; depth++ {
		writeConfig(t, path, "[undo]\ndepth = "+string(rune('0'+depth))+"\n")
	}

	select {
	case cfg := <-changes:
		if cfg.Undo.Depth != 4 {
			t.Errorf("depth = %d, want 4", cfg.Undo.Depth)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for reload")
	}

	select {
	case cfg := <-changes:
		t.Errorf("extra reload: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelundo.toml")
	w, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w.Path() != path {
		t.Errorf("Path = %q, want %q", w.Path(), path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start err = %v, want ErrAlreadyStarted", err)
	}
	cancel()

	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Start after Close err = %v, want ErrWatcherClosed", err)
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent", "modelundo.toml"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
