package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/watcher"
)

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(cfgPath, []byte("side: right"), 0644)
	require.NoError(t, err, "failed to create config file")

	w, err := watcher.New(watcher.Config{
		Path:        cfgPath,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		err := os.WriteFile(cfgPath, []byte(fmt.Sprintf("side: right # %d", i)), 0644)
		require.NoError(t, err, "failed to write file")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
		// Expected
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	// No second notification should come quickly
	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
		// Expected - no second notification
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	otherPath := filepath.Join(dir, "other.txt")
	err := os.WriteFile(cfgPath, []byte("side: right"), 0644)
	require.NoError(t, err, "failed to create config file")
	// Pre-create the other file so writes to it are just Write events
	err = os.WriteFile(otherPath, []byte("initial"), 0644)
	require.NoError(t, err, "failed to create other file")

	w, err := watcher.New(watcher.Config{
		Path:        cfgPath,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	err = os.WriteFile(otherPath, []byte("other content"), 0644)
	require.NoError(t, err, "failed to write other file")

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(100 * time.Millisecond):
		// Expected - no notification for unrelated file
	}
}

func TestWatcher_RenameReplaceTriggersReload(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	tmpPath := filepath.Join(dir, "config.yaml.tmp")
	err := os.WriteFile(cfgPath, []byte("side: right"), 0644)
	require.NoError(t, err, "failed to create config file")

	w, err := watcher.New(watcher.Config{
		Path:        cfgPath,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")

	// Editors often write to a temp file and rename it over the target
	err = os.WriteFile(tmpPath, []byte("side: left"), 0644)
	require.NoError(t, err, "failed to write temp file")
	err = os.Rename(tmpPath, cfgPath)
	require.NoError(t, err, "failed to rename temp file")

	select {
	case <-onChange:
		// Expected
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification for rename-replace")
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(cfgPath, []byte("side: right"), 0644)
	require.NoError(t, err, "failed to create config file")

	w, err := watcher.New(watcher.Config{
		Path:        cfgPath,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")

	_, err = w.Start()
	require.NoError(t, err, "failed to start watcher")

	done := make(chan struct{})
	go func() {
		err := w.Stop()
		assert.NoError(t, err, "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
		// Expected - stop completed successfully
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestDefaultConfig(t *testing.T) {
	path := "/home/user/.config/termdock/config.yaml"
	cfg := watcher.DefaultConfig(path)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDur)
}
