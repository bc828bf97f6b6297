//go:build !windows

package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/dock/proc"
)

func writeLaunchers(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const shLauncher = `
launchers:
  - name: shell
    command: sh
    args: ["-c", "sleep 60"]
`

func TestExternalAvailability(t *testing.T) {
	deps, _, _, _ := testDeps()

	e, err := NewExternal(deps, writeLaunchers(t, shLauncher))
	require.NoError(t, err)
	require.True(t, e.IsAvailable(), "sh resolves on PATH")

	missing, err := NewExternal(deps, writeLaunchers(t, `
launchers:
  - name: ghost
    command: termdock-no-such-binary
`))
	require.NoError(t, err)
	require.False(t, missing.IsAvailable())

	empty, err := NewExternal(deps, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.False(t, empty.IsAvailable())
}

func TestExternalOpenTracksDetachedPID(t *testing.T) {
	deps, presenter, _, tracker := testDeps()
	e, err := NewExternal(deps, writeLaunchers(t, shLauncher))
	require.NoError(t, err)

	require.NoError(t, e.Open(context.Background(), OpenOptions{Command: "shell"}))
	require.Equal(t, 1, tracker.count())

	activeID, ok := deps.Sessions.ActiveID()
	require.True(t, ok)
	sess, _ := deps.Sessions.Get(activeID)
	require.NotNil(t, sess.Terminal)
	require.Positive(t, sess.Terminal.PID)
	require.Empty(t, sess.Terminal.SurfaceID, "external sessions own no surface")

	// No slot interaction for this backend.
	require.False(t, presenter.IsVisible())
	_, ok = e.ActiveSurfaceID()
	require.False(t, ok)
	_, ok = e.SurfaceIDForSession(activeID)
	require.False(t, ok)
	require.Len(t, e.ListActiveSessionIDs(), 1)

	// Re-open is a no-op while the application runs.
	require.NoError(t, e.OpenSession(context.Background(), activeID, OpenOptions{Command: "shell"}))
	require.Equal(t, 1, tracker.count())

	require.NoError(t, e.CloseSession(activeID))
	tracker.mu.Lock()
	job := tracker.jobs[0]
	tracker.mu.Unlock()
	job.Wait()
	require.Eventually(t, func() bool { return !proc.Alive(sess.Terminal.PID) },
		3*time.Second, 25*time.Millisecond)
}

func TestExternalSingleLauncherFallback(t *testing.T) {
	deps, _, _, _ := testDeps()
	e, err := NewExternal(deps, writeLaunchers(t, shLauncher))
	require.NoError(t, err)

	l, err := e.launcherFor(OpenOptions{Command: "anything"})
	require.NoError(t, err)
	require.Equal(t, "shell", l.Name)
}

func TestExternalUnknownLauncher(t *testing.T) {
	deps, _, _, _ := testDeps()
	e, err := NewExternal(deps, writeLaunchers(t, shLauncher+`
  - name: other
    command: sh
`))
	require.NoError(t, err)

	err = e.OpenSession(context.Background(), "s1", OpenOptions{Command: "nope"})
	require.ErrorIs(t, err, ErrUnavailable)
}
