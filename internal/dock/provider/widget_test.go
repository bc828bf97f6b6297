//go:build !windows

package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/config"
)

func TestWidgetOpenBuildsViewportWithSlotDimensions(t *testing.T) {
	deps, presenter, _, _ := testDeps()
	presenter.width = 100
	presenter.height = 30

	w := NewWidget(deps)
	defer stopAll(t, w.Native)

	require.Equal(t, config.ProviderWidget, w.Name())
	require.True(t, w.IsAvailable())

	require.NoError(t, w.Open(context.Background(), sleepOpts(false)))

	activeID, ok := deps.Sessions.ActiveID()
	require.True(t, ok)

	vp, ok := w.ViewportFor(activeID)
	require.True(t, ok)
	require.Equal(t, 100, vp.Width, "viewport adopts the slot's prior dimensions")
	require.Equal(t, 30, vp.Height)

	surf := deps.Surfaces.BySession(activeID)
	require.NotNil(t, surf)
	sw, sh := surf.Size()
	require.Equal(t, 100, sw)
	require.Equal(t, 30, sh)
}

func TestWidgetResizeViewport(t *testing.T) {
	deps, _, _, _ := testDeps()
	w := NewWidget(deps)
	defer stopAll(t, w.Native)

	require.NoError(t, w.Open(context.Background(), sleepOpts(false)))
	activeID, _ := deps.Sessions.ActiveID()

	w.ResizeViewport(activeID, 60, 20)
	vp, ok := w.ViewportFor(activeID)
	require.True(t, ok)
	require.Equal(t, 60, vp.Width)
	require.Equal(t, 20, vp.Height)
}

func TestWidgetForgetDropsViewport(t *testing.T) {
	deps, _, _, _ := testDeps()
	w := NewWidget(deps)
	defer stopAll(t, w.Native)

	require.NoError(t, w.Open(context.Background(), sleepOpts(false)))
	activeID, _ := deps.Sessions.ActiveID()

	w.Forget(activeID)
	_, ok := w.ViewportFor(activeID)
	require.False(t, ok)
	_, ok = w.SurfaceIDForSession(activeID)
	require.False(t, ok)
}

func TestWidgetUnavailableWithoutPresenter(t *testing.T) {
	deps, _, _, _ := testDeps()
	deps.Present = nil
	w := NewWidget(deps)
	require.False(t, w.IsAvailable())
}
