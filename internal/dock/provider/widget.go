package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/session"
)

// Widget is the rich-widget backend. Process ownership is shared with the
// native backend; surface display is delegated to a viewport widget which
// is immediately re-parented into the dock slot, discarding the widget's
// own free-standing window size in favor of the slot's prior dimensions.
type Widget struct {
	*Native

	vpMu      sync.Mutex
	viewports map[session.ID]*viewport.Model
}

// NewWidget creates the widget backend on top of a native core.
func NewWidget(deps Deps) *Widget {
	return &Widget{
		Native:    NewNative(deps),
		viewports: make(map[session.ID]*viewport.Model),
	}
}

// Name implements Provider.
func (w *Widget) Name() string { return config.ProviderWidget }

// IsAvailable requires a presenter to re-parent into.
func (w *Widget) IsAvailable() bool {
	return w.deps.Present != nil
}

// OpenSession spawns through the native core, then builds the session's
// viewport sized to the slot's existing dimensions. A slot that was never
// sized yet leaves the viewport at the widget default until the first
// resize arrives.
func (w *Widget) OpenSession(ctx context.Context, id session.ID, opts OpenOptions) error {
	prevW, prevH := w.deps.Present.Dimensions()

	if err := w.Native.OpenSession(ctx, id, opts); err != nil {
		return err
	}

	w.vpMu.Lock()
	defer w.vpMu.Unlock()
	if _, exists := w.viewports[id]; exists {
		return nil
	}

	vp := viewport.New(prevW, prevH)
	w.viewports[id] = &vp

	// Re-parenting: the slot keeps its pre-existing geometry, not the
	// widget's.
	if surf := w.deps.Surfaces.BySession(id); surf != nil && prevW > 0 && prevH > 0 {
		surf.Resize(prevW, prevH)
	}
	return nil
}

// Open materializes the active session through the widget path.
func (w *Widget) Open(ctx context.Context, opts OpenOptions) error {
	sess, err := w.deps.Sessions.Ensure()
	if err != nil {
		return err
	}
	return w.OpenSession(ctx, sess.ID, opts)
}

// SimpleToggle routes the show path through the widget's Open.
func (w *Widget) SimpleToggle(ctx context.Context, opts OpenOptions) error {
	if w.deps.Present.IsVisible() {
		w.deps.Present.Hide()
		return nil
	}
	return w.Open(ctx, opts)
}

// FocusToggle mirrors the native semantics with the widget open path.
func (w *Widget) FocusToggle(ctx context.Context, opts OpenOptions) error {
	if w.deps.Present.IsVisible() {
		if current, ok := w.deps.Present.CurrentSurface(); ok {
			if w.deps.Present.IsFocused(current) {
				w.deps.Present.Hide()
				return nil
			}
			return w.deps.Present.Focus(current)
		}
		w.deps.Present.Hide()
		return nil
	}
	opts.Focus = true
	return w.Open(ctx, opts)
}

// ViewportFor returns the session's viewport with content refreshed from
// the surface buffer, for the host view to render.
func (w *Widget) ViewportFor(id session.ID) (*viewport.Model, bool) {
	w.vpMu.Lock()
	vp, ok := w.viewports[id]
	w.vpMu.Unlock()
	if !ok {
		return nil, false
	}

	if surf := w.deps.Surfaces.BySession(id); surf != nil {
		vp.SetContent(strings.Join(surf.Buffer().Lines(), "\n"))
		vp.GotoBottom()
	}
	return vp, true
}

// ResizeViewport applies new slot dimensions to the session's viewport and
// surface.
func (w *Widget) ResizeViewport(id session.ID, width, height int) {
	w.vpMu.Lock()
	if vp, ok := w.viewports[id]; ok {
		vp.Width = width
		vp.Height = height
	}
	w.vpMu.Unlock()

	if surf := w.deps.Surfaces.BySession(id); surf != nil {
		surf.Resize(width, height)
	}
}

// Forget drops the viewport along with the native bookkeeping.
func (w *Widget) Forget(id session.ID) {
	w.vpMu.Lock()
	delete(w.viewports, id)
	w.vpMu.Unlock()
	w.Native.Forget(id)
}

var _ Provider = (*Widget)(nil)
