// Package dock owns the single visible display slot and the orchestration
// that multiplexes sessions through it: the slot presenter, the per-session
// lifecycle state machine, and the intentional-close marker set that
// disambiguates user closes from crashes.
package dock

import (
	"fmt"
	"sync"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/log"
)

// ResizeReason classifies why the slot is being re-laid out. The configured
// width fraction is re-applied only on genuine resizes and tab switches;
// plain focus navigation must preserve a manually adjusted width, though it
// still resize-notifies the shown process.
type ResizeReason int

const (
	ReasonResize ResizeReason = iota
	ReasonTabSwitch
	ReasonFocusNav
)

// Slot is the one visible display region. At most one exists per tab
// context; it is recreated lazily and recovers pre-existing surfaces before
// creating new ones.
type Slot struct {
	store *surface.Store

	mu        sync.Mutex
	cfg       config.SplitConfig
	visible   bool
	current   surface.ID
	focused   bool
	hostW     int
	hostH     int
	slotW     int
	slotH     int
	userWidth int // manual override, 0 when unset
}

// NewSlot creates a hidden slot laid out per cfg.
func NewSlot(store *surface.Store, cfg config.SplitConfig) *Slot {
	return &Slot{store: store, cfg: cfg}
}

// Ensure returns a presentable surface id: the current one when still live,
// else any live terminal surface recovered from the store (covering an
// out-of-band teardown of the slot's own bookkeeping), else a fresh scratch
// surface.
func (s *Slot) Ensure() surface.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" && s.store.Get(s.current) != nil {
		return s.current
	}

	var recovered surface.ID
	s.store.ForEachTerminal(func(surf *surface.Surface) {
		if recovered == "" {
			recovered = surf.ID()
		}
	})
	if recovered != "" {
		log.Debug(log.CatSlot, "recovered surface", "surface", recovered)
		s.current = recovered
		return recovered
	}

	scratch := surface.NewScratch()
	s.store.Add(scratch)
	s.current = scratch.ID()
	log.Debug(log.CatSlot, "created scratch surface", "surface", scratch.ID())
	return scratch.ID()
}

// Present swaps the shown surface. Any scratch placeholder left behind is
// deleted, and the incoming surface is resize-notified so its process
// learns the slot geometry.
func (s *Slot) Present(id surface.ID, focus bool) error {
	surf := s.store.Get(id)
	if surf == nil {
		return fmt.Errorf("present: unknown surface %s", id)
	}

	s.mu.Lock()
	prev := s.current
	s.current = id
	s.visible = true
	if focus {
		s.focused = true
	} else if id != prev {
		// A focus flag left over from the previous surface must not leak
		// onto the incoming one.
		s.focused = false
	}
	width, height := s.slotW, s.slotH
	s.mu.Unlock()

	if prev != "" && prev != id {
		if prevSurf := s.store.Get(prev); prevSurf != nil && prevSurf.IsScratch() {
			s.store.Remove(prev)
		}
	}

	surf.Resize(width, height)
	log.Debug(log.CatSlot, "surface presented", "surface", id, "focus", focus)
	return nil
}

// Hide closes the slot without destroying the shown surface: the surface
// can come back, it is hidden, not lost.
func (s *Slot) Hide() {
	s.mu.Lock()
	s.visible = false
	s.focused = false
	s.mu.Unlock()
	log.Debug(log.CatSlot, "slot hidden")
}

// IsVisible reports whether the slot is shown.
func (s *Slot) IsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// CurrentSurface returns the shown surface while visible.
func (s *Slot) CurrentSurface() (surface.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible || s.current == "" {
		return "", false
	}
	return s.current, true
}

// Focus marks the surface's slot as focused.
func (s *Slot) Focus(id surface.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != id {
		return fmt.Errorf("focus: surface %s is not presented", id)
	}
	s.focused = true
	return nil
}

// IsFocused reports whether the given surface is presented and focused.
func (s *Slot) IsFocused(id surface.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible && s.focused && s.current == id
}

// Blur drops slot focus, e.g. when the host moves focus elsewhere.
func (s *Slot) Blur() {
	s.mu.Lock()
	s.focused = false
	s.mu.Unlock()
}

// Dimensions returns the slot's current width and height in cells.
func (s *Slot) Dimensions() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotW, s.slotH
}

// SetUserWidth records a manual width adjustment, preserved across focus
// navigation until the next genuine resize or tab switch.
func (s *Slot) SetUserWidth(width int) {
	s.mu.Lock()
	s.userWidth = width
	s.slotW = width
	current := s.current
	height := s.slotH
	s.mu.Unlock()

	s.notify(current, width, height)
}

// Layout recomputes the slot geometry for new host dimensions. Resize and
// tab-switch events re-apply the configured width fraction, discarding any
// manual adjustment; focus navigation keeps the current width and only
// resize-notifies.
func (s *Slot) Layout(hostW, hostH int, reason ResizeReason) {
	s.mu.Lock()
	s.hostW = hostW
	s.hostH = hostH

	switch reason {
	case ReasonResize, ReasonTabSwitch:
		s.userWidth = 0
		s.slotW = int(float64(hostW) * s.cfg.WidthFraction)
	case ReasonFocusNav:
		if s.userWidth > 0 {
			s.slotW = s.userWidth
		} else if s.slotW == 0 {
			s.slotW = int(float64(hostW) * s.cfg.WidthFraction)
		}
	}
	s.slotH = hostH
	current := s.current
	width, height := s.slotW, s.slotH
	s.mu.Unlock()

	s.notify(current, width, height)
}

// Side returns which side of the host the slot splits at.
func (s *Slot) Side() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Side
}

// SetSplit applies a new split configuration (config hot reload) and
// re-lays out with the new fraction.
func (s *Slot) SetSplit(cfg config.SplitConfig) {
	s.mu.Lock()
	s.cfg = cfg
	hostW, hostH := s.hostW, s.hostH
	s.mu.Unlock()
	if hostW > 0 {
		s.Layout(hostW, hostH, ReasonResize)
	}
}

func (s *Slot) notify(id surface.ID, width, height int) {
	if id == "" {
		return
	}
	if surf := s.store.Get(id); surf != nil {
		surf.Resize(width, height)
	}
}
