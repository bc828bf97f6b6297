package dock

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/termdock/termdock/internal/session"
)

// closingTTL is a safety valve: if an exit event never arrives to clear an
// entry (the process was already dead, the kill raced a host crash), the
// marker must not poison a later open of the same session id.
const closingTTL = 30 * time.Second

// ClosingSet marks sessions that are intentionally being torn down. The
// closer adds entries just before teardown; only the exit handler removes
// them. The closer never clears its own mark; doing so would let the exit
// handler misread a still-pending close as a crash.
type ClosingSet struct {
	cache *gocache.Cache
}

// NewClosingSet creates an empty ClosingSet.
func NewClosingSet() *ClosingSet {
	return &ClosingSet{cache: gocache.New(closingTTL, time.Minute)}
}

// Mark records that id is intentionally being closed.
func (c *ClosingSet) Mark(id session.ID) {
	c.cache.SetDefault(string(id), struct{}{})
}

// Contains reports whether id is marked as intentionally closing.
func (c *ClosingSet) Contains(id session.ID) bool {
	_, ok := c.cache.Get(string(id))
	return ok
}

// Clear removes the marker. Called only from the exit handler.
func (c *ClosingSet) Clear(id session.ID) {
	c.cache.Delete(string(id))
}

// Len returns the number of live markers.
func (c *ClosingSet) Len() int {
	return c.cache.ItemCount()
}
