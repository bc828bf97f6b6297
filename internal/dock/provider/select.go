package provider

import (
	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/log"
)

// Select resolves the configured provider name against the table. The
// native backend is the always-available fallback: an explicitly configured
// but unavailable provider logs a warning and falls back, never hard-fails.
// "auto" prefers the widget backend when available. Returns nil only for
// config.ProviderNone.
func Select(table *Table, configured string) *Validated {
	if configured == config.ProviderNone {
		return nil
	}

	native, _ := table.Lookup(config.ProviderNative)

	switch configured {
	case config.ProviderAuto, "":
		if widget, ok := table.Lookup(config.ProviderWidget); ok && widget.IsAvailable() {
			return widget
		}
		return native
	default:
		p, ok := table.Lookup(configured)
		if !ok {
			log.Warn(log.CatProvider, "unknown provider, falling back to native",
				"provider", configured)
			return native
		}
		if !p.IsAvailable() {
			log.Warn(log.CatProvider, "provider unavailable, falling back to native",
				"provider", configured)
			return native
		}
		return p
	}
}
