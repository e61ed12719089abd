package goshape

import (
	"strings"
	"sync"
)

// Presence is the bit flag collected by WithMeta APIs.
type Presence uint8

const (
	PresenceSeen           Presence = 1 << iota // Member was navigated into.
	PresenceWasNull                             // Member was set to None.
	PresenceDefaultApplied                      // Default value was applied.
)

// PresenceMap maps JSON Pointers to Presence flags.
type PresenceMap map[string]Presence

// Mark ORs flag into the entry for path.
func (pm PresenceMap) Mark(path string, flag Presence) {
	if pm == nil {
		return
	}
	pm[path] |= flag
}

// Has reports whether the entry for path carries flag.
func (pm PresenceMap) Has(path string, flag Presence) bool { return pm[path]&flag != 0 }

// Decoded carries the built value along with presence metadata.
type Decoded[T any] struct {
	Value    T
	Presence PresenceMap
}

// simple string interner for PresenceMap keys
var (
	_internMu   sync.RWMutex
	_internPool = map[string]string{}
)

func internString(s string) string {
	_internMu.RLock()
	if v, ok := _internPool[s]; ok {
		_internMu.RUnlock()
		return v
	}
	_internMu.RUnlock()

	_internMu.Lock()
	defer _internMu.Unlock()
	if v, ok := _internPool[s]; ok {
		return v
	}
	_internPool[s] = s
	return s
}

// FilterPresence applies include/exclude prefixes and interning to pm. It
// returns nil when collection is disabled.
func FilterPresence(pm PresenceMap, popt PresenceOpt) PresenceMap {
	if pm == nil || !popt.Collect {
		return nil
	}
	shouldInclude := func(path string) bool {
		if len(popt.Include) > 0 {
			ok := false
			for _, p := range popt.Include {
				if strings.HasPrefix(path, p) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
		for _, p := range popt.Exclude {
			if strings.HasPrefix(path, p) {
				return false
			}
		}
		return true
	}

	filtered := make(PresenceMap, len(pm))
	for k, v := range pm {
		if !shouldInclude(k) {
			continue
		}
		if popt.Intern {
			k = internString(k)
		}
		filtered[k] = v
	}
	return filtered
}
