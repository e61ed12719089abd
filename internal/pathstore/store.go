// Package pathstore keeps frames that were ended while their contents were
// still incomplete, keyed by the field path that reached them.
package pathstore

import (
	"errors"
	"sort"
	"strings"
)

// ErrExists reports a second Put under the same path.
var ErrExists = errors.New("pathstore: path already stored")

// Path is a sequence of field names from the deferred root.
type Path []string

// Key returns the escaped JSON-Pointer form of p, "" for the root.
func (p Path) Key() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		b.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(seg))
	}
	return b.String()
}

func (p Path) Depth() int { return len(p) }

// Child returns a copy of p extended by name.
func (p Path) Child(name string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// Entry is one stored frame.
type Entry[F any] struct {
	Path  Path
	Frame F
}

// Store maps paths to stored frames.
type Store[F any] struct {
	entries map[string]Entry[F]
}

func New[F any]() *Store[F] { return &Store[F]{entries: make(map[string]Entry[F])} }

func (s *Store[F]) Put(p Path, f F) error {
	k := p.Key()
	if _, ok := s.entries[k]; ok {
		return ErrExists
	}
	s.entries[k] = Entry[F]{Path: p, Frame: f}
	return nil
}

// Take removes and returns the frame stored under p.
func (s *Store[F]) Take(p Path) (F, bool) {
	k := p.Key()
	e, ok := s.entries[k]
	if ok {
		delete(s.entries, k)
	}
	return e.Frame, ok
}

func (s *Store[F]) Len() int { return len(s.entries) }

// Drain empties the store and returns its entries deepest first. Entries of
// equal depth are ordered by key so the result is deterministic.
func (s *Store[F]) Drain() []Entry[F] {
	out := make([]Entry[F], 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Path.Depth(), out[j].Path.Depth()
		if di != dj {
			return di > dj
		}
		return out[i].Path.Key() < out[j].Path.Key()
	})
	clear(s.entries)
	return out
}
