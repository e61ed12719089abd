// Package tracker holds the per-kind completion state machines used while a
// value is being built.
package tracker

import "math/bits"

// Bitset is a fixed-length set of member indices.
type Bitset struct {
	words []uint64
	n     int
}

func NewBitset(n int) Bitset {
	return Bitset{words: make([]uint64, (n+63)/64), n: n}
}

func (b *Bitset) Len() int { return b.n }

func (b *Bitset) Set(i int)   { b.words[i/64] |= 1 << (uint(i) % 64) }
func (b *Bitset) Clear(i int) { b.words[i/64] &^= 1 << (uint(i) % 64) }

func (b *Bitset) Has(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

// Count returns the number of members set.
func (b *Bitset) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// FirstUnset returns the lowest unset index, or -1 when all are set.
func (b *Bitset) FirstUnset() int {
	for wi, w := range b.words {
		if w == ^uint64(0) {
			continue
		}
		i := wi*64 + bits.TrailingZeros64(^w)
		if i < b.n {
			return i
		}
	}
	return -1
}

func (b *Bitset) All() bool { return b.FirstUnset() < 0 }

// Reset clears every bit and resizes the set to n members.
func (b *Bitset) Reset(n int) { *b = NewBitset(n) }
