// Package switches holds the canonical debounced switch bit-vector and the
// vertical-counter debouncer that feeds it. State is mutated only by the
// Input Scanner; everyone else takes a brief critical section to read it.
package switches

import (
	"sync"

	"pinio/internal/config"
	"pinio/internal/hwindex"
)

// State is the 40-byte debounced switch vector, addressed by hwindex.Index.
// The zero value is ready to use (all bits clear).
type State struct {
	mu    sync.RWMutex
	bytes [config.TotalBytes]byte
}

// Get reads a single debounced bit.
func (s *State) Get(idx hwindex.Index) bool {
	d := hwindex.Decode(idx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes[d.Byte]&(1<<d.Bit) != 0
}

// GetAll returns an atomic 40-byte snapshot.
func (s *State) GetAll() [config.TotalBytes]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// replaceWords overwrites the whole vector from packed little-endian words,
// used by the debouncer to publish a tick's result in one step.
func (s *State) replaceWords(words *[config.TotalBytes / 4]uint32) {
	s.mu.Lock()
	for i, w := range words {
		s.bytes[i*4+0] = byte(w)
		s.bytes[i*4+1] = byte(w >> 8)
		s.bytes[i*4+2] = byte(w >> 16)
		s.bytes[i*4+3] = byte(w >> 24)
	}
	s.mu.Unlock()
}
