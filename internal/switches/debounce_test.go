package switches

import (
	"testing"

	"pinio/internal/config"
)

func tick(d *Debouncer, s *State, ts uint32, setBit func(raw *[config.TotalBytes]byte)) []EdgeEvent {
	var raw [config.TotalBytes]byte
	// Start from the currently debounced state so untouched bits don't drift.
	cur := s.GetAll()
	raw = cur
	setBit(&raw)
	return d.Apply(&raw, s, ts)
}

func TestDebounceMonotonicitySingleSpuriousSample(t *testing.T) {
	var d Debouncer
	var s State

	// One tick where bit 0 disagrees, then back to agreement: never flips.
	ev := tick(&d, &s, 1, func(raw *[config.TotalBytes]byte) { raw[0] |= 1 })
	if len(ev) != 0 {
		t.Fatalf("tick1: expected no flip yet, got %v", ev)
	}
	ev = tick(&d, &s, 2, func(raw *[config.TotalBytes]byte) { raw[0] &^= 1 })
	if len(ev) != 0 {
		t.Fatalf("tick2 (spurious reverted): expected no flip, got %v", ev)
	}
	if s.Get(0) {
		t.Fatalf("bit 0 should still read false after a single spurious disagreement")
	}
}

func TestDebounceLatencyBoundFlipsOnThresholdTick(t *testing.T) {
	var d Debouncer
	var s State

	for i := 1; i < config.DebounceThreshold; i++ {
		ev := tick(&d, &s, uint32(i), func(raw *[config.TotalBytes]byte) { raw[0] |= 1 })
		if len(ev) != 0 {
			t.Fatalf("tick %d: expected no flip before threshold, got %v", i, ev)
		}
	}
	ev := tick(&d, &s, config.DebounceThreshold, func(raw *[config.TotalBytes]byte) { raw[0] |= 1 })
	if len(ev) != 1 || ev[0].Index != 0 || !ev[0].NewLevel {
		t.Fatalf("expected exactly one flip to true on threshold tick, got %v", ev)
	}
	if !s.Get(0) {
		t.Fatalf("bit 0 should read true after threshold consecutive disagreements")
	}
}

func TestEdgeEventOrderingAscending(t *testing.T) {
	var d Debouncer
	var s State

	// Drive bit 319 and bit 1 to flip together; events must come back in
	// ascending HwIndex order regardless of how the raw bytes were built.
	for i := 1; i < config.DebounceThreshold; i++ {
		tick(&d, &s, uint32(i), func(raw *[config.TotalBytes]byte) {
			raw[0] |= 1 << 1
			raw[config.TotalBytes-1] |= 1 << 7
		})
	}
	ev := tick(&d, &s, config.DebounceThreshold, func(raw *[config.TotalBytes]byte) {
		raw[0] |= 1 << 1
		raw[config.TotalBytes-1] |= 1 << 7
	})
	if len(ev) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(ev))
	}
	if ev[0].Index >= ev[1].Index {
		t.Fatalf("edges not in ascending order: %v", ev)
	}
}

func TestGetAllSnapshotLength(t *testing.T) {
	var s State
	snap := s.GetAll()
	if len(snap) != config.TotalBytes {
		t.Fatalf("snapshot length = %d, want %d", len(snap), config.TotalBytes)
	}
}
