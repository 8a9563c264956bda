// Package bcm implements the binary-code-modulated software PWM output
// engine: a compact-and-seal array of per-expander bitplane buffers, driven
// by a geometric-cadence task, plus the per-bit timed pulse/hold state
// machine that transitions a pin from its high-PWM pattern to its low-PWM
// pattern when a pulse expires.
package bcm

import (
	"context"
	"sync"
	"time"

	"pinio/errcode"
	"pinio/internal/config"
	"pinio/internal/hal"
	"pinio/internal/hwindex"
	"pinio/internal/util"
	"pinio/x/mathx"
)

const (
	N       = config.BCMBitDepth
	MaxPWM  = config.MaxPWM
	listLen = config.OutWriterListLen
)

// bitRule mirrors one bitRules[bit] entry: a countdown to pulse expiry and
// the PWM value to settle on once it expires. A tPulse of 0 at creation
// means "hold highPWM forever" (SetPclOutput stores the entry inactive, so
// HandleBitRules never counts it down).
type bitRule struct {
	tPulse int16
	lowPWM uint8
	active bool
}

// outputByte is one PclOutputByte: a single (channel, address) expander's
// BCM bitplane buffer plus its eight per-bit pulse rules.
type outputByte struct {
	channel int // -1 marks the sentinel/unused slot
	address byte
	planes  [N]byte
	rules   [8]bitRule
}

// Engine owns the compact-and-seal PclOutputByte array and the hardware
// facade used to emit planes over I2C.
type Engine struct {
	mu      sync.Mutex
	entries [listLen]outputByte
	hal     hal.Facade
	plane   int
}

// New returns an Engine with every slot marked as the sentinel (unused).
func New(h hal.Facade) *Engine {
	e := &Engine{hal: h}
	for i := range e.entries {
		e.entries[i].channel = -1
	}
	return e
}

// SetPclOutput installs or updates a pulse/hold pattern on an I2C-kind
// location: pattern highPWM for tPulse ms, then settle on lowPWM. tPulse==0
// means "hold highPWM forever."
func (e *Engine) SetPclOutput(loc hwindex.Decoded, tPulse int16, highPWM, lowPWM uint8) error {
	if loc.Kind != hwindex.I2C {
		return errcode.InvalidHwIndex
	}
	highPWM = uint8(mathx.Clamp(int(highPWM), 0, MaxPWM))
	lowPWM = uint8(mathx.Clamp(int(lowPWM), 0, MaxPWM))

	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.findOrAllocLocked(loc.Channel, loc.Address)
	if slot == nil {
		return errcode.NoSpace
	}
	writeBitLocked(&slot.planes, loc.Bit, highPWM)
	slot.rules[loc.Bit] = bitRule{tPulse: tPulse, lowPWM: lowPWM, active: tPulse > 0}
	return nil
}

// findOrAllocLocked returns the slot for (channel, address), allocating the
// first sentinel slot if none exists yet. Slots are never reordered or
// freed once assigned (grow-only, compact-and-seal).
func (e *Engine) findOrAllocLocked(channel int, address byte) *outputByte {
	for i := range e.entries {
		s := &e.entries[i]
		if s.channel == -1 {
			s.channel = channel
			s.address = address
			return s
		}
		if s.channel == channel && s.address == address {
			return s
		}
	}
	return nil
}

// writeBitLocked distributes the N bits of v across the N bitplanes at the
// given pin position: plane j gets bit j of v.
func writeBitLocked(planes *[N]byte, bit byte, v uint8) {
	for j := 0; j < N; j++ {
		if v&(1<<uint(j)) != 0 {
			planes[j] |= 1 << bit
		} else {
			planes[j] &^= 1 << bit
		}
	}
}

// EmitPlane enqueues plane j of every live entry over I2C (fire-and-forget:
// the scanner observes the latched value on its next read) and returns the
// number of entries walked before the sentinel.
func (e *Engine) EmitPlane(j int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for i := range e.entries {
		s := &e.entries[i]
		if s.channel == -1 {
			break
		}
		n++
		e.hal.I2CWrite(s.channel, s.address, []byte{s.planes[j]})
	}
	return n
}

// HandleBitRules decrements every active pulse countdown by dt (ms); any
// that expire have their pin rewritten to lowPWM across all N planes.
func (e *Engine) HandleBitRules(dt int16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.entries {
		s := &e.entries[i]
		if s.channel == -1 {
			break
		}
		for bit := 0; bit < 8; bit++ {
			r := &s.rules[bit]
			if !r.active {
				continue
			}
			r.tPulse -= dt
			if r.tPulse <= 0 {
				writeBitLocked(&s.planes, byte(bit), r.lowPWM)
				r.active = false
			}
		}
	}
}

// PlaneIndex returns the plane currently being emitted (0..N-1).
func (e *Engine) PlaneIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plane
}

// AdvancePlane advances to the next plane in the geometric cadence
// (0,1,...,N-1,0,...) and returns it.
func (e *Engine) AdvancePlane() int {
	e.mu.Lock()
	e.plane = (e.plane + 1) % N
	p := e.plane
	e.mu.Unlock()
	return p
}

// RunTask drives the BCM output task for the process lifetime, per spec
// §4.D: plane j is emitted, then held for 2^j ms before bit-rule countdowns
// age by that same duration and the engine advances to plane j+1 (wrapping
// N-1 -> 0). A plane is never skipped even under I2C back-pressure — only
// the task's own period dilates, since I2CWrite is fire-and-forget.
func (e *Engine) RunTask(ctx context.Context) {
	j := e.PlaneIndex()
	timer := time.NewTimer(time.Duration(1<<uint(j)) * time.Millisecond)
	defer timer.Stop()

	for {
		e.EmitPlane(j)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		e.HandleBitRules(int16(1 << uint(j)))
		j = e.AdvancePlane()
		util.ResetTimer(timer, time.Duration(1<<uint(j))*time.Millisecond)
	}
}

// PlaneBit reports the currently-emitted bit for (channel, address, bit),
// for tests and diagnostics. ok is false if no slot exists for the address.
func (e *Engine) PlaneBit(channel int, address byte, bit byte, plane int) (level bool, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.entries {
		s := &e.entries[i]
		if s.channel == -1 {
			break
		}
		if s.channel == channel && s.address == address {
			return s.planes[plane]&(1<<bit) != 0, true
		}
	}
	return false, false
}
