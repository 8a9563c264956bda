// Package rules implements the quick-fire rule engine: a fixed table of
// host-configured input-to-output reflexes evaluated on every debounced
// scan tick, entirely independent of host communication latency.
package rules

import (
	"sync"

	"pinio/errcode"
	"pinio/internal/bcm"
	"pinio/internal/config"
	"pinio/internal/hal"
	"pinio/internal/hwindex"
	"pinio/internal/switches"
	"pinio/x/mathx"
)

// Rule is one quick-fire slot: a host-configured input edge/level condition
// coupled to an output action. Index in the Engine's table doubles as the
// rule's host-visible ID.
type Rule struct {
	Enabled bool
	Input   hwindex.Index
	Output  hwindex.Index

	THoldOff uint16
	TPulse   int16
	PWMHigh  uint8
	PWMLow   uint8

	PosEdge          bool
	AutoOffOnRelease bool
	LevelTriggered   bool

	holdOffRemaining uint16
	lastInputLevel   bool
}

// Engine owns the fixed rule table plus the hardware facade used to
// dispatch hardware-PWM-channel outputs directly (I2C outputs go through
// the BCM engine).
type Engine struct {
	mu    sync.Mutex
	rules [config.MaxQuickRules]Rule
	bcm   *bcm.Engine
	hal   hal.Facade
}

// New returns an Engine with every slot disabled.
func New(b *bcm.Engine, h hal.Facade) *Engine {
	return &Engine{bcm: b, hal: h}
}

// Configure installs or overwrites rule id (the RUL command). Installing a
// rule always starts disabled; a separate RULE command arms it.
func (e *Engine) Configure(id int, input, output hwindex.Index, tHoldOff uint16, tPulse int16, pwmHigh, pwmLow uint8, posEdge, autoOff, levelTriggered bool) error {
	in := hwindex.Decode(input)
	if in.Kind != hwindex.Matrix && in.Kind != hwindex.I2C {
		return errcode.InvalidHwIndex
	}
	out := hwindex.Decode(output)
	if out.Kind != hwindex.I2C && out.Kind != hwindex.HWPWM {
		return errcode.InvalidHwIndex
	}
	if id < 0 || id >= len(e.rules) {
		return errcode.InvalidHwIndex
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[id] = Rule{
		Input:            input,
		Output:           output,
		THoldOff:         tHoldOff,
		TPulse:           tPulse,
		PWMHigh:          uint8(mathx.Clamp(int(pwmHigh), 0, bcm.MaxPWM)),
		PWMLow:           uint8(mathx.Clamp(int(pwmLow), 0, bcm.MaxPWM)),
		PosEdge:          posEdge,
		AutoOffOnRelease: autoOff,
		LevelTriggered:   levelTriggered,
	}
	return nil
}

// Enable arms rule id (RULE), clearing its holdoff timer.
func (e *Engine) Enable(id int) error {
	return e.setEnabled(id, true)
}

// Disable disarms rule id (RULD), preserving its configuration.
func (e *Engine) Disable(id int) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id int, on bool) error {
	if id < 0 || id >= config.MaxQuickRules {
		return errcode.InvalidHwIndex
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	r := &e.rules[id]
	r.Enabled = on
	r.holdOffRemaining = 0
	return nil
}

// Evaluate runs one scan tick's pass over the whole rule table: decrement
// holdoffs, sample the current debounced level for each rule's input, and
// dispatch triggered outputs. It does not use the
// edge-event list directly (a level/edge decision per rule needs the
// current sample regardless of whether this tick produced an edge for that
// exact bit), matching the "single consistent snapshot per tick" guarantee.
func (e *Engine) Evaluate(state *switches.State, dtMillis int16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.rules {
		r := &e.rules[i]

		if r.holdOffRemaining > 0 {
			if int(r.holdOffRemaining) > int(dtMillis) {
				r.holdOffRemaining -= uint16(dtMillis)
			} else {
				r.holdOffRemaining = 0
			}
		}
		if !r.Enabled {
			continue
		}

		level := state.Get(r.Input)
		triggered := false
		if r.LevelTriggered {
			triggered = level == r.PosEdge
		} else {
			triggered = r.lastInputLevel != level && level == r.PosEdge
		}

		if triggered && r.holdOffRemaining == 0 {
			e.dispatch(r.Output, r.TPulse, r.PWMHigh, r.PWMLow)
			r.holdOffRemaining = r.THoldOff
		}

		released := !r.LevelTriggered && r.lastInputLevel != level && level != r.PosEdge
		if r.AutoOffOnRelease && released {
			e.dispatch(r.Output, 0, r.PWMLow, r.PWMLow)
		}

		r.lastInputLevel = level
	}
}

func (e *Engine) dispatch(output hwindex.Index, tPulse int16, pwmHigh, pwmLow uint8) {
	loc := hwindex.Decode(output)
	switch loc.Kind {
	case hwindex.I2C:
		_ = e.bcm.SetPclOutput(loc, tPulse, pwmHigh, pwmLow)
	case hwindex.HWPWM:
		e.hal.SetHwPWM(loc.Channel, uint16(pwmHigh))
	}
}

// Snapshot returns a copy of rule id for diagnostics/tests.
func (e *Engine) Snapshot(id int) (Rule, bool) {
	if id < 0 || id >= config.MaxQuickRules {
		return Rule{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules[id], true
}
