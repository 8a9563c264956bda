// Package supervisor implements the controller's single point of physical
// safety: watchdog feeding, fault latching (stack overflow, allocation
// failure, assertion failure, watchdog trip), and the master solenoid
// disable that every one of those faults triggers before any trap/reset
// path runs.
package supervisor

import (
	"context"
	"sync"
	"time"

	"pinio/errcode"
	"pinio/internal/config"
	"pinio/internal/hal"
	"pinio/x/logx"
)

// Fault identifies which latch path tripped the supervisor.
type Fault byte

const (
	FaultNone Fault = iota
	FaultWatchdogTrip
	FaultStackOverflow
	FaultAllocFailure
	FaultAssertFailed
)

// Fault LED codes for the GPIO-port-F RGB fault indicator: assertion-class
// faults light code 0b010; a watchdog trip lights red only.
const (
	ledAssertCode   byte = 0b010
	ledWatchdogCode byte = 0b001
)

// Supervisor owns the watchdog feed flag and the latched-fault state.
type Supervisor struct {
	hal hal.Facade
	log *logx.Logger

	mu            sync.Mutex
	feedRequested bool
	tripped       bool
	fault         Fault
}

// New returns a Supervisor with no fault latched.
func New(h hal.Facade, log *logx.Logger) *Supervisor {
	return &Supervisor{hal: h, log: log}
}

// FeedRequested marks the flag the watchdog task clears on each successful
// cycle of the scan+rule task. Once latched, feeds are ignored.
func (s *Supervisor) FeedRequested() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		return
	}
	s.feedRequested = true
}

// RunWatchdog is the low-priority task that kicks the hardware watchdog
// while feeds keep arriving every config.WatchdogPeriod, and latches
// FaultWatchdogTrip if the scan+rule task stalls for longer than that.
// It polls at a quarter of the watchdog period so a stall is caught well
// before the next real hardware timeout would fire.
func (s *Supervisor) RunWatchdog(ctx context.Context) {
	pollPeriod := config.WatchdogPeriod / 4
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	lastFed := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			fed := s.feedRequested
			s.feedRequested = false
			tripped := s.tripped
			s.mu.Unlock()

			if tripped {
				continue
			}
			if fed {
				lastFed = now
				s.hal.WatchdogKick()
				continue
			}
			if now.Sub(lastFed) > config.WatchdogPeriod {
				s.Latch(FaultWatchdogTrip)
			}
		}
	}
}

// Latch disables the solenoid master and drives the fault LED for kind,
// idempotently. It does not trap: runtime panic paths call Trap instead.
func (s *Supervisor) Latch(kind Fault) {
	s.mu.Lock()
	if s.tripped {
		s.mu.Unlock()
		return
	}
	s.tripped = true
	s.fault = kind
	s.mu.Unlock()

	s.hal.SetSolenoidMaster(false)
	switch kind {
	case FaultWatchdogTrip:
		s.hal.SetFaultLED(ledWatchdogCode)
		s.logFault("watchdog trip")
	default:
		s.hal.SetFaultLED(ledAssertCode)
		s.logFault("fault latched")
	}
}

func (s *Supervisor) logFault(msg string) {
	if s.log == nil {
		return
	}
	s.log.Println("[supervisor] ", msg, ": solenoid master disabled")
}

// Trap latches kind then blocks forever, the required behavior for
// stack-overflow, allocation-failure and assertion-failure paths. Callers
// invoke it from the runtime hook, never from a path that expects to
// resume.
func (s *Supervisor) Trap(kind Fault) {
	s.Latch(kind)
	for {
		time.Sleep(time.Hour)
	}
}

// AssertFailed, StackOverflow and AllocFailure are the three runtime hook
// entry points the firmware's fault paths call into.
func (s *Supervisor) AssertFailed()  { s.Trap(FaultAssertFailed) }
func (s *Supervisor) StackOverflow() { s.Trap(FaultStackOverflow) }
func (s *Supervisor) AllocFailure()  { s.Trap(FaultAllocFailure) }

// Tripped reports whether any fault has been latched.
func (s *Supervisor) Tripped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped
}

// FaultCode returns errcode.OK, or the Code matching the latched Fault.
func (s *Supervisor) FaultCode() errcode.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.fault {
	case FaultWatchdogTrip:
		return errcode.WatchdogTrip
	case FaultStackOverflow:
		return errcode.StackOverflow
	case FaultAllocFailure:
		return errcode.AllocFailure
	case FaultAssertFailed:
		return errcode.AssertFailed
	default:
		return errcode.OK
	}
}
