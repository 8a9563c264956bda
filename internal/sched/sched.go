// Package sched is the scheduler glue: task registration, priority
// labelling, and a run loop that launches every task as its own goroutine.
// Go has no real-time priority scheduler, so Priority is advisory — it
// documents intended relative importance and is surfaced in diagnostics
// rather than enforced.
package sched

import (
	"context"
	"sync"

	"pinio/x/logx"
)

// Priority labels a task's intended relative importance. Numerically lower
// is not meaningful here since Go goroutines are fairly scheduled; the
// constants exist purely for readable task wiring and diagnostics.
type Priority int

const (
	PriorityLowest Priority = iota
	PriorityMedium
	PriorityHighest
)

// Task is one periodic or event-driven worker. Run must honour ctx.Done().
type Task struct {
	Name     string
	Priority Priority
	Run      func(ctx context.Context)
}

// FaultReporter is the Supervisor's runtime-hook entry point: a task that
// panics is the Go-hosted stand-in for the original firmware's
// vApplicationStackOverflowHook/__error__ paths, so a recovered panic routes
// here instead of unwinding silently.
type FaultReporter interface {
	AssertFailed()
}

// Scheduler launches every registered Task as its own goroutine and blocks
// until they all return (normally only on ctx cancellation).
type Scheduler struct {
	log    *logx.Logger
	faults FaultReporter
	tasks  []Task
}

// New returns an empty Scheduler. faults may be nil (tests that don't care
// about fault latching); main wires it to the Supervisor.
func New(log *logx.Logger, faults FaultReporter) *Scheduler {
	return &Scheduler{log: log, faults: faults}
}

// Add registers t; order of registration has no scheduling effect, it only
// affects the order tasks are reported in diagnostics.
func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, t)
}

// Run starts every registered task and waits for them all to exit. A task
// that panics is recovered and routed to AssertFailed — disable solenoid
// master, latch the fault LED, trap — mirroring the original firmware's
// assertion-failure hook rather than letting the panic crash the whole
// process silently. AssertFailed never returns, so that goroutine's
// WaitGroup entry is deliberately never released, the same "never resume"
// contract the original's trap loop has.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					if s.log != nil {
						s.log.Println("[sched] task panicked ", t.Name, ": ", errToStr(r))
					}
					if s.faults != nil {
						s.faults.AssertFailed()
					}
				}
			}()
			if s.log != nil {
				s.log.Println("[sched] starting task ", t.Name)
			}
			t.Run(ctx)
			if s.log != nil {
				s.log.Println("[sched] task exited ", t.Name)
			}
		}(t)
	}
	wg.Wait()
}

func errToStr(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "panic"
}
