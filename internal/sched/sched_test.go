package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunLaunchesEveryTaskAndWaitsForExit(t *testing.T) {
	s := New(nil, nil)

	var ran int32
	for i := 0; i < 3; i++ {
		s.Add(Task{
			Name:     "task",
			Priority: PriorityMedium,
			Run: func(ctx context.Context) {
				atomic.AddInt32(&ran, 1)
				<-ctx.Done()
			},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}

	if atomic.LoadInt32(&ran) != 3 {
		t.Fatalf("ran = %d, want 3", ran)
	}
}

type fakeFaultReporter struct{ calls int32 }

func (f *fakeFaultReporter) AssertFailed() { atomic.AddInt32(&f.calls, 1) }

// TestRunRecoversPanicAndReportsFault checks that a task panic is recovered
// and routed to the FaultReporter instead of crashing the whole process,
// while every other registered task keeps running undisturbed.
func TestRunRecoversPanicAndReportsFault(t *testing.T) {
	faults := &fakeFaultReporter{}
	s := New(nil, faults)

	var survivorRan int32
	s.Add(Task{Name: "panicker", Run: func(ctx context.Context) {
		panic("simulated fault")
	}})
	s.Add(Task{Name: "survivor", Run: func(ctx context.Context) {
		atomic.AddInt32(&survivorRan, 1)
		<-ctx.Done()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	if atomic.LoadInt32(&faults.calls) != 1 {
		t.Fatalf("AssertFailed called %d times, want 1", faults.calls)
	}
	if atomic.LoadInt32(&survivorRan) != 1 {
		t.Fatalf("expected the non-panicking task to still run")
	}
}
