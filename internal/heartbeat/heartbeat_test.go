package heartbeat

import (
	"context"
	"testing"
	"time"

	"pinio/internal/config"
	"pinio/internal/hal"
)

func TestRunCyclesSequence(t *testing.T) {
	sim := hal.NewSim()
	svc := New(sim)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	defer cancel()

	time.Sleep(config.HeartbeatPeriod + config.HeartbeatPeriod/2)

	mask := sim.HeartbeatLEDs()
	found := false
	for _, want := range sequence {
		if mask == want {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("HeartbeatLEDs() = %08b, want one of %v", mask, sequence)
	}
}
