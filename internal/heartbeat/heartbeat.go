// Package heartbeat drives the lowest-priority liveness indicator: every
// config.HeartbeatPeriod it advances the single lit heartbeat LED through
// the sequence 1,2,4,8 and wraps.
package heartbeat

import (
	"context"
	"time"

	"pinio/internal/config"
	"pinio/internal/hal"
)

var sequence = [4]byte{0b0001, 0b0010, 0b0100, 0b1000}

// Service owns nothing beyond the facade it drives.
type Service struct {
	hal hal.Facade
}

// New returns a heartbeat Service bound to h.
func New(h hal.Facade) *Service { return &Service{hal: h} }

// Run cycles the heartbeat mask at config.HeartbeatPeriod until ctx is done.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(config.HeartbeatPeriod)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hal.SetHeartbeatLEDs(sequence[i])
			i = (i + 1) % len(sequence)
		}
	}
}
