// Package hal defines the narrow, typed hardware-abstraction facade the
// core logic is built against. It prescribes no particular MCU, peripheral
// driver API, or operating system: internal/platform supplies a concrete
// TinyGo/machine-backed implementation; tests use an in-memory Sim.
package hal

import (
	"context"
	"time"
)

// I2CResult is the outcome of an asynchronous I2C transfer.
type I2CResult struct {
	Data []byte
	Err  error
}

// Facade is the set of hardware operations the core depends on. All
// methods are safe to call concurrently from any task; the implementation
// guarantees one outstanding transaction per I2C channel.
type Facade interface {
	// I2CWrite writes data to (channel, address). It is fire-and-forget from
	// the caller's perspective: a failed write is not reported or retried
	// (I2C failures surface via I2CRead and the Scanner's error accounting),
	// matching the BCM engine's "scanner observes the latched value next
	// cycle" design.
	I2CWrite(channel int, address byte, data []byte)

	// I2CRead issues a read and blocks the calling goroutine (not an ISR)
	// until it completes or ctx is done; callers pass a one-scan-period
	// deadline.
	I2CRead(ctx context.Context, channel int, address byte, n int) I2CResult

	// MatrixStrobe drives one column low, all others released.
	MatrixStrobe(col int)

	// MatrixSampleRows reads the 8 row inputs after a strobe has settled.
	MatrixSampleRows() byte

	// SetHwPWM drives one of the four fixed hardware-PWM channels.
	SetHwPWM(channel int, value uint16)

	// SetSolenoidMaster gates all solenoid power; called with false on any
	// latched fault. This is the single point of physical safety.
	SetSolenoidMaster(on bool)

	// WatchdogKick services the hardware watchdog once. The Supervisor
	// calls it after it has seen and cleared its own feed-requested flag.
	WatchdogKick()

	// WriteLEDString pushes raw bytes to the addressable LED string on the
	// given channel. The on-wire shift format is a hardware concern this
	// module does not define further.
	WriteLEDString(channel int, data []byte)

	// SetFaultLED drives the red/green/blue fault-indicator lines.
	SetFaultLED(code byte)

	// SetHeartbeatLEDs drives the four heartbeat indicator lines (LEDs
	// 1-4), one bit per LED, for the heartbeat task's liveness cadence.
	SetHeartbeatLEDs(mask byte)
}

// ScanDeadline bounds a single pipelined I2C read within one scan period.
func ScanDeadline(parent context.Context, period time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, period)
}
