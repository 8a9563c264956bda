// Package config holds the compile-time constants that size and pace the
// controller core. None of these are host-configurable: the USB protocol
// configures rules and outputs, never the firmware's own thresholds.
package config

import "time"

const (
	// Matrix geometry: 8 strobed columns x 8 sampled rows.
	MatrixColumns = 8
	MatrixRows    = 8

	// I2C GPIO expanders: 4 channels, addresses 0x40..0x47 per channel.
	I2CChannels    = 4
	I2CAddrBase    = 0x40
	I2CAddrPerChan = 8

	// HwIndex space: bytes 0-7 matrix, bytes 8-39 I2C, 40 bytes total.
	MatrixBytes = MatrixColumns
	I2CBytes    = I2CChannels * I2CAddrPerChan
	TotalBytes  = MatrixBytes + I2CBytes // 40
	TotalBits   = TotalBytes * 8         // 320

	// Vertical-counter debounce: a 2-bit saturating counter, so the
	// threshold is fixed at 3 consecutive disagreements.
	DebounceThreshold = 3

	// Scanner cadence: ~333 Hz.
	ScanPeriod = 3 * time.Millisecond

	// BCM bit depth: N=4 -> 15-step PWM, 15 ms full frame.
	BCMBitDepth = 4
	MaxPWM      = (1 << BCMBitDepth) - 1 // 15

	// Capacity of the compact-and-seal PclOutputByte array:
	// 4 channels x up to 8 addresses each.
	OutWriterListLen = I2CChannels * I2CAddrPerChan

	// Quick-fire rule table size.
	MaxQuickRules = 64

	// Hardware PWM channels (flashers), outside the BCM engine.
	HwPWMChannels = 4

	// Watchdog period.
	WatchdogPeriod = 1 * time.Second

	// Heartbeat LED cadence.
	HeartbeatPeriod = 300 * time.Millisecond

	// I2C persistent-error threshold (consecutive failures) before a
	// channel/address is marked degraded.
	I2CPersistentThreshold = 5

	// Host protocol identity string, returned by *IDN?.
	Identity = "PINIO,CTRL-CORE,1.0"

	// USB TX buffer (shmring) capacity in bytes; must be a power of two.
	TXBufferSize = 256
)
