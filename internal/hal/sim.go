package hal

import (
	"context"
	"sync"
)

// Sim is an in-memory Facade for host-side tests. It keeps the current
// latch value for every (channel, address) the core writes, and lets tests
// program the matrix/I2C read-back values the core will observe.
type Sim struct {
	mu sync.Mutex

	i2cLatch  map[simAddr][]byte
	i2cRead   map[simAddr][]byte // programmed read-back; else last latch, else 0xFF
	i2cWrites []SimWrite

	matrixCols [8]byte // row bits observed for each strobed column
	strobed    int

	hwPWM [4]uint16

	solenoidMaster bool
	ledStrings     map[int][]byte
	faultCode      byte
	heartbeatMask  byte
	watchdogKicks  int
}

type simAddr struct {
	channel int
	address byte
}

// SimWrite records one I2CWrite call, in order.
type SimWrite struct {
	Channel int
	Address byte
	Data    []byte
}

// NewSim returns a ready-to-use simulated facade.
func NewSim() *Sim {
	return &Sim{
		i2cLatch:   map[simAddr][]byte{},
		i2cRead:    map[simAddr][]byte{},
		ledStrings: map[int][]byte{},
	}
}

func (s *Sim) I2CWrite(channel int, address byte, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), data...)
	s.i2cLatch[simAddr{channel, address}] = cp
	s.i2cWrites = append(s.i2cWrites, SimWrite{Channel: channel, Address: address, Data: cp})
}

func (s *Sim) I2CRead(ctx context.Context, channel int, address byte, n int) I2CResult {
	if err := ctx.Err(); err != nil {
		return I2CResult{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if programmed, ok := s.i2cRead[simAddr{channel, address}]; ok {
		return I2CResult{Data: programmed}
	}
	if latched, ok := s.i2cLatch[simAddr{channel, address}]; ok {
		return I2CResult{Data: latched}
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = 0xFF
	}
	return I2CResult{Data: out}
}

func (s *Sim) MatrixStrobe(col int) {
	s.mu.Lock()
	s.strobed = col
	s.mu.Unlock()
}

func (s *Sim) MatrixSampleRows() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matrixCols[s.strobed]
}

func (s *Sim) SetHwPWM(channel int, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel >= 0 && channel < len(s.hwPWM) {
		s.hwPWM[channel] = value
	}
}

func (s *Sim) SetSolenoidMaster(on bool) {
	s.mu.Lock()
	s.solenoidMaster = on
	s.mu.Unlock()
}

func (s *Sim) WatchdogKick() {
	s.mu.Lock()
	s.watchdogKicks++
	s.mu.Unlock()
}

func (s *Sim) WriteLEDString(channel int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledStrings[channel] = append([]byte(nil), data...)
}

func (s *Sim) SetFaultLED(code byte) {
	s.mu.Lock()
	s.faultCode = code
	s.mu.Unlock()
}

func (s *Sim) SetHeartbeatLEDs(mask byte) {
	s.mu.Lock()
	s.heartbeatMask = mask
	s.mu.Unlock()
}

// --- test helpers ---

// SetMatrixRow programs the row byte returned when column col is strobed.
func (s *Sim) SetMatrixRow(col int, rows byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matrixCols[col] = rows
}

// SetI2CReadBack programs the bytes returned by I2CRead for (channel, address).
func (s *Sim) SetI2CReadBack(channel int, address byte, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.i2cRead[simAddr{channel, address}] = append([]byte(nil), data...)
}

// LastWrite returns the most recent I2CWrite to (channel, address), if any.
func (s *Sim) LastWrite(channel int, address byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.i2cLatch[simAddr{channel, address}]
	return v, ok
}

// Writes returns every I2CWrite observed so far, in order.
func (s *Sim) Writes() []SimWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SimWrite(nil), s.i2cWrites...)
}

func (s *Sim) SolenoidMaster() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solenoidMaster
}

func (s *Sim) HwPWM(channel int) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hwPWM[channel]
}

func (s *Sim) WatchdogKicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchdogKicks
}

// FaultLED returns the last code passed to SetFaultLED.
func (s *Sim) FaultLED() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faultCode
}

// HeartbeatLEDs returns the last mask passed to SetHeartbeatLEDs.
func (s *Sim) HeartbeatLEDs() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeatMask
}
