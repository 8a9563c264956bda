// Package platform wires internal/hal.Facade to concrete hardware: the
// RP2040/RP2350 machine package on-target, and an in-memory Sim on host
// builds (see internal/hal.Sim, used directly by tests).
//
//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"pinio/errcode"
	"pinio/internal/config"
	"pinio/internal/hal"
)

var _ hal.Facade = (*MCU)(nil)

// MCU implements hal.Facade against the Pico/Pico 2 machine package. The
// board exposes two hardware I2C peripherals; logical channels 0 and 2 ride
// I2C0, channels 1 and 3 ride I2C1, each pair time-shared under the mutex
// below (a channel-select mux chip is assumed downstream for the second tenant
// of each pair — see the controller's I2C channel count in the design notes).
// Buses are held behind tinygo.org/x/drivers.I2C rather than *machine.I2C so
// host-side fakes and the real peripheral satisfy the same narrow interface.
// pwmCtrl narrows machine's PWM slice handles to what SetHwPWM needs,
// avoiding a dependency on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

type MCU struct {
	i2cMu  [2]sync.Mutex
	i2c    [2]drivers.I2C
	matrix struct {
		cols [config.MatrixColumns]machine.Pin
		rows [config.MatrixRows]machine.Pin
	}
	hwPWM       [config.HwPWMChannels]pwmCtrl
	hwPWMChan   [config.HwPWMChannels]uint8
	solenoidEn  machine.Pin
	watchdogPin machine.Pin
	faultR      machine.Pin
	faultG      machine.Pin
	faultB      machine.Pin
	heartbeat   [4]machine.Pin
}

// New configures the RP2 peripherals and returns a ready Facade.
func New() *MCU {
	m := &MCU{}

	m.i2c[0] = machine.I2C0
	_ = m.i2c[0].Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	m.i2c[1] = machine.I2C1
	_ = m.i2c[1].Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C1_SDA_PIN,
		SCL:       machine.I2C1_SCL_PIN,
	})

	for c := 0; c < config.MatrixColumns; c++ {
		p := machine.Pin(c)
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.High()
		m.matrix.cols[c] = p
	}
	for r := 0; r < config.MatrixRows; r++ {
		p := machine.Pin(config.MatrixColumns + r)
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		m.matrix.rows[r] = p
	}

	m.solenoidEn = machine.Pin(26)
	m.solenoidEn.Configure(machine.PinConfig{Mode: machine.PinOutput})
	m.solenoidEn.Low()

	m.watchdogPin = machine.Pin(27)
	m.watchdogPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	m.faultR = machine.Pin(18)
	m.faultG = machine.Pin(19)
	m.faultB = machine.Pin(20)
	for _, p := range []machine.Pin{m.faultR, m.faultG, m.faultB} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	heartbeatPins := [4]machine.Pin{21, 22, 23, 24}
	for i, p := range heartbeatPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		m.heartbeat[i] = p
	}

	pwmPins := [config.HwPWMChannels]machine.Pin{2, 3, 4, 5}
	pwmSlices := [config.HwPWMChannels]pwmCtrl{machine.PWM1, machine.PWM1, machine.PWM2, machine.PWM2}
	const pwmPeriodNs = 1_000_000 // 1 kHz
	for i, slice := range pwmSlices {
		_ = slice.Configure(machine.PWMConfig{Period: pwmPeriodNs})
		m.hwPWM[i] = slice
		m.hwPWMChan[i] = uint8(pwmPins[i] & 1) // even pin -> channel A(0), odd -> B(1)
	}

	return m
}

func (m *MCU) i2cBusFor(channel int) (drivers.I2C, *sync.Mutex) {
	idx := channel % 2
	return m.i2c[idx], &m.i2cMu[idx]
}

func (m *MCU) I2CWrite(channel int, address byte, data []byte) {
	bus, mu := m.i2cBusFor(channel)
	mu.Lock()
	defer mu.Unlock()
	_ = bus.Tx(uint16(address), data, nil)
}

func (m *MCU) I2CRead(ctx context.Context, channel int, address byte, n int) hal.I2CResult {
	bus, mu := m.i2cBusFor(channel)
	done := make(chan struct{})
	buf := make([]byte, n)
	var txErr error
	go func() {
		mu.Lock()
		txErr = bus.Tx(uint16(address), nil, buf)
		mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		if txErr != nil {
			return hal.I2CResult{Err: errcode.Of(txErr)}
		}
		return hal.I2CResult{Data: buf}
	case <-ctx.Done():
		return hal.I2CResult{Err: errcode.I2CTransient}
	}
}

func (m *MCU) MatrixStrobe(col int) {
	for i, p := range m.matrix.cols {
		if i == col {
			p.Low()
		} else {
			p.High()
		}
	}
}

func (m *MCU) MatrixSampleRows() byte {
	var b byte
	for i, p := range m.matrix.rows {
		if !p.Get() {
			b |= 1 << uint(i)
		}
	}
	return b
}

func (m *MCU) SetHwPWM(channel int, value uint16) {
	if channel < 0 || channel >= len(m.hwPWM) {
		return
	}
	pwm := m.hwPWM[channel]
	top := pwm.Top()
	pwm.Set(m.hwPWMChan[channel], top*uint32(value)/uint32(config.MaxPWM))
}

func (m *MCU) SetSolenoidMaster(on bool) { m.solenoidEn.Set(on) }

func (m *MCU) WatchdogKick() {
	m.watchdogPin.High()
	time.Sleep(time.Microsecond)
	m.watchdogPin.Low()
}

func (m *MCU) WriteLEDString(channel int, data []byte) {
	bus, mu := m.i2cBusFor(channel)
	mu.Lock()
	defer mu.Unlock()
	_ = bus.Tx(0x00, data, nil)
}

func (m *MCU) SetFaultLED(code byte) {
	m.faultR.Set(code&0x1 != 0)
	m.faultG.Set(code&0x2 != 0)
	m.faultB.Set(code&0x4 != 0)
}

func (m *MCU) SetHeartbeatLEDs(mask byte) {
	for i, p := range m.heartbeat {
		p.Set(mask&(1<<uint(i)) != 0)
	}
}
