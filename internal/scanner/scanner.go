// Package scanner implements the input-acquisition task: at a fixed 3 ms
// cadence it strobes the switch matrix, pipelines an I2C read of every
// discovered GPIO expander, hands the combined 40-byte sample to the
// vertical-counter debouncer, and delivers the resulting edge events to the
// quick-fire rule engine and the host reporter in that order.
package scanner

import (
	"context"
	"sync"
	"time"

	"pinio/internal/config"
	"pinio/internal/hal"
	"pinio/internal/rules"
	"pinio/internal/switches"
	"pinio/x/logx"
	"pinio/x/timex"
)

// EdgeReporter receives the debounced edge events produced by a scan tick,
// in ascending HwIndex order, matching the Command Parser/Reporter's role
// as a subscriber to the Switch State Store.
type EdgeReporter interface {
	ReportEdges(events []switches.EdgeEvent)
}

// WatchdogFeeder is fed once per completed scan cycle; the Supervisor
// implements it.
type WatchdogFeeder interface {
	FeedRequested()
}

type i2cAddr struct {
	channel int
	address byte
}

// Scanner owns the debouncer and the discovered-expander scan list built by
// startup probing.
type Scanner struct {
	hal      hal.Facade
	state    *switches.State
	rules    *rules.Engine
	reporter EdgeReporter
	feeder   WatchdogFeeder
	log      *logx.Logger

	deb      switches.Debouncer
	scanList []i2cAddr

	// results and triggers are sized once, from scanList, when the persistent
	// reader goroutines are started; the tick path never allocates.
	startOnce sync.Once
	stop      chan struct{}
	results   []hal.I2CResult
	triggers  []chan context.Context
	readersWG sync.WaitGroup

	mu        sync.Mutex
	errCounts map[i2cAddr]int
	degraded  map[i2cAddr]bool
}

// New returns a Scanner ready to Probe then Run. reporter and feeder may be
// nil (tests that don't care about reporting/watchdog feeding).
func New(h hal.Facade, state *switches.State, r *rules.Engine, reporter EdgeReporter, feeder WatchdogFeeder, log *logx.Logger) *Scanner {
	return &Scanner{
		hal:       h,
		state:     state,
		rules:     r,
		reporter:  reporter,
		feeder:    feeder,
		log:       log,
		errCounts: map[i2cAddr]int{},
		degraded:  map[i2cAddr]bool{},
	}
}

// Probe performs the startup probe: for each (channel, 0x40..0x47), write
// 0xFF (open-drain release, input mode) and note whether it ACKs. Addresses
// that ACK are added to the scan list.
func (s *Scanner) Probe(ctx context.Context) {
	for ch := 0; ch < config.I2CChannels; ch++ {
		for a := byte(config.I2CAddrBase); a < config.I2CAddrBase+config.I2CAddrPerChan; a++ {
			s.hal.I2CWrite(ch, a, []byte{0xFF})
			rctx, cancel := hal.ScanDeadline(ctx, config.ScanPeriod)
			res := s.hal.I2CRead(rctx, ch, a, 1)
			cancel()
			if res.Err == nil {
				s.scanList = append(s.scanList, i2cAddr{channel: ch, address: a})
			}
		}
	}
}

// Run drives the scanner task for the process lifetime at the fixed
// config.ScanPeriod cadence.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(config.ScanPeriod)
	defer ticker.Stop()

	s.ensureReaders()
	defer close(s.stop)

	tsMillis := uint32(timex.NowMs())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, tsMillis)
			tsMillis += uint32(config.ScanPeriod / time.Millisecond)
		}
	}
}

// ensureReaders spawns one long-lived goroutine per discovered expander, each
// blocked on its own trigger channel, the first time it's called. tick
// signals them and waits on readersWG instead of spawning a goroutine per
// expander per tick, keeping the 333 Hz scan path allocation-free past this
// point. The readers run for the Scanner's lifetime, independent of any
// single tick's deadline context, and stop when s.stop is closed.
func (s *Scanner) ensureReaders() {
	s.startOnce.Do(func() {
		s.stop = make(chan struct{})
		s.results = make([]hal.I2CResult, len(s.scanList))
		s.triggers = make([]chan context.Context, len(s.scanList))
		for i, a := range s.scanList {
			trigger := make(chan context.Context, 1)
			s.triggers[i] = trigger
			go s.runReader(i, a, trigger)
		}
	})
}

func (s *Scanner) runReader(i int, a i2cAddr, trigger chan context.Context) {
	for {
		select {
		case <-s.stop:
			return
		case rctx := <-trigger:
			s.results[i] = s.hal.I2CRead(rctx, a.channel, a.address, 1)
			s.readersWG.Done()
		}
	}
}

// tick is one scan-period iteration: matrix read, pipelined I2C reads,
// debounce, and delivery to the rule engine then the reporter.
func (s *Scanner) tick(ctx context.Context, tsMillis uint32) {
	s.ensureReaders()

	// Seed from the current debounced bytes so a byte that is skipped this
	// tick (I2C error, or an unused expander slot) doesn't spuriously drift
	// the debounced state.
	raw := s.state.GetAll()

	for c := 0; c < config.MatrixColumns; c++ {
		s.hal.MatrixStrobe(c)
		raw[c] = s.hal.MatrixSampleRows()
	}

	rctx, cancel := hal.ScanDeadline(ctx, config.ScanPeriod)
	defer cancel()

	s.readersWG.Add(len(s.scanList))
	for _, trigger := range s.triggers {
		trigger <- rctx
	}
	s.readersWG.Wait()

	for i, a := range s.scanList {
		byteIdx := config.MatrixBytes + byte(a.channel)*config.I2CAddrPerChan + (a.address - config.I2CAddrBase)
		res := s.results[i]
		if res.Err != nil {
			s.recordError(a)
			continue
		}
		s.clearError(a)
		if len(res.Data) > 0 {
			raw[byteIdx] = res.Data[0]
		}
	}

	events := s.deb.Apply(&raw, s.state, tsMillis)
	s.rules.Evaluate(s.state, int16(config.ScanPeriod/time.Millisecond))
	if len(events) > 0 && s.reporter != nil {
		s.reporter.ReportEdges(events)
	}
	if s.feeder != nil {
		s.feeder.FeedRequested()
	}
}

func (s *Scanner) recordError(a i2cAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errCounts[a]++
	if s.errCounts[a] >= config.I2CPersistentThreshold && !s.degraded[a] {
		s.degraded[a] = true
		if s.log != nil {
			s.log.Println("[scanner] i2c ch=", a.channel, " addr=", a.address, " degraded after ", s.errCounts[a], " consecutive errors")
		}
	}
}

func (s *Scanner) clearError(a i2cAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errCounts[a] = 0
	s.degraded[a] = false
}

// Degraded reports whether (channel, address) has crossed the persistent
// I2C-error threshold (diagnostic only; the byte keeps being skipped).
func (s *Scanner) Degraded(channel int, address byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded[i2cAddr{channel, address}]
}

// ScanList returns the addresses discovered by Probe, for diagnostics/tests.
func (s *Scanner) ScanList() []struct {
	Channel int
	Address byte
} {
	out := make([]struct {
		Channel int
		Address byte
	}, len(s.scanList))
	for i, a := range s.scanList {
		out[i] = struct {
			Channel int
			Address byte
		}{a.channel, a.address}
	}
	return out
}
