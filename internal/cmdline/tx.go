package cmdline

import (
	"context"
	"sync"

	"pinio/errcode"
	"pinio/internal/config"
	"pinio/x/logx"
	"pinio/x/shmring"
)

// TXBuffer is the thread-safe enqueue point backing the USB TX buffer:
// multiple writers (reply lines, async change events) funnel through
// shmring.Ring, and a single drain task plays the consumer role the real
// USB ISR would. When the ring doesn't have room for a whole line, the
// unqueued remainder is dropped and a diagnostic is logged — the host
// re-syncs lost state with SW?.
type TXBuffer struct {
	mu   sync.Mutex // serialises writers: shmring.Ring has a single producer
	ring *shmring.Ring
	log  *logx.Logger
}

// NewTXBuffer returns a TXBuffer backed by a config.TXBufferSize ring.
func NewTXBuffer(log *logx.Logger) *TXBuffer {
	return &TXBuffer{ring: shmring.New(config.TXBufferSize), log: log}
}

// WriteLine enqueues s terminated with "\n\r", the wire framing used for
// every reply and multi-line response.
func (t *TXBuffer) WriteLine(s string) {
	line := []byte(s + "\n\r")
	t.mu.Lock()
	n := t.ring.TryWriteFrom(line)
	t.mu.Unlock()
	if n < len(line) && t.log != nil {
		t.log.Println("[cmdline] ", string(errcode.USBTxOverflow), ": dropped ", len(line)-n, " bytes")
	}
}

// Run drains the ring to w until ctx is cancelled, waking only on the
// ring's coalesced readiness notification.
func (t *TXBuffer) Run(ctx context.Context, w Transport) {
	buf := make([]byte, 128)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.ring.Readable():
		}
		for {
			n := t.ring.TryReadInto(buf)
			if n == 0 {
				break
			}
			_, _ = w.Write(buf[:n])
		}
	}
}
