//go:build !rp2040 && !rp2350

package main

import (
	"os"
	"sync"

	"pinio/internal/cmdline"
	"pinio/internal/hal"
)

func newFacade() hal.Facade { return hal.NewSim() }

// stdioTransport stands in for the USB-CDC link on host builds: stdin
// supplies command lines, stdout receives replies. Buffered always
// reports 0, so LineReader's fallback read size applies and each pump
// blocks on os.Stdin until a line arrives — acceptable for an
// interactive host session, unlike the on-target UART's non-blocking
// Buffered/Read pair.
type stdioTransport struct {
	mu sync.Mutex
}

func newUSBTransport() cmdline.Transport { return &stdioTransport{} }

func (t *stdioTransport) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (t *stdioTransport) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (t *stdioTransport) Buffered() int               { return 0 }
