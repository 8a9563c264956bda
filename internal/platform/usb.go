// internal/platform/usb.go
//
//go:build rp2040 || rp2350

package platform

import (
	"github.com/jangala-dev/tinygo-uartx/uartx"

	"pinio/internal/cmdline"
)

var _ cmdline.Transport = uartx.UART0

// USBTransport returns the USB-CDC virtual serial link as a
// cmdline.Transport, configuring RX-IRQ-backed buffering the same way
// the on-board UART ports are configured.
func USBTransport() cmdline.Transport {
	_ = uartx.UART0.Configure(uartx.UARTConfig{})
	return uartx.UART0
}
