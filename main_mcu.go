//go:build rp2040 || rp2350

package main

import (
	"pinio/internal/cmdline"
	"pinio/internal/hal"
	"pinio/internal/platform"
)

func newFacade() hal.Facade             { return platform.New() }
func newUSBTransport() cmdline.Transport { return platform.USBTransport() }
