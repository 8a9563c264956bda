// Command pinio is the firmware core of a pinball/arcade I/O controller:
// it bridges a host PC over USB-CDC to a switch matrix, a bank of I2C GPIO
// expanders, four hardware-PWM channels and addressable LED strings. main
// wires the cooperating fixed-cadence tasks (scan+rules, BCM output,
// heartbeat, watchdog, USB RX/TX) the scheduler glue runs for the process
// lifetime.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"pinio/internal/bcm"
	"pinio/internal/cmdline"
	"pinio/internal/heartbeat"
	"pinio/internal/rules"
	"pinio/internal/scanner"
	"pinio/internal/sched"
	"pinio/internal/supervisor"
	"pinio/internal/switches"
	"pinio/x/logx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logx.New()
	log.Println("[main] bootstrapping pinio controller core")

	h := newFacade()

	var state switches.State
	bcmEngine := bcm.New(h)
	rulesEngine := rules.New(bcmEngine, h)
	sup := supervisor.New(h, log)
	tx := cmdline.NewTXBuffer(log)
	parser := cmdline.New(rulesEngine, bcmEngine, h, &state, tx)

	sc := scanner.New(h, &state, rulesEngine, parser, sup, log)

	log.Println("[main] probing I2C expander addresses")
	sc.Probe(ctx)

	usb := newUSBTransport()
	lineReader := cmdline.NewLineReader(usb, parser)

	s := sched.New(log, sup)
	s.Add(sched.Task{Name: "scan+rules", Priority: sched.PriorityMedium, Run: sc.Run})
	s.Add(sched.Task{Name: "bcm-output", Priority: sched.PriorityMedium, Run: bcmEngine.RunTask})
	s.Add(sched.Task{Name: "heartbeat", Priority: sched.PriorityLowest, Run: heartbeat.New(h).Run})
	s.Add(sched.Task{Name: "watchdog", Priority: sched.PriorityLowest, Run: sup.RunWatchdog})
	s.Add(sched.Task{Name: "usb-tx", Priority: sched.PriorityLowest, Run: func(taskCtx context.Context) {
		tx.Run(taskCtx, usb)
	}})
	s.Add(sched.Task{Name: "usb-rx", Priority: sched.PriorityLowest, Run: func(taskCtx context.Context) {
		runUSBRX(taskCtx, lineReader)
	}})

	log.Println("[main] entering scheduler loop")
	s.Run(ctx)
}

// runUSBRX is the event-driven-in-spirit USB RX task: it drains whatever
// the transport currently has buffered and sleeps briefly when idle,
// standing in for the real "await task notification" suspension point on
// a transport that has no notification channel of its own.
func runUSBRX(ctx context.Context, lr *cmdline.LineReader) {
	const idleBackoff = 5 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if lr.PumpOnce() == 0 {
				time.Sleep(idleBackoff)
			}
		}
	}
}
