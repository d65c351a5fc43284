// Package pit models channel 0 of the programmable interval timer, the
// source of the scheduler tick.
package pit

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	// BaseHz is the oscillator frequency.
	BaseHz = 1193182
	// DefaultHz is the tick rate.
	DefaultHz = 100
	// Command selects channel 0, lobyte/hibyte access, square wave mode.
	Command = 0x36
	// DataPort and CommandPort are the I/O ports of channel 0.
	DataPort    = 0x40
	CommandPort = 0x43
)

// Timer is a programmed channel 0.
type Timer struct {
	divisor uint16
	acks    atomic.Uint64
}

// New programs the timer for hz ticks per second. Rates the divisor
// cannot express are clamped.
func New(hz int) *Timer {
	if hz <= 0 {
		hz = DefaultHz
	}
	div := BaseHz / hz
	switch {
	case div < 1:
		div = 1
	case div > 0xFFFF:
		div = 0xFFFF
	}
	return &Timer{divisor: uint16(div)}
}

// Divisor returns the reload value written to the data port.
func (t *Timer) Divisor() uint16 {
	return t.divisor
}

// Period returns the time between ticks.
func (t *Timer) Period() time.Duration {
	return time.Duration(t.divisor) * time.Second / BaseHz
}

// Ack sends end-of-interrupt for the timer line.
func (t *Timer) Ack() {
	t.acks.Add(1)
}

// Acks returns the number of acknowledged ticks.
func (t *Timer) Acks() uint64 {
	return t.acks.Load()
}

// Run calls fire every period until ctx is done or fire returns false.
func (t *Timer) Run(ctx context.Context, fire func() bool) {
	ticker := time.NewTicker(t.Period())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !fire() {
				return
			}
		}
	}
}
