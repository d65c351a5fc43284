// Package rtc models the real-time clock periodic interrupt and the
// descriptor operations of the rtc device file.
package rtc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
	"time"

	"tinyos/pkg/fd"
)

const (
	// DefaultHz is the rate after open.
	DefaultHz = 2
	// MinHz and MaxHz bound the programmable rate.
	MinHz = 2
	MaxHz = 1024

	// RegisterA and RegisterB are the CMOS index ports' register numbers
	// with NMI disabled.
	RegisterA = 0x8A
	RegisterB = 0x8B
)

// ErrInvalidRate is returned for a rate that is not a power of two in
// [MinHz, MaxHz].
var ErrInvalidRate = errors.New("rtc: invalid rate")

// RateSelect returns the register A rate bits producing hz from the
// 32768Hz base: hz = 32768 >> (rate - 1).
func RateSelect(hz int) (uint8, error) {
	if hz < MinHz || hz > MaxHz || bits.OnesCount(uint(hz)) != 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRate, hz)
	}
	return uint8(16 - bits.TrailingZeros(uint(hz))), nil
}

// Device is the clock. Rate and the interrupt count are safe for
// concurrent use.
type Device struct {
	hz    atomic.Int32
	ticks atomic.Uint64
}

// New creates a device running at DefaultHz.
func New() *Device {
	d := &Device{}
	d.hz.Store(DefaultHz)
	return d
}

// SetRate reprograms the periodic rate.
func (d *Device) SetRate(hz int) error {
	if _, err := RateSelect(hz); err != nil {
		return err
	}
	d.hz.Store(int32(hz))
	return nil
}

// Rate returns the programmed rate in Hz.
func (d *Device) Rate() int {
	return int(d.hz.Load())
}

// Interrupt records one periodic interrupt. Reading register C to
// acknowledge is implied.
func (d *Device) Interrupt() {
	d.ticks.Add(1)
}

// Ticks returns the number of interrupts so far.
func (d *Device) Ticks() uint64 {
	return d.ticks.Load()
}

// Run calls fire at the programmed rate until ctx is done or fire returns
// false. Rate changes take effect on the next period.
func (d *Device) Run(ctx context.Context, fire func() bool) {
	for {
		timer := time.NewTimer(time.Second / time.Duration(d.Rate()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !fire() {
			return
		}
	}
}

// Ops returns the descriptor operations of the rtc file.
func (d *Device) Ops() fd.Operations {
	return ops{dev: d}
}

type ops struct {
	dev *Device
}

// Open resets the rate to DefaultHz.
func (o ops) Open(fd.Caller, *fd.Descriptor) error {
	return o.dev.SetRate(DefaultHz)
}

// Close keeps the current rate.
func (ops) Close(fd.Caller, *fd.Descriptor) error { return nil }

// Read blocks until the next interrupt.
func (o ops) Read(c fd.Caller, _ *fd.Descriptor, _ []byte) (int, error) {
	start := o.dev.Ticks()
	c.WaitUntil(func() bool { return o.dev.Ticks() != start })
	return 0, nil
}

// Write takes a 4-byte little-endian rate.
func (o ops) Write(_ fd.Caller, _ *fd.Descriptor, buf []byte) (int, error) {
	if len(buf) != 4 {
		return -1, fmt.Errorf("%w: %d byte argument", ErrInvalidRate, len(buf))
	}
	if err := o.dev.SetRate(int(binary.LittleEndian.Uint32(buf))); err != nil {
		return -1, err
	}
	return 0, nil
}
