package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tinyos/internal/idgen"
	"tinyos/pkg/abi"
	"tinyos/pkg/fd"
	"tinyos/pkg/machine"
	"tinyos/pkg/paging"
	"tinyos/pkg/pit"
	"tinyos/pkg/pty"
	"tinyos/pkg/rtc"
	"tinyos/pkg/vfs"
)

// Lifecycle errors.
var (
	ErrBadCommand        = errors.New("bad command")
	ErrNotExecutable     = errors.New("not executable")
	ErrNoFreeProcessSlot = errors.New("no free process slot")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrNotBooted         = errors.New("terminal 0 did not start")
)

const (
	// MaxTerminals is the number of terminals the console can drive.
	MaxTerminals = 3
	// DefaultShell is the program started as each terminal's root.
	DefaultShell = "shell"

	physicalMemory = paging.ProcessBase0 + MaxProcesses*machine.LargePageSize
)

// Programs resolves an executable's entry point to its code.
type Programs interface {
	Lookup(entry uint32) abi.Program
}

type options struct {
	logger    *slog.Logger
	terminals int
	shell     string
	timerHz   int
	rtcHz     int
}

// Option configures a Kernel.
type Option func(*options)

// WithLogger sets the kernel logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTerminals sets the number of terminals, 1 to 3.
func WithTerminals(n int) Option {
	return func(o *options) { o.terminals = n }
}

// WithShell sets the program started as each terminal's root.
func WithShell(name string) Option {
	return func(o *options) { o.shell = name }
}

// WithTimerHz sets the scheduler tick rate used by Boot.
func WithTimerHz(hz int) Option {
	return func(o *options) { o.timerHz = hz }
}

// WithRTCHz sets the initial RTC rate.
func WithRTCHz(hz int) Option {
	return func(o *options) { o.rtcHz = hz }
}

type terminalSlot struct {
	pid     int
	started bool
}

// Kernel owns the machine and every process on it.
type Kernel struct {
	// ID identifies this boot.
	ID string

	cpu      *machine.CPU
	mem      *machine.Memory
	pages    *paging.Mapper
	procs    *Table
	console  *pty.Console
	rtc      *rtc.Device
	pit      *pit.Timer
	store    vfs.Store
	ns       *fd.Namespace
	programs Programs
	logger   *slog.Logger
	shell    string

	terms   []terminalSlot
	current int
	visits  []uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a kernel over store. Nothing runs until Boot or the first
// TimerInterrupt.
func New(store vfs.Store, programs Programs, opts ...Option) *Kernel {
	o := options{
		logger:    slog.Default(),
		terminals: MaxTerminals,
		shell:     DefaultShell,
		timerHz:   pit.DefaultHz,
		rtcHz:     rtc.DefaultHz,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.terminals < 1 || o.terminals > MaxTerminals {
		o.terminals = MaxTerminals
	}

	mem := machine.NewMemory(physicalMemory)
	cpu := machine.NewCPU(mem)
	dev := rtc.New()
	if err := dev.SetRate(o.rtcHz); err != nil {
		o.logger.Warn("rtc rate rejected, using default", "hz", o.rtcHz, "error", err)
	}

	k := &Kernel{
		ID:       idgen.New(),
		cpu:      cpu,
		mem:      mem,
		pages:    paging.New(cpu.MMU, MaxProcesses, o.terminals),
		procs:    NewTable(MaxProcesses),
		console:  pty.NewConsole(mem, o.terminals),
		rtc:      dev,
		pit:      pit.New(o.timerHz),
		store:    store,
		ns:       &fd.Namespace{Store: store, RTC: dev.Ops()},
		programs: programs,
		logger:   o.logger,
		shell:    o.shell,
		terms:    make([]terminalSlot, o.terminals),
		current:  o.terminals - 1,
		visits:   make([]uint64, o.terminals),
		ctx:      context.Background(),
	}
	for i := range k.terms {
		k.terms[i].pid = NoPID
	}
	k.logger = k.logger.With("boot", k.ID)
	return k
}

// Boot starts terminal 0 and the timer and RTC sources. The remaining
// terminals start on their first tick.
func (k *Kernel) Boot(ctx context.Context) error {
	if !k.TimerInterrupt() {
		return fmt.Errorf("boot: %w", machine.ErrStopped)
	}
	started := false
	k.cpu.Interrupt(func() { started = k.terms[0].started })
	if !started {
		return ErrNotBooted
	}

	k.ctx, k.cancel = context.WithCancel(ctx)
	k.wg.Add(2)
	go func() {
		defer k.wg.Done()
		k.pit.Run(k.ctx, k.TimerInterrupt)
	}()
	go func() {
		defer k.wg.Done()
		k.rtc.Run(k.ctx, k.RTCInterrupt)
	}()
	k.logger.Info("kernel booted", "terminals", len(k.terms), "tick", k.pit.Period())
	return nil
}

// Shutdown stops the machine and waits for every process and interrupt
// source to unwind.
func (k *Kernel) Shutdown() {
	if k.cancel != nil {
		k.cancel()
	}
	k.cpu.Stop()
	k.wg.Wait()
	k.logger.Info("kernel stopped")
}

// TimerInterrupt delivers one PIT tick. It reports false once the machine
// has stopped.
func (k *Kernel) TimerInterrupt() bool {
	return k.cpu.Interrupt(k.tick)
}

// KeyboardInterrupt delivers one scancode to the visible terminal.
func (k *Kernel) KeyboardInterrupt(code byte) bool {
	return k.cpu.Interrupt(func() {
		if !k.console.Keystroke(code) {
			return
		}
		// The visible terminal changed, so the video page of the mapped
		// process may have moved.
		if p := k.procs.Get(k.cpu.Owner()); p != nil && p.Vidmap {
			k.pages.MapVideo(k.console.Terminal(p.Terminal).Video())
		}
	})
}

// RTCInterrupt delivers one RTC tick.
func (k *Kernel) RTCInterrupt() bool {
	return k.cpu.Interrupt(k.rtc.Interrupt)
}

// Console returns the terminals.
func (k *Kernel) Console() *pty.Console {
	return k.console
}

// CPU returns the processor.
func (k *Kernel) CPU() *machine.CPU {
	return k.cpu
}

// Pages returns the address-space mapper.
func (k *Kernel) Pages() *paging.Mapper {
	return k.pages
}

// RTC returns the real-time clock.
func (k *Kernel) RTC() *rtc.Device {
	return k.rtc
}

// Inspect runs fn with interrupts disabled, for callers that need a
// consistent view of kernel state.
func (k *Kernel) Inspect(fn func()) bool {
	return k.cpu.Interrupt(fn)
}

// Process returns a copy of pid's control block.
func (k *Kernel) Process(pid int) (PCB, bool) {
	var (
		pcb PCB
		ok  bool
	)
	k.cpu.Interrupt(func() {
		if p := k.procs.Get(pid); p != nil {
			pcb, ok = *p, true
		}
	})
	return pcb, ok
}

// Live returns the number of allocated process slots.
func (k *Kernel) Live() int {
	n := 0
	k.cpu.Interrupt(func() { n = k.procs.Live() })
	return n
}

// ActivePID returns the active process of terminal t, or NoPID.
func (k *Kernel) ActivePID(t int) int {
	pid := NoPID
	k.cpu.Interrupt(func() { pid = k.terms[t].pid })
	return pid
}

// Visits returns how many times each terminal has been scheduled.
func (k *Kernel) Visits() []uint64 {
	out := make([]uint64, len(k.visits))
	k.cpu.Interrupt(func() { copy(out, k.visits) })
	return out
}

// Screen returns the text of terminal t.
func (k *Kernel) Screen(t int) []string {
	var lines []string
	k.cpu.Interrupt(func() { lines = k.console.Terminal(t).Screen().Lines() })
	return lines
}
