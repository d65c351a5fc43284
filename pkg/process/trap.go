package process

import (
	"errors"
	"runtime"

	"tinyos/pkg/abi"
	"tinyos/pkg/machine"
)

var errNoEntry = errors.New("no code at entry point")

// trap is the abi.Trap handed to a process's program.
type trap struct {
	k *Kernel
	p *PCB
}

// caller adapts a process to the descriptor layer.
type caller struct {
	k *Kernel
	p *PCB
}

func (c caller) WaitUntil(ready func() bool) { c.k.waitUntil(c.p, ready) }

func (c caller) Terminal() int { return c.p.Terminal }

// run is the body of a process goroutine.
func (k *Kernel) run(p *PCB, prog abi.Program) {
	defer k.wg.Done()
	defer func() {
		r := recover()
		if r == nil {
			// Normal return, or runtime.Goexit from halt or shutdown.
			return
		}
		k.fault(p, machine.FromPanic(r))
	}()

	k.cpu.Cli()
	ok := k.cpu.WaitTurn(p.PID)
	k.cpu.Sti()
	if !ok {
		return
	}

	if prog == nil {
		machine.Raise(machine.InvalidOpcode, errNoEntry)
	}
	prog(&trap{k: k, p: p})
	k.exit(p, 0)
}

// exit halts p when its program returns.
func (k *Kernel) exit(p *PCB, status int32) {
	k.cpu.Cli()
	defer k.cpu.Sti()
	if !k.cpu.WaitTurn(p.PID) {
		runtime.Goexit()
	}
	k.halt(p, status)
}

// fault reports exc on p's terminal and halts p with ExceptionStatus.
func (k *Kernel) fault(p *PCB, exc *machine.Exception) {
	k.cpu.Cli()
	defer k.cpu.Sti()
	if !k.cpu.WaitTurn(p.PID) {
		return
	}
	term := k.console.Terminal(p.Terminal)
	term.Write([]byte(exc.Vector.String()))
	term.Putc('\n')
	k.logger.Warn("exception",
		"pid", p.PID,
		"terminal", p.Terminal,
		"command", p.Command,
		"vector", uint8(exc.Vector),
		"error", exc,
	)
	k.halt(p, abi.ExceptionStatus)
}

// waitUntil spins with interrupts enabled until ready holds while p owns
// the processor. Interrupts must be disabled.
func (k *Kernel) waitUntil(p *PCB, ready func() bool) {
	for {
		if !k.cpu.WaitTurn(p.PID) {
			runtime.Goexit()
		}
		if ready() {
			return
		}
		if !k.cpu.Idle() {
			runtime.Goexit()
		}
	}
}

// Syscall implements int 0x80.
func (t *trap) Syscall(num, a, b, c uint32) int32 {
	k, p := t.k, t.p
	k.cpu.Cli()
	defer k.cpu.Sti()
	if !k.cpu.WaitTurn(p.PID) {
		runtime.Goexit()
	}

	p.User = k.cpu.TrapEntry()
	ret, err := k.dispatch(p, num, a, b, c)
	if err != nil {
		k.logger.Debug("syscall failed",
			"pid", p.PID,
			"syscall", num,
			"error", err,
		)
		ret = -1
	}
	k.cpu.TrapReturn(p.User)
	return ret
}

// Load reads user memory.
func (t *trap) Load(va uint32, buf []byte) {
	k := t.k
	k.cpu.Cli()
	defer k.cpu.Sti()
	if !k.cpu.WaitTurn(t.p.PID) {
		runtime.Goexit()
	}
	if err := k.cpu.MMU.Read(va, buf, machine.AccessUser); err != nil {
		panic(machine.FromPanic(err))
	}
}

// Store writes user memory.
func (t *trap) Store(va uint32, data []byte) {
	k := t.k
	k.cpu.Cli()
	defer k.cpu.Sti()
	if !k.cpu.WaitTurn(t.p.PID) {
		runtime.Goexit()
	}
	if err := k.cpu.MMU.Write(va, data, machine.AccessUser|machine.AccessWrite); err != nil {
		panic(machine.FromPanic(err))
	}
}
