package process

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"runtime"
	"time"

	"tinyos/internal/cmdline"
	"tinyos/internal/idgen"
	"tinyos/pkg/abi"
	"tinyos/pkg/fd"
	"tinyos/pkg/machine"
	"tinyos/pkg/tracing"
	"tinyos/pkg/vfs"
)

// image is a validated executable ready to be copied into a process.
type image struct {
	name  string
	args  string
	data  []byte
	entry uint32
}

// resolve performs the checks of execute that happen before a process slot
// is touched.
func (k *Kernel) resolve(command string) (*image, error) {
	name, args, err := cmdline.Split(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCommand, err)
	}
	d, err := k.store.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotExecutable, err)
	}
	if d.Type != vfs.TypeRegular {
		return nil, fmt.Errorf("%w: %q is a %v", ErrNotExecutable, name, d.Type)
	}
	if d.Length < abi.HeaderSize || abi.LoadAddress+uint64(d.Length) > abi.ImageTop {
		return nil, fmt.Errorf("%w: %q has length %d", ErrNotExecutable, name, d.Length)
	}
	data, err := vfs.ReadFile(k.store, d)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotExecutable, err)
	}
	if len(data) < abi.HeaderSize || !bytes.Equal(data[:len(abi.Magic)], abi.Magic[:]) {
		return nil, fmt.Errorf("%w: %q has no executable signature", ErrNotExecutable, name)
	}
	return &image{
		name:  name,
		args:  args,
		data:  data,
		entry: binary.LittleEndian.Uint32(data[abi.EntryOffset:]),
	}, nil
}

// spawn loads command as a new process on terminal and transfers the
// processor to it. A nil parent makes the process the terminal's root.
// Interrupts must be disabled.
func (k *Kernel) spawn(terminal int, command string, parent *PCB) (pcb *PCB, err error) {
	_, span := tracing.StartSpan(k.ctx, "process.execute")
	span.WithInt("terminal", terminal)
	defer func() { tracing.EndSpan(span, err) }()

	img, err := k.resolve(command)
	if err != nil {
		return nil, err
	}
	child, err := k.procs.Alloc()
	if err != nil {
		return nil, err
	}

	k.pages.MapProcess(child.PID)
	if k.pages.VideoMapped() {
		k.pages.UnmapVideo()
	}
	if err := k.cpu.MMU.Write(abi.LoadAddress, img.data, machine.AccessWrite); err != nil {
		panic(fmt.Sprintf("process: loading %q into pid %d: %v", img.name, child.PID, err))
	}

	child.ParentPID = child.PID
	if parent != nil {
		child.ParentPID = parent.PID
	}
	child.ID = idgen.New()
	child.Terminal = terminal
	child.Command = img.name
	child.Args = []byte(img.args)
	child.ESP0 = KernelStackTop(child.PID)
	child.SS0 = machine.KernelDS
	child.Files = fd.NewTable(k.ns, k.console.StdinOps(), k.console.StdoutOps())
	child.StartedAt = time.Now()
	child.mustTransition(StateRunning)

	if parent != nil {
		parent.Saved = k.cpu.Regs
		parent.mustTransition(StateWaiting)
		parent.childDone = false
	}

	k.cpu.TSS = machine.TSS{SS0: child.SS0, ESP0: child.ESP0}
	k.cpu.Iret(machine.IretFrame{
		EIP:    img.entry,
		CS:     machine.UserCS,
		EFLAGS: machine.FlagIF,
		ESP:    abi.UserStack,
		SS:     machine.UserDS,
	})
	k.terms[terminal].pid = child.PID
	k.cpu.Dispatch(child.PID)

	prog := k.programs.Lookup(img.entry)
	k.wg.Add(1)
	go k.run(child, prog)

	span.WithAttributes(map[string]string{"command": img.name, "id": child.ID}).WithInt("pid", child.PID)
	k.logger.Info("execute",
		"pid", child.PID,
		"parent", child.ParentPID,
		"terminal", terminal,
		"command", img.name,
		"id", child.ID,
	)
	return child, nil
}

// execute runs command as a child of p and blocks until it halts.
// Interrupts must be disabled and p must own the processor.
func (k *Kernel) execute(p *PCB, command string) (int32, error) {
	if _, err := k.spawn(p.Terminal, command, p); err != nil {
		return -1, err
	}
	k.waitUntil(p, func() bool { return p.childDone })
	return p.childStatus, nil
}

// halt terminates p with status and hands the processor to its parent, or
// starts a new root shell. It never returns to the caller's goroutine.
// Interrupts must be disabled and p must own the processor.
func (k *Kernel) halt(p *PCB, status int32) {
	_, span := tracing.StartSpan(k.ctx, "process.halt")
	span.WithAttributes(map[string]string{"command": p.Command, "id": p.ID}).
		WithInt("pid", p.PID).
		WithInt("status", int(status))
	tracing.EndSpan(span, nil)
	k.logger.Info("halt",
		"pid", p.PID,
		"parent", p.ParentPID,
		"terminal", p.Terminal,
		"command", p.Command,
		"status", status,
		"runtime", time.Since(p.StartedAt),
	)

	p.Files.CloseAll(caller{k: k, p: p})
	if p.Vidmap {
		k.pages.UnmapVideo()
		p.Vidmap = false
	}

	if p.IsRoot() {
		terminal := p.Terminal
		p.mustTransition(StateFree)
		k.procs.Free(p.PID)
		if _, err := k.spawn(terminal, k.shell, nil); err != nil {
			k.logger.Error("restarting shell", "terminal", terminal, "error", err)
			k.terms[terminal] = terminalSlot{pid: NoPID}
			k.cpu.Dispatch(machine.NoOwner)
		}
		runtime.Goexit()
	}

	parent := k.procs.Get(p.ParentPID)
	if parent == nil {
		panic(fmt.Sprintf("process: %v has no parent %d", p, p.ParentPID))
	}
	k.pages.MapProcess(parent.PID)
	if parent.Vidmap {
		k.pages.MapVideo(k.console.Terminal(parent.Terminal).Video())
	}
	k.cpu.TSS = machine.TSS{SS0: parent.SS0, ESP0: parent.ESP0}
	k.cpu.Restore(parent.Saved)
	k.terms[parent.Terminal].pid = parent.PID

	parent.childStatus = status
	parent.childDone = true
	parent.mustTransition(StateRunning)

	p.mustTransition(StateFree)
	k.procs.Free(p.PID)
	k.cpu.Dispatch(parent.PID)
	runtime.Goexit()
}
