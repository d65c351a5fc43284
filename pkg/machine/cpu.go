package machine

import (
	"errors"
	"sync"
)

// Segment selectors installed in the GDT.
const (
	KernelCS uint16 = 0x0010
	KernelDS uint16 = 0x0018
	UserCS   uint16 = 0x0023
	UserDS   uint16 = 0x002B
)

// FlagIF is the interrupt-enable bit of EFLAGS.
const FlagIF uint32 = 0x200

// TrapFrameSize is the space a trap pushes on the kernel stack before the
// handler runs: the iret frame plus the saved general registers.
const TrapFrameSize = 17 * 4

// ErrStopped is returned for work submitted after Stop.
var ErrStopped = errors.New("machine stopped")

// NoOwner means no process owns the processor.
const NoOwner = -1

// Registers is the part of the register file the kernel saves and restores.
type Registers struct {
	EIP    uint32
	ESP    uint32
	EBP    uint32
	EFLAGS uint32
	CS     uint16
	SS     uint16
}

// TSS holds the task-state fields used on a privilege change into ring 0.
type TSS struct {
	SS0  uint16
	ESP0 uint32
}

// IretFrame is the stack frame consumed by iret when returning to ring 3.
type IretFrame struct {
	EIP    uint32
	CS     uint16
	EFLAGS uint32
	ESP    uint32
	SS     uint16
}

// CPU is the single processor of the machine.
//
// Regs, TSS and MMU may only be touched while the interrupt lock is held.
type CPU struct {
	Regs Registers
	TSS  TSS
	MMU  *MMU

	mu      sync.Mutex
	cond    *sync.Cond
	owner   int
	cpl     int
	stopped bool
}

// NewCPU creates a processor in ring 0 attached to mem.
func NewCPU(mem *Memory) *CPU {
	c := &CPU{
		MMU:   NewMMU(mem),
		owner: NoOwner,
		Regs:  Registers{CS: KernelCS, SS: KernelDS},
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Cli disables interrupts.
func (c *CPU) Cli() {
	c.mu.Lock()
}

// Sti enables interrupts and wakes every waiter so it can re-check its
// condition.
func (c *CPU) Sti() {
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Interrupt runs handler with interrupts disabled. It returns false without
// running the handler once the machine has been stopped.
func (c *CPU) Interrupt(handler func()) bool {
	c.Cli()
	defer c.Sti()
	if c.stopped {
		return false
	}
	handler()
	return true
}

// Dispatch hands the processor to pid. Interrupts must be disabled.
func (c *CPU) Dispatch(pid int) {
	c.owner = pid
}

// Owner returns the pid that owns the processor. Interrupts must be disabled.
func (c *CPU) Owner() int {
	return c.owner
}

// WaitTurn blocks until pid owns the processor. Interrupts must be disabled;
// they are enabled while waiting. It returns false if the machine stopped.
func (c *CPU) WaitTurn(pid int) bool {
	for !c.stopped && c.owner != pid {
		c.cond.Wait()
	}
	return !c.stopped
}

// Idle enables interrupts until the next critical section ends, then
// disables them again. It returns false if the machine stopped.
func (c *CPU) Idle() bool {
	if c.stopped {
		return false
	}
	c.cond.Wait()
	return !c.stopped
}

// Stop halts the machine. Every waiter returns false from WaitTurn or Idle.
func (c *CPU) Stop() {
	c.Cli()
	c.stopped = true
	c.Sti()
}

// Stopped reports whether Stop has been called.
func (c *CPU) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// CPL returns the current privilege level.
func (c *CPU) CPL() int {
	return c.cpl
}

// Iret loads f into the register file and drops to ring 3.
func (c *CPU) Iret(f IretFrame) {
	c.Regs = Registers{
		EIP:    f.EIP,
		ESP:    f.ESP,
		EBP:    f.ESP,
		EFLAGS: f.EFLAGS,
		CS:     f.CS,
		SS:     f.SS,
	}
	c.cpl = int(f.CS & 3)
}

// TrapEntry switches to the kernel stack named by the TSS, as a ring 3 to
// ring 0 trap does, and returns the interrupted user registers.
func (c *CPU) TrapEntry() Registers {
	user := c.Regs
	c.Regs.ESP = c.TSS.ESP0 - TrapFrameSize
	c.Regs.EBP = c.Regs.ESP
	c.Regs.SS = c.TSS.SS0
	c.Regs.CS = KernelCS
	c.cpl = 0
	return user
}

// Restore loads a register file saved by the scheduler.
func (c *CPU) Restore(r Registers) {
	c.Regs = r
	c.cpl = int(r.CS & 3)
}

// TrapReturn restores the user registers saved by TrapEntry.
func (c *CPU) TrapReturn(user Registers) {
	c.Regs = user
	c.cpl = int(user.CS & 3)
}
