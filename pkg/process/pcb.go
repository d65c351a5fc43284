package process

import (
	"fmt"
	"time"

	"tinyos/pkg/fd"
	"tinyos/pkg/machine"
)

const (
	// MaxProcesses is the size of the process table.
	MaxProcesses = 6
	// KernelStackSize is the size of each kernel stack.
	KernelStackSize = 8 << 10
	// KernelStackBase is the address the kernel stacks grow down from.
	KernelStackBase = 8 << 20
	// NoPID marks a terminal without a process.
	NoPID = -1
)

// KernelStackTop returns esp0 for pid.
func KernelStackTop(pid int) uint32 {
	return KernelStackBase - uint32(pid)*KernelStackSize - 4
}

// FromStack returns the pid owning the kernel stack that contains esp.
func FromStack(esp uint32) int {
	return int((KernelStackBase - 1 - esp) / KernelStackSize)
}

// PCB is a process control block.
type PCB struct {
	// PID is the slot index in the process table.
	PID int
	// ParentPID is the pid that called execute. Equal to PID for a
	// terminal's root shell.
	ParentPID int
	// ID is unique across the kernel's lifetime, unlike PID.
	ID string
	// Terminal is the index of the terminal the process belongs to.
	Terminal int
	// Command is the executable name.
	Command string
	// Args is the argument string, at most 128 bytes.
	Args []byte
	// State is the lifecycle state.
	State State
	// Saved holds the kernel context while the process is not running.
	Saved machine.Registers
	// User holds the user context while the process is inside a trap.
	User machine.Registers
	// ESP0 and SS0 are loaded into the TSS whenever the process runs.
	ESP0 uint32
	SS0  uint16
	// Files is the descriptor table.
	Files *fd.Table
	// Vidmap is set once the process has mapped video memory.
	Vidmap bool
	// StartedAt is when execute loaded the process.
	StartedAt time.Time

	childDone   bool
	childStatus int32
}

// IsRoot reports whether p is a terminal's root shell.
func (p *PCB) IsRoot() bool {
	return p.PID == p.ParentPID
}

func (p *PCB) String() string {
	return fmt.Sprintf("%s[%d]", p.Command, p.PID)
}

// Table is the fixed-capacity process table. Slots are indexed by pid and
// never move.
type Table struct {
	slots [MaxProcesses]PCB
	limit int
}

// NewTable creates a table that hands out pids in [0, limit).
func NewTable(limit int) *Table {
	if limit <= 0 || limit > MaxProcesses {
		limit = MaxProcesses
	}
	t := &Table{limit: limit}
	for i := range t.slots {
		t.slots[i] = PCB{PID: i, State: StateFree}
	}
	return t
}

// Alloc claims the lowest free slot.
func (t *Table) Alloc() (*PCB, error) {
	for i := 0; i < t.limit; i++ {
		if t.slots[i].State == StateFree {
			t.slots[i] = PCB{PID: i, State: StateFree}
			return &t.slots[i], nil
		}
	}
	return nil, ErrNoFreeProcessSlot
}

// Get returns the live process pid, or nil.
func (t *Table) Get(pid int) *PCB {
	if pid < 0 || pid >= t.limit || t.slots[pid].State == StateFree {
		return nil
	}
	return &t.slots[pid]
}

// Free releases the slot of pid.
func (t *Table) Free(pid int) {
	t.slots[pid] = PCB{PID: pid, State: StateFree}
}

// Live returns the number of allocated slots.
func (t *Table) Live() int {
	n := 0
	for i := 0; i < t.limit; i++ {
		if t.slots[i].State != StateFree {
			n++
		}
	}
	return n
}

// Full reports whether every slot is allocated.
func (t *Table) Full() bool {
	return t.Live() == t.limit
}

// Limit returns the number of slots.
func (t *Table) Limit() int {
	return t.limit
}
