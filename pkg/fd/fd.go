// Package fd implements per-process descriptor tables and the operation
// tables descriptors dispatch to.
//
// Every table has Count slots. Slots 0 and 1 are bound to the terminal's
// standard input and output when the table is created and can never be
// closed or rebound; open hands out the lowest free slot in [2, Count).
package fd

import (
	"errors"
	"fmt"

	"tinyos/pkg/vfs"
)

const (
	// Count is the number of slots in a descriptor table.
	Count = 8
	// Stdin and Stdout are the pre-bound slots.
	Stdin  = 0
	Stdout = 1
	// FirstFree is the lowest slot open can return.
	FirstFree = 2
)

// Descriptor errors.
var (
	ErrInvalidDescriptor = errors.New("fd: invalid descriptor")
	ErrNoFreeDescriptor  = errors.New("fd: no free descriptor")
	ErrReadOnly          = errors.New("fd: read-only file system")
	ErrNotSupported      = errors.New("fd: operation not supported")
)

// Caller is the calling process as seen by a blocking hook.
type Caller interface {
	// WaitUntil spins with interrupts enabled until ready returns true.
	// ready is evaluated with interrupts disabled.
	WaitUntil(ready func() bool)
	// Terminal returns the index of the caller's terminal.
	Terminal() int
}

// Operations is the dispatch table a descriptor is bound to.
type Operations interface {
	Open(c Caller, d *Descriptor) error
	Close(c Caller, d *Descriptor) error
	Read(c Caller, d *Descriptor, buf []byte) (int, error)
	Write(c Caller, d *Descriptor, buf []byte) (int, error)
}

// Descriptor is one slot of a table.
type Descriptor struct {
	// Ops must not be used unless InUse is set.
	Ops Operations
	// Inode is the backing file, zero for devices.
	Inode uint32
	// Cursor is a byte offset for files and an entry index for directories.
	Cursor uint32
	// InUse marks the slot as allocated.
	InUse bool
}

// Namespace resolves names to operation tables.
type Namespace struct {
	Store vfs.Store
	// RTC serves entries of type vfs.TypeRTC.
	RTC Operations
}

// Resolve looks name up and picks the operation table for its type.
func (ns *Namespace) Resolve(name string) (vfs.Dentry, Operations, error) {
	d, err := ns.Store.Lookup(name)
	if err != nil {
		return vfs.Dentry{}, nil, err
	}
	switch d.Type {
	case vfs.TypeRTC:
		if ns.RTC == nil {
			return vfs.Dentry{}, nil, fmt.Errorf("%w: no rtc device", vfs.ErrNotFound)
		}
		return d, ns.RTC, nil
	case vfs.TypeDirectory:
		return d, DirOps{Store: ns.Store}, nil
	case vfs.TypeRegular:
		return d, FileOps{Store: ns.Store}, nil
	}
	return vfs.Dentry{}, nil, fmt.Errorf("%w: %q has type %v", vfs.ErrNotFound, name, d.Type)
}

// Table is a process descriptor table.
type Table struct {
	ns    *Namespace
	slots [Count]Descriptor
}

// NewTable creates a table with slots 0 and 1 bound to stdin and stdout.
func NewTable(ns *Namespace, stdin, stdout Operations) *Table {
	t := &Table{ns: ns}
	t.slots[Stdin] = Descriptor{Ops: stdin, InUse: true}
	t.slots[Stdout] = Descriptor{Ops: stdout, InUse: true}
	return t
}

// Get returns slot fd, or nil when fd is out of range.
func (t *Table) Get(fd int) *Descriptor {
	if fd < 0 || fd >= Count {
		return nil
	}
	return &t.slots[fd]
}

// Open binds the lowest free slot in [2, Count) to name.
func (t *Table) Open(c Caller, name string) (int, error) {
	dentry, ops, err := t.ns.Resolve(name)
	if err != nil {
		return -1, err
	}

	for i := FirstFree; i < Count; i++ {
		d := &t.slots[i]
		if d.InUse {
			continue
		}
		*d = Descriptor{Ops: ops, Inode: dentry.Inode, InUse: true}
		if err := ops.Open(c, d); err != nil {
			*d = Descriptor{}
			return -1, err
		}
		return i, nil
	}
	return -1, ErrNoFreeDescriptor
}

// Close runs the close hook of fd and frees it. Slots 0 and 1 cannot be
// closed.
func (t *Table) Close(c Caller, fd int) error {
	if fd < FirstFree || fd >= Count || !t.slots[fd].InUse {
		return fmt.Errorf("%w: close %d", ErrInvalidDescriptor, fd)
	}
	d := &t.slots[fd]
	err := d.Ops.Close(c, d)
	*d = Descriptor{}
	return err
}

// CloseAll closes every open slot in [2, Count).
func (t *Table) CloseAll(c Caller) {
	for i := FirstFree; i < Count; i++ {
		if t.slots[i].InUse {
			_ = t.Close(c, i)
		}
	}
}

func (t *Table) lookup(fd int) (*Descriptor, error) {
	if fd < 0 || fd >= Count || !t.slots[fd].InUse {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDescriptor, fd)
	}
	return &t.slots[fd], nil
}

// Read dispatches to the read hook of fd.
func (t *Table) Read(c Caller, fd int, buf []byte) (int, error) {
	d, err := t.lookup(fd)
	if err != nil {
		return -1, err
	}
	return d.Ops.Read(c, d, buf)
}

// Write dispatches to the write hook of fd.
func (t *Table) Write(c Caller, fd int, buf []byte) (int, error) {
	d, err := t.lookup(fd)
	if err != nil {
		return -1, err
	}
	return d.Ops.Write(c, d, buf)
}

// InUse returns the number of slots in use, including 0 and 1.
func (t *Table) InUse() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].InUse {
			n++
		}
	}
	return n
}
