package machine

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// PageSize is the size of a small page and of a physical frame.
	PageSize = 4 << 10
	// LargePageSize is the size of a page mapped directly by a directory entry.
	LargePageSize = 4 << 20
	// EntryCount is the number of entries in a page directory or page table.
	EntryCount = 1024
)

// ErrBusError is returned when a physical access falls outside installed memory.
var ErrBusError = errors.New("machine: physical address out of range")

// Memory is sparse physical memory. Frames are allocated on first write;
// reading a frame that was never written yields zeros.
type Memory struct {
	mu     sync.RWMutex
	size   uint64
	frames map[uint32]*[PageSize]byte
}

// NewMemory creates physical memory with the given size in bytes.
func NewMemory(size uint64) *Memory {
	return &Memory{
		size:   size,
		frames: make(map[uint32]*[PageSize]byte),
	}
}

// Size returns the installed memory size in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

// Frames returns the number of frames that have been backed by a write.
func (m *Memory) Frames() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.frames)
}

func (m *Memory) check(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > m.size {
		return fmt.Errorf("%w: %#x+%d", ErrBusError, addr, n)
	}
	return nil
}

// Read copies len(buf) bytes starting at physical address addr into buf.
func (m *Memory) Read(addr uint32, buf []byte) error {
	if err := m.check(addr, len(buf)); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for done := 0; done < len(buf); {
		cur := addr + uint32(done)
		base := cur &^ (PageSize - 1)
		off := int(cur - base)
		n := min(len(buf)-done, PageSize-off)
		if frame, ok := m.frames[base]; ok {
			copy(buf[done:done+n], frame[off:off+n])
		} else {
			clear(buf[done : done+n])
		}
		done += n
	}
	return nil
}

// Write copies data to physical memory starting at addr.
func (m *Memory) Write(addr uint32, data []byte) error {
	if err := m.check(addr, len(data)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for done := 0; done < len(data); {
		cur := addr + uint32(done)
		base := cur &^ (PageSize - 1)
		off := int(cur - base)
		n := min(len(data)-done, PageSize-off)
		frame, ok := m.frames[base]
		if !ok {
			frame = new([PageSize]byte)
			m.frames[base] = frame
		}
		copy(frame[off:off+n], data[done:done+n])
		done += n
	}
	return nil
}

// Copy moves n bytes from physical address src to dst.
func (m *Memory) Copy(dst, src uint32, n int) error {
	buf := make([]byte, n)
	if err := m.Read(src, buf); err != nil {
		return err
	}
	return m.Write(dst, buf)
}
