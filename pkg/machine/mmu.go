package machine

import "fmt"

// Access describes a memory access. The bit values match the write and
// user bits of the x86 page-fault error code.
type Access uint32

const (
	AccessRead  Access = 0
	AccessWrite Access = 1 << 1
	AccessUser  Access = 1 << 2
)

const faultPresent = 1 << 0

// PageFault is raised when a translation fails.
type PageFault struct {
	// Addr is the faulting linear address (CR2).
	Addr uint32
	// Code is the x86 error code: present, write and user bits.
	Code uint32
}

func (f *PageFault) Error() string {
	kind := "not-present"
	if f.Code&faultPresent != 0 {
		kind = "protection"
	}
	op := "read"
	if Access(f.Code)&AccessWrite != 0 {
		op = "write"
	}
	mode := "supervisor"
	if Access(f.Code)&AccessUser != 0 {
		mode = "user"
	}
	return fmt.Sprintf("page fault at %#08x: %s %s %s", f.Addr, mode, op, kind)
}

type tlbEntry struct {
	frame uint32
	flags Flags
}

// MMU translates linear addresses through a single page directory. Page
// tables are registered by physical address with AttachTable. Successful
// translations are cached and stay cached until Flush, so a caller that
// rewrites an entry without flushing keeps seeing the old mapping.
//
// The MMU is not safe for concurrent use; callers hold the CPU interrupt
// lock.
type MMU struct {
	mem     *Memory
	dir     PageDirectory
	tables  map[uint32]*PageTable
	tlb     map[uint32]tlbEntry
	flushes uint64
}

// NewMMU creates an MMU over mem with an empty page directory.
func NewMMU(mem *Memory) *MMU {
	return &MMU{
		mem:    mem,
		tables: make(map[uint32]*PageTable),
		tlb:    make(map[uint32]tlbEntry),
	}
}

// Memory returns the physical memory behind the MMU.
func (m *MMU) Memory() *Memory { return m.mem }

// SetDirectoryEntry writes slot i of the page directory.
func (m *MMU) SetDirectoryEntry(i int, e PDE) { m.dir[i] = e }

// DirectoryEntry returns slot i of the page directory.
func (m *MMU) DirectoryEntry(i int) PDE { return m.dir[i] }

// AttachTable registers t as the page table stored at physical address addr.
func (m *MMU) AttachTable(addr uint32, t *PageTable) {
	m.tables[addr&^flagMask] = t
}

// Table returns the page table registered at addr, or nil.
func (m *MMU) Table(addr uint32) *PageTable {
	return m.tables[addr&^flagMask]
}

// Flush invalidates every cached translation, as a CR3 reload does.
// Global entries are dropped too.
func (m *MMU) Flush() {
	clear(m.tlb)
	m.flushes++
}

// Flushes returns the number of Flush calls so far.
func (m *MMU) Flushes() uint64 { return m.flushes }

// Cached reports whether the page containing va has a cached translation.
func (m *MMU) Cached(va uint32) bool {
	_, ok := m.tlb[va>>12]
	return ok
}

// Translate maps va to a physical address, checking acc against the
// effective page attributes.
func (m *MMU) Translate(va uint32, acc Access) (uint32, error) {
	vpn := va >> 12
	if e, ok := m.tlb[vpn]; ok {
		if err := permit(e.flags, va, acc); err != nil {
			return 0, err
		}
		return e.frame | va&flagMask, nil
	}

	pde := m.dir[DirectoryIndex(va)]
	if !pde.Present() {
		return 0, &PageFault{Addr: va, Code: uint32(acc)}
	}

	var frame uint32
	flags := pde.Flags()
	if pde.Large() {
		frame = pde.Address() | va&(LargePageSize-1)&^flagMask
	} else {
		t := m.tables[pde.Address()]
		if t == nil {
			return 0, &PageFault{Addr: va, Code: uint32(acc)}
		}
		pte := t[TableIndex(va)]
		if !pte.Present() {
			return 0, &PageFault{Addr: va, Code: uint32(acc)}
		}
		frame = pte.Address()
		flags &= pte.Flags()
	}

	if err := permit(flags, va, acc); err != nil {
		return 0, err
	}
	m.tlb[vpn] = tlbEntry{frame: frame, flags: flags}
	return frame | va&flagMask, nil
}

// permit applies the user and read/write checks. Supervisor accesses are
// always allowed on present pages.
func permit(flags Flags, va uint32, acc Access) error {
	if acc&AccessUser == 0 {
		return nil
	}
	if flags&FlagUser == 0 || (acc&AccessWrite != 0 && flags&FlagWritable == 0) {
		return &PageFault{Addr: va, Code: uint32(acc) | faultPresent}
	}
	return nil
}

// Read copies len(buf) bytes from linear address va.
func (m *MMU) Read(va uint32, buf []byte, acc Access) error {
	acc &^= AccessWrite
	for done := 0; done < len(buf); {
		addr := va + uint32(done)
		pa, err := m.Translate(addr, acc)
		if err != nil {
			return err
		}
		n := min(len(buf)-done, PageSize-int(addr&flagMask))
		if err := m.mem.Read(pa, buf[done:done+n]); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// Write copies data to linear address va.
func (m *MMU) Write(va uint32, data []byte, acc Access) error {
	acc |= AccessWrite
	for done := 0; done < len(data); {
		addr := va + uint32(done)
		pa, err := m.Translate(addr, acc)
		if err != nil {
			return err
		}
		n := min(len(data)-done, PageSize-int(addr&flagMask))
		if err := m.mem.Write(pa, data[done:done+n]); err != nil {
			return err
		}
		done += n
	}
	return nil
}
