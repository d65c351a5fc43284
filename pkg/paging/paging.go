// Package paging maintains the single page directory shared by every
// process: the boot mappings, the 4MB process image slot at 128MB and the
// optional user video page at 140MB.
//
// The Mapper is a single-writer structure. It must only be used with the
// CPU interrupt lock held.
package paging

import (
	"fmt"

	"tinyos/pkg/abi"
	"tinyos/pkg/machine"
)

const (
	// KernelBase is the physical and virtual address of the kernel page.
	KernelBase = 4 << 20
	// ProcessBase0 is the physical address of process 0's image region.
	ProcessBase0 = 8 << 20

	// VideoMemory is the physical address of the text-mode frame buffer.
	VideoMemory = 0xB8000

	lowTableAddr    = KernelBase + 0x1000
	vidmapTableAddr = KernelBase + 0x2000
)

// BackingPage returns the physical page holding the screen of terminal
// while it is not visible.
func BackingPage(terminal int) uint32 {
	return VideoMemory + uint32(terminal+1)*machine.PageSize
}

// Mapper owns the page directory.
type Mapper struct {
	mmu       *machine.MMU
	processes int
	low       machine.PageTable
	vidmap    machine.PageTable
	current   int
	video     bool
}

// New installs the boot mappings on mmu: the low page table holding video
// memory and the terminal backing pages, and the global kernel page. It
// supports pids in [0, processes).
func New(mmu *machine.MMU, processes, terminals int) *Mapper {
	m := &Mapper{
		mmu:       mmu,
		processes: processes,
		current:   -1,
	}

	rw := machine.FlagPresent | machine.FlagWritable
	m.low[machine.TableIndex(VideoMemory)] = machine.NewPTE(VideoMemory, rw)
	for t := 0; t < terminals; t++ {
		page := BackingPage(t)
		m.low[machine.TableIndex(page)] = machine.NewPTE(page, rw)
	}
	mmu.AttachTable(lowTableAddr, &m.low)
	mmu.AttachTable(vidmapTableAddr, &m.vidmap)

	mmu.SetDirectoryEntry(0, machine.NewTablePDE(lowTableAddr, rw))
	mmu.SetDirectoryEntry(machine.DirectoryIndex(KernelBase),
		machine.NewLargePDE(KernelBase, rw|machine.FlagGlobal))
	mmu.Flush()
	return m
}

// ProcessBase returns the physical address of pid's 4MB image region.
func ProcessBase(pid int) uint32 {
	return ProcessBase0 + uint32(pid)*machine.LargePageSize
}

// MapProcess points the image slot at pid's physical region and flushes
// the TLB. A pid outside the pool is a programming error and panics.
func (m *Mapper) MapProcess(pid int) {
	if pid < 0 || pid >= m.processes {
		panic(fmt.Sprintf("paging: pid %d out of range [0,%d)", pid, m.processes))
	}
	flags := machine.FlagPresent | machine.FlagWritable | machine.FlagUser
	m.mmu.SetDirectoryEntry(machine.DirectoryIndex(abi.ImageBase), machine.NewLargePDE(ProcessBase(pid), flags))
	m.current = pid
	m.mmu.Flush()
}

// Current returns the pid whose image is mapped, or -1 before the first
// MapProcess.
func (m *Mapper) Current() int {
	return m.current
}

// MapVideo maps the 4KB page at phys to abi.VidmapAddress for user access and
// flushes the TLB.
func (m *Mapper) MapVideo(phys uint32) {
	flags := machine.FlagPresent | machine.FlagWritable | machine.FlagUser
	m.vidmap[machine.TableIndex(abi.VidmapAddress)] = machine.NewPTE(phys, flags)
	m.mmu.SetDirectoryEntry(machine.DirectoryIndex(abi.VidmapAddress), machine.NewTablePDE(vidmapTableAddr, flags))
	m.video = true
	m.mmu.Flush()
}

// UnmapVideo removes the user video page and flushes the TLB.
func (m *Mapper) UnmapVideo() {
	m.vidmap[machine.TableIndex(abi.VidmapAddress)] = 0
	m.mmu.SetDirectoryEntry(machine.DirectoryIndex(abi.VidmapAddress), 0)
	m.video = false
	m.mmu.Flush()
}

// VideoMapped reports whether the user video page is installed.
func (m *Mapper) VideoMapped() bool {
	return m.video
}
