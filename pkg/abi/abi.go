// Package abi is the contract between user programs and the kernel: system
// call numbers, the trap interface, the user address-space layout and the
// executable header.
package abi

// System call numbers passed in EAX to int 0x80.
const (
	SysHalt       = 1
	SysExecute    = 2
	SysRead       = 3
	SysWrite      = 4
	SysOpen       = 5
	SysClose      = 6
	SysGetargs    = 7
	SysVidmap     = 8
	SysSetHandler = 9
	SysSigreturn  = 10
)

// User address-space layout.
const (
	// ImageBase is the start of the 4MB process image.
	ImageBase = 128 << 20
	// ImageTop is the first address past the process image.
	ImageTop = ImageBase + 4<<20
	// LoadAddress is where the executable file is copied.
	LoadAddress = 0x08048000
	// UserStack is the initial user stack pointer.
	UserStack = ImageTop - 4
	// ScratchBase is the start of the region the user library stages
	// system call arguments in.
	ScratchBase = 0x08300000
	// ScratchSize is the size of the staging region.
	ScratchSize = 0x000F0000
	// VidmapAddress is where vidmap maps the terminal's video page.
	VidmapAddress = 140 << 20
)

// Executable header.
const (
	// EntryOffset is the file offset of the little-endian entry point.
	EntryOffset = 24
	// HeaderSize is the smallest valid executable.
	HeaderSize = EntryOffset + 4
)

// Magic starts every executable.
var Magic = [4]byte{0x7F, 'E', 'L', 'F'}

// Limits on execute arguments.
const (
	NameLength = 32
	ArgsLength = 128
)

// ExceptionStatus is the status a parent sees when its child was killed by
// a processor exception.
const ExceptionStatus = 256

// Trap is how a user program reaches the machine. Every call is a point
// where the process may be preempted.
type Trap interface {
	// Syscall executes int 0x80. It returns -1 on failure. SysHalt never
	// returns.
	Syscall(num, a, b, c uint32) int32
	// Load reads user memory at va. An invalid access raises a page
	// fault and never returns.
	Load(va uint32, buf []byte)
	// Store writes user memory at va. An invalid access raises a page
	// fault and never returns.
	Store(va uint32, data []byte)
}

// Program is the code at an executable's entry point. Returning from it
// is the same as halting with status 0.
type Program func(t Trap)
