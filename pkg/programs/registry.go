// Package programs holds the user programs shipped on the boot image and
// generates their executable files.
//
// An executable file only carries a header: the signature, an entry point
// at byte 24 and the program name. The entry point is derived from the
// name, and the kernel resolves it to Go code through a Registry.
package programs

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"

	"tinyos/pkg/abi"
	"tinyos/pkg/vfs/imagefs"
)

// RTCName is the file name of the real-time clock device.
const RTCName = "rtc"

// Registry maps entry points to programs.
type Registry struct {
	byEntry map[uint32]abi.Program
	names   map[string]uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byEntry: make(map[uint32]abi.Program),
		names:   make(map[string]uint32),
	}
}

// EntryPoint returns the entry point assigned to name.
func EntryPoint(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return abi.LoadAddress + 0x1000 + (h.Sum32()&0xFFFF)<<4
}

// Image returns the executable file for name.
func Image(name string) []byte {
	return ImageAt(name, EntryPoint(name))
}

// ImageAt returns an executable file for name with an explicit entry point.
func ImageAt(name string, entry uint32) []byte {
	buf := make([]byte, abi.HeaderSize, abi.HeaderSize+len(name)+1)
	copy(buf, abi.Magic[:])
	// ELF32, little endian, version 1, ET_EXEC, EM_386.
	buf[4], buf[5], buf[6] = 1, 1, 1
	binary.LittleEndian.PutUint16(buf[16:], 2)
	binary.LittleEndian.PutUint16(buf[18:], 3)
	binary.LittleEndian.PutUint32(buf[20:], 1)
	binary.LittleEndian.PutUint32(buf[abi.EntryOffset:], entry)
	buf = append(buf, name...)
	return append(buf, 0)
}

// Register adds prog under name and returns its entry point. Two names
// hashing to the same entry point is a programming error and panics.
func (r *Registry) Register(name string, prog abi.Program) uint32 {
	entry := EntryPoint(name)
	if other, ok := r.owner(entry); ok && other != name {
		panic(fmt.Sprintf("programs: %q and %q share entry point %#x", name, other, entry))
	}
	r.byEntry[entry] = prog
	r.names[name] = entry
	return entry
}

func (r *Registry) owner(entry uint32) (string, bool) {
	for name, e := range r.names {
		if e == entry {
			return name, true
		}
	}
	return "", false
}

// Lookup returns the program at entry, or nil.
func (r *Registry) Lookup(entry uint32) abi.Program {
	return r.byEntry[entry]
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Images returns the executable file of every registered program.
func (r *Registry) Images() map[string][]byte {
	out := make(map[string][]byte, len(r.names))
	for name := range r.names {
		out[name] = Image(name)
	}
	return out
}

// Install adds every program, the data files the programs read and the
// rtc device to b.
func (r *Registry) Install(b *imagefs.Builder) *imagefs.Builder {
	b.AddDevice(RTCName)
	for _, name := range r.Names() {
		b.Add(name, Image(name))
	}
	for _, name := range assetNames() {
		b.Add(name, assets[name])
	}
	return b
}

// Default returns a registry holding every built-in program.
func Default() *Registry {
	r := NewRegistry()
	r.Register("shell", Shell)
	r.Register("ls", Ls)
	r.Register("cat", Cat)
	r.Register("grep", Grep)
	r.Register("wc", Wc)
	r.Register("hello", Hello)
	r.Register("counter", Counter)
	r.Register("pingpong", Pingpong)
	r.Register("fish", Fish)
	r.Register("syserr", Syserr)
	r.Register("testprint", Testprint)
	r.Register("sigtest", Sigtest)
	r.Register("fault", Fault)
	return r
}
