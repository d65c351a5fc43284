// Package ulib is the user-side system call library. Arguments that the
// kernel reads through pointers are staged in the scratch region of the
// process image, so every call really crosses the user/kernel boundary
// through user memory.
package ulib

import (
	"encoding/binary"
	"strconv"

	"tinyos/pkg/abi"
)

// Standard descriptors.
const (
	Stdin  = 0
	Stdout = 1
)

// Lib wraps a trap with typed system calls.
type Lib struct {
	t abi.Trap
}

// New returns the library for the process behind t.
func New(t abi.Trap) *Lib {
	return &Lib{t: t}
}

// Trap returns the underlying trap.
func (l *Lib) Trap() abi.Trap {
	return l.t
}

func (l *Lib) stage(data []byte) uint32 {
	l.t.Store(abi.ScratchBase, data)
	return abi.ScratchBase
}

func cstring(s string) []byte {
	return append([]byte(s), 0)
}

// Halt ends the process with status. It never returns.
func (l *Lib) Halt(status uint8) {
	l.t.Syscall(abi.SysHalt, uint32(status), 0, 0)
}

// Execute runs command and returns its exit status, or -1.
func (l *Lib) Execute(command string) int32 {
	return l.t.Syscall(abi.SysExecute, l.stage(cstring(command)), 0, 0)
}

// Read reads up to len(buf) bytes from fd into buf.
func (l *Lib) Read(fd int32, buf []byte) int32 {
	if len(buf) > abi.ScratchSize {
		buf = buf[:abi.ScratchSize]
	}
	n := l.t.Syscall(abi.SysRead, uint32(fd), abi.ScratchBase, uint32(len(buf)))
	if n > 0 {
		l.t.Load(abi.ScratchBase, buf[:n])
	}
	return n
}

// Write writes data to fd.
func (l *Lib) Write(fd int32, data []byte) int32 {
	if len(data) > abi.ScratchSize {
		data = data[:abi.ScratchSize]
	}
	return l.t.Syscall(abi.SysWrite, uint32(fd), l.stage(data), uint32(len(data)))
}

// Open opens name and returns its descriptor, or -1.
func (l *Lib) Open(name string) int32 {
	return l.t.Syscall(abi.SysOpen, l.stage(cstring(name)), 0, 0)
}

// Close closes fd.
func (l *Lib) Close(fd int32) int32 {
	return l.t.Syscall(abi.SysClose, uint32(fd), 0, 0)
}

// GetArgs returns the argument string, reading at most n bytes including
// the terminator.
func (l *Lib) GetArgs(n int) (string, int32) {
	ret := l.t.Syscall(abi.SysGetargs, abi.ScratchBase, uint32(n), 0)
	if ret != 0 {
		return "", ret
	}
	buf := make([]byte, n)
	l.t.Load(abi.ScratchBase, buf)
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i]), 0
		}
	}
	return string(buf), 0
}

// Vidmap maps the terminal's video page and returns its address.
func (l *Lib) Vidmap() (uint32, int32) {
	ret := l.t.Syscall(abi.SysVidmap, abi.ScratchBase, 0, 0)
	if ret != 0 {
		return 0, ret
	}
	var out [4]byte
	l.t.Load(abi.ScratchBase, out[:])
	return binary.LittleEndian.Uint32(out[:]), 0
}

// SetHandler registers a signal handler.
func (l *Lib) SetHandler(signum, handler uint32) int32 {
	return l.t.Syscall(abi.SysSetHandler, signum, handler, 0)
}

// Sigreturn returns from a signal handler.
func (l *Lib) Sigreturn() int32 {
	return l.t.Syscall(abi.SysSigreturn, 0, 0, 0)
}

// Puts writes s to standard output.
func (l *Lib) Puts(s string) int32 {
	return l.Write(Stdout, []byte(s))
}

// Gets reads one line from standard input without its newline.
func (l *Lib) Gets(max int) (string, int32) {
	buf := make([]byte, max)
	n := l.Read(Stdin, buf)
	if n < 0 {
		return "", n
	}
	line := buf[:n]
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	return string(line), n
}

// Itoa formats n in decimal.
func Itoa(n int) string {
	return strconv.Itoa(n)
}
