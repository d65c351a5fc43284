package process

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"tinyos/pkg/abi"
	"tinyos/pkg/fd"
	"tinyos/pkg/machine"
)

// maxUserString bounds the strings read by execute and open.
const maxUserString = 1024

// dispatch runs system call num for p. Interrupts are disabled and p owns
// the processor.
func (k *Kernel) dispatch(p *PCB, num, a, b, c uint32) (int32, error) {
	switch num {
	case abi.SysHalt:
		k.halt(p, int32(a&0xFF))
		return 0, nil // unreachable
	case abi.SysExecute:
		cmd, err := k.userString(a)
		if err != nil {
			return -1, fmt.Errorf("%w: %w", ErrBadCommand, err)
		}
		return k.execute(p, cmd)
	case abi.SysRead:
		return k.sysRead(p, int(int32(a)), b, int32(c))
	case abi.SysWrite:
		return k.sysWrite(p, int(int32(a)), b, int32(c))
	case abi.SysOpen:
		name, err := k.userString(a)
		if err != nil {
			return -1, err
		}
		n, err := p.Files.Open(caller{k, p}, name)
		return int32(n), err
	case abi.SysClose:
		return 0, p.Files.Close(caller{k, p}, int(int32(a)))
	case abi.SysGetargs:
		return k.sysGetargs(p, a, int32(b))
	case abi.SysVidmap:
		return k.sysVidmap(p, a)
	case abi.SysSetHandler, abi.SysSigreturn:
		return -1, fmt.Errorf("%w: signals", fd.ErrNotSupported)
	}
	return -1, fmt.Errorf("%w: syscall %d", ErrInvalidArgument, num)
}

// checkRange verifies that [va, va+n) translates for a user access.
func (k *Kernel) checkRange(va uint32, n int, acc machine.Access) error {
	if n == 0 {
		return nil
	}
	end := uint64(va) + uint64(n)
	if end > 1<<32 {
		return fmt.Errorf("%w: buffer %#x+%d wraps", ErrInvalidAddress, va, n)
	}
	for page := uint64(va) &^ (machine.PageSize - 1); page < end; page += machine.PageSize {
		addr := uint32(page)
		if addr < va {
			addr = va
		}
		if _, err := k.cpu.MMU.Translate(addr, acc|machine.AccessUser); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
	}
	return nil
}

// userString reads a NUL-terminated string from user memory.
func (k *Kernel) userString(va uint32) (string, error) {
	if va == 0 {
		return "", fmt.Errorf("%w: null pointer", ErrInvalidAddress)
	}
	var (
		out []byte
		b   [1]byte
	)
	for i := uint32(0); i < maxUserString; i++ {
		if err := k.cpu.MMU.Read(va+i, b[:], machine.AccessUser); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		if b[0] == 0 {
			return string(out), nil
		}
		out = append(out, b[0])
	}
	return "", fmt.Errorf("%w: string at %#x is not terminated", ErrInvalidArgument, va)
}

func (k *Kernel) sysRead(p *PCB, n int, buf uint32, count int32) (int32, error) {
	if count < 0 {
		return -1, fmt.Errorf("%w: negative count", fd.ErrInvalidDescriptor)
	}
	if err := k.checkRange(buf, int(count), machine.AccessWrite); err != nil {
		return -1, fmt.Errorf("%w: %w", fd.ErrInvalidDescriptor, err)
	}
	data := make([]byte, count)
	got, err := p.Files.Read(caller{k, p}, n, data)
	if err != nil {
		return -1, err
	}
	if got > 0 {
		// The read may have blocked, so recheck the destination.
		if err := k.cpu.MMU.Write(buf, data[:got], machine.AccessUser|machine.AccessWrite); err != nil {
			return -1, fmt.Errorf("%w: %w", fd.ErrInvalidDescriptor, err)
		}
	}
	return int32(got), nil
}

func (k *Kernel) sysWrite(p *PCB, n int, buf uint32, count int32) (int32, error) {
	if count < 0 {
		return -1, fmt.Errorf("%w: negative count", fd.ErrInvalidDescriptor)
	}
	if err := k.checkRange(buf, int(count), machine.AccessRead); err != nil {
		return -1, fmt.Errorf("%w: %w", fd.ErrInvalidDescriptor, err)
	}
	data := make([]byte, count)
	if err := k.cpu.MMU.Read(buf, data, machine.AccessUser); err != nil {
		return -1, fmt.Errorf("%w: %w", fd.ErrInvalidDescriptor, err)
	}
	got, err := p.Files.Write(caller{k, p}, n, data)
	if err != nil {
		return -1, err
	}
	return int32(got), nil
}

func (k *Kernel) sysGetargs(p *PCB, buf uint32, n int32) (int32, error) {
	if len(p.Args) == 0 || n < 0 || len(p.Args)+1 > int(n) {
		return -1, fmt.Errorf("%w: %d byte arguments, %d byte buffer", ErrInvalidArgument, len(p.Args), n)
	}
	out := append(bytes.Clone(p.Args), 0)
	if err := k.cpu.MMU.Write(buf, out, machine.AccessUser|machine.AccessWrite); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return 0, nil
}

func (k *Kernel) sysVidmap(p *PCB, out uint32) (int32, error) {
	if out < abi.ImageBase || out > abi.ImageTop-4 {
		return -1, fmt.Errorf("%w: %#x is outside the process image", ErrInvalidAddress, out)
	}
	k.pages.MapVideo(k.console.Terminal(p.Terminal).Video())
	p.Vidmap = true

	var addr [4]byte
	binary.LittleEndian.PutUint32(addr[:], abi.VidmapAddress)
	if err := k.cpu.MMU.Write(out, addr[:], machine.AccessUser|machine.AccessWrite); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return 0, nil
}
