package programs

import (
	"tinyos/pkg/abi"
	"tinyos/pkg/ulib"
)

type errorCase struct {
	name string
	run  func(lib *ulib.Lib) bool
}

var errorCases = []errorCase{
	{"open missing file", func(lib *ulib.Lib) bool {
		return lib.Open("no_such_file") == -1
	}},
	{"close stdin and stdout", func(lib *ulib.Lib) bool {
		return lib.Close(ulib.Stdin) == -1 && lib.Close(ulib.Stdout) == -1
	}},
	{"close unused and out of range", func(lib *ulib.Lib) bool {
		return lib.Close(7) == -1 && lib.Close(8) == -1 && lib.Close(-1) == -1
	}},
	{"read and write bad descriptors", func(lib *ulib.Lib) bool {
		buf := make([]byte, 4)
		return lib.Read(8, buf) == -1 && lib.Write(-1, buf) == -1 && lib.Read(5, buf) == -1
	}},
	{"wrong direction on stdio", func(lib *ulib.Lib) bool {
		return lib.Write(ulib.Stdin, []byte("x")) == -1 && lib.Read(ulib.Stdout, make([]byte, 1)) == -1
	}},
	{"read into kernel memory", func(lib *ulib.Lib) bool {
		return lib.Trap().Syscall(abi.SysRead, ulib.Stdin, 0x00400000, 16) == -1
	}},
	{"negative count", func(lib *ulib.Lib) bool {
		return lib.Trap().Syscall(abi.SysWrite, ulib.Stdout, abi.ScratchBase, 0xFFFFFFFF) == -1
	}},
	{"execute missing program", func(lib *ulib.Lib) bool {
		return lib.Execute("no_such_program") == -1
	}},
	{"execute non-executable", func(lib *ulib.Lib) bool {
		return lib.Execute("frame0.txt") == -1 && lib.Execute(".") == -1
	}},
	{"execute null command", func(lib *ulib.Lib) bool {
		return lib.Trap().Syscall(abi.SysExecute, 0, 0, 0) == -1
	}},
	{"getargs without arguments", func(lib *ulib.Lib) bool {
		_, ret := lib.GetArgs(abi.ArgsLength + 1)
		return ret == -1
	}},
	{"vidmap outside the image", func(lib *ulib.Lib) bool {
		t := lib.Trap()
		return t.Syscall(abi.SysVidmap, 0, 0, 0) == -1 &&
			t.Syscall(abi.SysVidmap, abi.ImageTop, 0, 0) == -1 &&
			t.Syscall(abi.SysVidmap, 0x00400000, 0, 0) == -1
	}},
	{"descriptor table exhaustion", func(lib *ulib.Lib) bool {
		var fds []int32
		defer func() {
			for _, fd := range fds {
				lib.Close(fd)
			}
		}()
		for i := 2; i < 8; i++ {
			fd := lib.Open(".")
			if fd != int32(i) {
				return false
			}
			fds = append(fds, fd)
		}
		return lib.Open(".") == -1
	}},
	{"unknown system calls", func(lib *ulib.Lib) bool {
		t := lib.Trap()
		return t.Syscall(0, 0, 0, 0) == -1 && t.Syscall(11, 0, 0, 0) == -1
	}},
}

// Syserr runs the system call error checks and halts with the number of
// failures.
func Syserr(t abi.Trap) {
	lib := ulib.New(t)
	failures := 0
	for _, c := range errorCases {
		result := "PASS"
		if !c.run(lib) {
			result = "FAIL"
			failures++
		}
		lib.Puts(result + ": " + c.name + "\n")
	}
	lib.Halt(uint8(failures))
}
