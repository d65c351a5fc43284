package programs

import (
	"bytes"
	"strconv"
	"strings"

	"tinyos/pkg/abi"
	"tinyos/pkg/ulib"
)

// Ls prints every directory entry.
func Ls(t abi.Trap) {
	lib := ulib.New(t)
	fd := lib.Open(".")
	if fd < 0 {
		lib.Puts("directory open failed\n")
		lib.Halt(2)
	}
	buf := make([]byte, abi.NameLength+1)
	for {
		n := lib.Read(fd, buf[:abi.NameLength])
		if n < 0 {
			lib.Puts("directory entry read failed\n")
			lib.Halt(3)
		}
		if n == 0 {
			break
		}
		buf[n] = '\n'
		lib.Write(ulib.Stdout, buf[:n+1])
	}
	lib.Close(fd)
}

// Cat copies the file named by its argument to the terminal.
func Cat(t abi.Trap) {
	lib := ulib.New(t)
	name, ret := lib.GetArgs(abi.NameLength + 1)
	if ret != 0 {
		lib.Puts("could not read arguments\n")
		lib.Halt(3)
	}
	fd := lib.Open(name)
	if fd < 0 {
		lib.Puts("file open failed\n")
		lib.Halt(2)
	}
	buf := make([]byte, 1024)
	for {
		n := lib.Read(fd, buf)
		if n < 0 {
			lib.Puts("file read failed\n")
			lib.Halt(3)
		}
		if n == 0 {
			break
		}
		lib.Write(ulib.Stdout, buf[:n])
	}
	lib.Close(fd)
}

// Grep prints the lines of every regular file that contain its argument,
// prefixed with the file name.
func Grep(t abi.Trap) {
	lib := ulib.New(t)
	pattern, ret := lib.GetArgs(abi.ArgsLength + 1)
	if ret != 0 {
		lib.Puts("usage: grep <pattern>\n")
		lib.Halt(3)
	}
	dir := lib.Open(".")
	if dir < 0 {
		lib.Puts("directory open failed\n")
		lib.Halt(2)
	}
	name := make([]byte, abi.NameLength)
	for {
		n := lib.Read(dir, name)
		if n <= 0 {
			break
		}
		// Only regular files give a byte stream.
		if file := string(name[:n]); file != "." && file != RTCName {
			grepFile(lib, file, []byte(pattern))
		}
	}
	lib.Close(dir)
}

func grepFile(lib *ulib.Lib, name string, pattern []byte) {
	fd := lib.Open(name)
	if fd < 0 {
		return
	}
	defer lib.Close(fd)

	var (
		data []byte
		buf  = make([]byte, 1024)
	)
	for {
		n := lib.Read(fd, buf)
		if n <= 0 {
			break
		}
		data = append(data, buf[:n]...)
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.Contains(line, pattern) {
			lib.Puts(name + ":" + string(line) + "\n")
		}
	}
}

// Hello asks for a name and greets it.
func Hello(t abi.Trap) {
	lib := ulib.New(t)
	lib.Puts("Hi, what's your name? ")
	name, n := lib.Gets(abi.ArgsLength)
	if n < 0 {
		lib.Puts("Can't read name from keyboard.\n")
		lib.Halt(3)
	}
	lib.Puts("Hello, " + name + "\n")
}

// Counter prints the numbers from 1 to its argument, 10 by default.
func Counter(t abi.Trap) {
	lib := ulib.New(t)
	limit := 10
	if args, ret := lib.GetArgs(abi.ArgsLength + 1); ret == 0 {
		n, err := strconv.Atoi(strings.TrimSpace(args))
		if err != nil || n < 0 {
			lib.Puts("usage: counter [n]\n")
			lib.Halt(1)
		}
		limit = n
	}
	for i := 1; i <= limit; i++ {
		lib.Puts(ulib.Itoa(i) + "\n")
	}
}

// Testprint prints a fixed line.
func Testprint(t abi.Trap) {
	ulib.New(t).Puts("Hello, if this sentence is printed out, the test succeeds\n")
}

// Sigtest exercises the signal calls, which always fail.
func Sigtest(t abi.Trap) {
	lib := ulib.New(t)
	if lib.SetHandler(2, abi.LoadAddress) != -1 {
		lib.Puts("set_handler unexpectedly succeeded\n")
		lib.Halt(1)
	}
	if lib.Sigreturn() != -1 {
		lib.Puts("sigreturn unexpectedly succeeded\n")
		lib.Halt(1)
	}
	lib.Puts("signals not supported\n")
}

// Fault raises a processor exception chosen by its argument: pf for a
// page fault, de for a divide error and gp for a general protection fault.
func Fault(t abi.Trap) {
	lib := ulib.New(t)
	kind, ret := lib.GetArgs(abi.ArgsLength + 1)
	if ret != 0 {
		kind = "pf"
	}
	switch kind {
	case "pf":
		var b [1]byte
		t.Load(0, b[:])
	case "de":
		zero := len(kind) - 2
		lib.Puts(ulib.Itoa(len(kind) / zero))
	case "gp":
		var regs []uint32
		lib.Puts(ulib.Itoa(int(regs[len(kind)])))
	default:
		lib.Puts("usage: fault pf|de|gp\n")
		lib.Halt(1)
	}
}
