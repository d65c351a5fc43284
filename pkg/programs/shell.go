package programs

import (
	"errors"
	"strings"

	"tinyos/internal/cmdline"
	"tinyos/pkg/abi"
	"tinyos/pkg/ulib"
)

// Prompt is printed by the shell before each command.
const Prompt = "391OS> "

// Shell reads commands from the terminal and executes them until "exit".
func Shell(t abi.Trap) {
	lib := ulib.New(t)
	for {
		lib.Puts(Prompt)
		line, n := lib.Gets(abi.ArgsLength)
		if n < 0 {
			lib.Puts("read from keyboard failed\n")
			lib.Halt(1)
		}
		line = strings.TrimRight(line, " ")

		name, _, err := cmdline.Split(line)
		switch {
		case errors.Is(err, cmdline.ErrEmpty):
			continue
		case err != nil:
			lib.Puts("no such command\n")
			continue
		case name == "exit":
			lib.Halt(0)
		}

		switch status := lib.Execute(line); {
		case status == -1:
			lib.Puts("no such command\n")
		case status == abi.ExceptionStatus:
			lib.Puts("program terminated by exception\n")
		case status != 0:
			lib.Puts("program terminated abnormally\n")
		}
	}
}
