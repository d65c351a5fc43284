package programs

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"tinyos/pkg/abi"
	"tinyos/pkg/ulib"
)

// Counts is what wc reports for one file.
type Counts struct {
	Lines   int
	Words   int
	Bytes   int
	Longest int
}

// Count counts lines, words and bytes in data.
func Count(data []byte) (Counts, error) {
	c := Counts{Bytes: len(data)}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		c.Lines++
		c.Words += len(strings.Fields(line))
		if len(line) > c.Longest {
			c.Longest = len(line)
		}
	}
	return c, scanner.Err()
}

// Wc prints the line, word and byte counts of the file named by its
// argument.
func Wc(t abi.Trap) {
	lib := ulib.New(t)
	name, ret := lib.GetArgs(abi.NameLength + 1)
	if ret != 0 {
		lib.Puts("usage: wc <file>\n")
		lib.Halt(3)
	}
	c, err := Count(readFile(lib, name))
	if err != nil {
		lib.Puts("wc: " + err.Error() + "\n")
		lib.Halt(1)
	}
	lib.Puts(fmt.Sprintf("%7d %7d %7d %s\n", c.Lines, c.Words, c.Bytes, name))
}
