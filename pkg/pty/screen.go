package pty

import (
	"strings"

	"tinyos/pkg/machine"
)

const (
	// Cols and Rows are the text-mode dimensions.
	Cols = 80
	Rows = 25
	// Attribute is light grey on black.
	Attribute = 0x07
	// ScreenBytes is the size of one screen in video memory.
	ScreenBytes = Cols * Rows * 2
)

// Screen is a text-mode frame buffer at a physical address.
type Screen struct {
	mem  *machine.Memory
	addr uint32
}

// NewScreen returns the screen stored at addr.
func NewScreen(mem *machine.Memory, addr uint32) Screen {
	return Screen{mem: mem, addr: addr}
}

// Addr returns the physical address of the buffer.
func (s Screen) Addr() uint32 {
	return s.addr
}

func (s Screen) offset(x, y int) uint32 {
	return s.addr + uint32((y*Cols+x)*2)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Put stores ch at column x, row y.
func (s Screen) Put(x, y int, ch byte) {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return
	}
	must(s.mem.Write(s.offset(x, y), []byte{ch, Attribute}))
}

// Get returns the character at column x, row y.
func (s Screen) Get(x, y int) byte {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return 0
	}
	var cell [2]byte
	must(s.mem.Read(s.offset(x, y), cell[:]))
	return cell[0]
}

// Cell returns the character and attribute at column x, row y.
func (s Screen) Cell(x, y int) (ch, attr byte) {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return 0, 0
	}
	var cell [2]byte
	must(s.mem.Read(s.offset(x, y), cell[:]))
	return cell[0], cell[1]
}

// ScrollUp moves every row up by one and blanks the bottom row.
func (s Screen) ScrollUp() {
	must(s.mem.Copy(s.addr, s.offset(0, 1), (Rows-1)*Cols*2))
	s.ClearLine(Rows - 1)
}

// ClearLine blanks row y.
func (s Screen) ClearLine(y int) {
	row := make([]byte, Cols*2)
	for i := 0; i < len(row); i += 2 {
		row[i], row[i+1] = ' ', Attribute
	}
	must(s.mem.Write(s.offset(0, y), row))
}

// Clear blanks the whole screen.
func (s Screen) Clear() {
	for y := 0; y < Rows; y++ {
		s.ClearLine(y)
	}
}

// Lines returns the text of every row with trailing blanks removed.
func (s Screen) Lines() []string {
	raw := make([]byte, ScreenBytes)
	must(s.mem.Read(s.addr, raw))

	lines := make([]string, Rows)
	row := make([]byte, Cols)
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			ch := raw[(y*Cols+x)*2]
			if ch == 0 {
				ch = ' '
			}
			row[x] = ch
		}
		lines[y] = strings.TrimRight(string(row), " ")
	}
	return lines
}

// Dump returns the screen as text, one line per row, without trailing
// blank rows.
func (s Screen) Dump() string {
	lines := s.Lines()
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
