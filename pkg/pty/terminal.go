package pty

import "tinyos/pkg/machine"

// LineLength is the capacity of the input line, including the newline.
const LineLength = 128

// Terminal is one virtual console.
type Terminal struct {
	// Index is the terminal number.
	Index int
	// X and Y are the cursor position.
	X, Y int

	mem   *machine.Memory
	video uint32

	line  [LineLength]byte
	n     int
	ready bool
}

// NewTerminal creates terminal index with its screen at video.
func NewTerminal(mem *machine.Memory, index int, video uint32) *Terminal {
	return &Terminal{Index: index, mem: mem, video: video}
}

// Screen returns the terminal's current frame buffer.
func (t *Terminal) Screen() Screen {
	return NewScreen(t.mem, t.video)
}

// Video returns the physical address of the terminal's frame buffer:
// video memory when visible, its backing page otherwise.
func (t *Terminal) Video() uint32 {
	return t.video
}

// Putc prints ch at the cursor, wrapping and scrolling as needed.
func (t *Terminal) Putc(ch byte) {
	s := t.Screen()
	switch ch {
	case '\n', '\r':
		t.X = 0
		t.Y++
	case '\t':
		for i := 0; i < 4; i++ {
			t.Putc(' ')
		}
		return
	default:
		s.Put(t.X, t.Y, ch)
		t.X++
		if t.X == Cols {
			t.X = 0
			t.Y++
		}
	}
	if t.Y == Rows {
		s.ScrollUp()
		t.Y = Rows - 1
	}
}

// Write prints p and returns len(p).
func (t *Terminal) Write(p []byte) int {
	for _, ch := range p {
		t.Putc(ch)
	}
	return len(p)
}

// Clear blanks the screen and homes the cursor.
func (t *Terminal) Clear() {
	t.Screen().Clear()
	t.X, t.Y = 0, 0
}

// Type appends a typed character to the input line and echoes it. Input
// is dropped while a completed line is pending or the line is full.
func (t *Terminal) Type(ch byte) {
	if t.ready || t.n >= LineLength-1 {
		return
	}
	t.line[t.n] = ch
	t.n++
	t.Putc(ch)
}

// Enter completes the input line.
func (t *Terminal) Enter() {
	if t.ready {
		return
	}
	t.line[t.n] = '\n'
	t.n++
	t.ready = true
	t.Putc('\n')
}

// Backspace removes the last typed character and erases it.
func (t *Terminal) Backspace() {
	if t.ready || t.n == 0 {
		return
	}
	t.n--
	if t.X == 0 {
		if t.Y == 0 {
			return
		}
		t.X, t.Y = Cols-1, t.Y-1
	} else {
		t.X--
	}
	t.Screen().Put(t.X, t.Y, ' ')
}

// Redraw clears the screen and echoes the pending input line.
func (t *Terminal) Redraw() {
	t.Clear()
	t.Write(t.line[:t.n])
}

// LineReady reports whether a completed line is waiting.
func (t *Terminal) LineReady() bool {
	return t.ready
}

// ReadLine copies at most len(buf) bytes of the completed line, newline
// included, and empties the line.
func (t *Terminal) ReadLine(buf []byte) int {
	n := copy(buf, t.line[:t.n])
	t.n = 0
	t.ready = false
	return n
}

// Pending returns the characters typed so far.
func (t *Terminal) Pending() string {
	return string(t.line[:t.n])
}
