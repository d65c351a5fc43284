package pty

import (
	"tinyos/pkg/fd"
	"tinyos/pkg/machine"
	"tinyos/pkg/paging"
)

// Console owns the terminals and the keyboard.
type Console struct {
	mem     *machine.Memory
	terms   []*Terminal
	visible int
	kbd     Keyboard
}

// NewConsole creates n terminals with terminal 0 visible and every screen
// cleared.
func NewConsole(mem *machine.Memory, n int) *Console {
	c := &Console{mem: mem, terms: make([]*Terminal, n)}
	for i := range c.terms {
		video := paging.BackingPage(i)
		if i == 0 {
			video = paging.VideoMemory
		}
		c.terms[i] = NewTerminal(mem, i, video)
		c.terms[i].Clear()
	}
	return c
}

// Len returns the number of terminals.
func (c *Console) Len() int {
	return len(c.terms)
}

// Terminal returns terminal i.
func (c *Console) Terminal(i int) *Terminal {
	return c.terms[i]
}

// Visible returns the index of the terminal on display.
func (c *Console) Visible() int {
	return c.visible
}

// Switch puts terminal i on display. The outgoing screen is saved to its
// backing page and the incoming one is restored from its own.
func (c *Console) Switch(i int) {
	if i == c.visible || i < 0 || i >= len(c.terms) {
		return
	}
	out, in := c.terms[c.visible], c.terms[i]

	must(c.mem.Copy(paging.BackingPage(out.Index), paging.VideoMemory, ScreenBytes))
	out.video = paging.BackingPage(out.Index)

	must(c.mem.Copy(paging.VideoMemory, paging.BackingPage(in.Index), ScreenBytes))
	in.video = paging.VideoMemory

	c.visible = i
}

// Keystroke handles one scancode. It reports whether the visible terminal
// changed.
func (c *Console) Keystroke(code byte) bool {
	ev, ok := c.kbd.Translate(code)
	if !ok {
		return false
	}
	t := c.terms[c.visible]
	switch ev.Action {
	case ActionChar:
		t.Type(ev.Char)
	case ActionEnter:
		t.Enter()
	case ActionBackspace:
		t.Backspace()
	case ActionClear:
		t.Redraw()
	case ActionSwitch:
		if ev.Terminal < len(c.terms) && ev.Terminal != c.visible {
			c.Switch(ev.Terminal)
			return true
		}
	}
	return false
}

// StdinOps returns the operations of descriptor slot 0.
func (c *Console) StdinOps() fd.Operations {
	return stdin{c}
}

// StdoutOps returns the operations of descriptor slot 1.
func (c *Console) StdoutOps() fd.Operations {
	return stdout{c}
}

type stdin struct{ c *Console }

// Open does nothing; slot 0 is bound when the process is created.
func (stdin) Open(fd.Caller, *fd.Descriptor) error { return nil }

// Close does nothing; slot 0 is never closed.
func (stdin) Close(fd.Caller, *fd.Descriptor) error { return nil }

// Read blocks until the caller's terminal has a completed line.
func (s stdin) Read(caller fd.Caller, _ *fd.Descriptor, buf []byte) (int, error) {
	t := s.c.terms[caller.Terminal()]
	caller.WaitUntil(t.LineReady)
	return t.ReadLine(buf), nil
}

// Write fails; the keyboard is input only.
func (stdin) Write(fd.Caller, *fd.Descriptor, []byte) (int, error) {
	return -1, fd.ErrNotSupported
}

type stdout struct{ c *Console }

// Open does nothing; slot 1 is bound when the process is created.
func (stdout) Open(fd.Caller, *fd.Descriptor) error { return nil }

// Close does nothing; slot 1 is never closed.
func (stdout) Close(fd.Caller, *fd.Descriptor) error { return nil }

// Read fails; the screen is output only.
func (stdout) Read(fd.Caller, *fd.Descriptor, []byte) (int, error) {
	return -1, fd.ErrNotSupported
}

// Write prints buf on the caller's terminal.
func (s stdout) Write(caller fd.Caller, _ *fd.Descriptor, buf []byte) (int, error) {
	return s.c.terms[caller.Terminal()].Write(buf), nil
}
