package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tty "github.com/mattn/go-tty"

	"tinyos/pkg/process"
	"tinyos/pkg/pty"
)

const (
	keyEscape = 0x1B
	keyQuit   = 0x1D // Ctrl+]
	keyDelete = 0x7F
)

// hostConsole connects the host terminal to the kernel's console.
type hostConsole struct {
	k   *process.Kernel
	tty *tty.TTY
	out io.Writer
}

func attach(k *process.Kernel) (*hostConsole, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	return &hostConsole{k: k, tty: t, out: t.Output()}, nil
}

func (c *hostConsole) Close() error {
	fmt.Fprint(c.out, "\x1b[2J\x1b[H")
	return c.tty.Close()
}

// readKeys forwards host keystrokes until the quit key or ctx is done.
func (c *hostConsole) readKeys(ctx context.Context) {
	restore, err := c.tty.Raw()
	if err == nil {
		defer restore()
	}
	escape := false
	for ctx.Err() == nil {
		r, err := c.tty.ReadRune()
		if err != nil {
			return
		}
		if escape {
			escape = false
			if r >= '1' && r <= '3' {
				c.send(pty.EncodeSwitch(int(r - '1')))
				continue
			}
		}
		switch {
		case r == keyQuit:
			return
		case r == keyEscape:
			escape = true
		case r == '\r' || r == '\n':
			c.send(pty.Encode("\n"))
		case r == keyDelete || r == '\b':
			c.send(pty.Encode("\b"))
		case r > 0 && r < ' ':
			c.send(pty.EncodeCtrl(byte(r) + 'a' - 1))
		case r < 0x80:
			c.send(pty.Encode(string(r)))
		}
	}
}

func (c *hostConsole) send(codes []byte) {
	for _, code := range codes {
		c.k.KeyboardInterrupt(code)
	}
}

// refresh redraws the visible terminal until ctx is done.
func (c *hostConsole) refresh(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var text string
		var cursor [2]int
		c.k.Inspect(func() {
			con := c.k.Console()
			term := con.Terminal(con.Visible())
			text = term.Screen().Dump()
			cursor = [2]int{term.X, term.Y}
		})
		if text == last {
			continue
		}
		last = text
		fmt.Fprintf(c.out, "\x1b[2J\x1b[H%s\x1b[%d;%dH",
			strings.ReplaceAll(text, "\n", "\r\n"), cursor[1]+1, cursor[0]+1)
	}
}
