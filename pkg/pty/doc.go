/*
Package pty provides the text-mode virtual terminals of the machine.

Each terminal owns an 80x25 screen of character/attribute pairs, a cursor
and a 128-byte input line. The visible terminal's screen lives in video
memory at 0xB8000; every hidden terminal keeps its screen in a private
backing page right after it. Switching the visible terminal copies pages
so that writes never need to know whether their terminal is on display.

# Keyboard

Scancode set 1 make and break codes are translated with shift, caps lock,
ctrl and alt state. Keystrokes always go to the visible terminal:

  - printable keys are appended to the line and echoed
  - Enter completes the line, which stdin read then consumes
  - Backspace erases the last character of an incomplete line
  - Ctrl+L clears the screen and redraws the pending line
  - Alt+F1..F3 switch the visible terminal

# Descriptor Operations

StdinOps and StdoutOps return the operations bound to descriptor slots 0
and 1. They select the terminal of the calling process, not the visible
one.

All terminal state is guarded by the CPU interrupt lock.
*/
package pty
