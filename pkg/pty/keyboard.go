package pty

// Scancode set 1 make codes.
const (
	ScanEscape    = 0x01
	ScanBackspace = 0x0E
	ScanTab       = 0x0F
	ScanEnter     = 0x1C
	ScanCtrl      = 0x1D
	ScanLeftShift = 0x2A
	ScanRightShft = 0x36
	ScanAlt       = 0x38
	ScanSpace     = 0x39
	ScanCapsLock  = 0x3A
	ScanF1        = 0x3B
	ScanF2        = 0x3C
	ScanF3        = 0x3D

	// Break is or-ed into a make code on key release.
	Break = 0x80
)

var (
	plain   [0x40]byte
	shifted [0x40]byte
	encode  = make(map[byte][]byte)
)

func init() {
	rows := []struct {
		start         byte
		normal, shift string
	}{
		{0x02, "1234567890-=", "!@#$%^&*()_+"},
		{0x10, "qwertyuiop[]", "QWERTYUIOP{}"},
		{0x1E, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
		{0x2B, "\\zxcvbnm,./", "|ZXCVBNM<>?"},
	}
	for _, r := range rows {
		for i := 0; i < len(r.normal); i++ {
			code := r.start + byte(i)
			plain[code], shifted[code] = r.normal[i], r.shift[i]
			encode[r.normal[i]] = []byte{code, code | Break}
			encode[r.shift[i]] = []byte{ScanLeftShift, code, code | Break, ScanLeftShift | Break}
		}
	}
	plain[ScanSpace], shifted[ScanSpace] = ' ', ' '
	plain[ScanTab], shifted[ScanTab] = '\t', '\t'
	encode[' '] = []byte{ScanSpace, ScanSpace | Break}
	encode['\t'] = []byte{ScanTab, ScanTab | Break}
	encode['\n'] = []byte{ScanEnter, ScanEnter | Break}
	encode['\b'] = []byte{ScanBackspace, ScanBackspace | Break}
}

// Action is what a keystroke asks the terminal to do.
type Action int

const (
	ActionChar Action = iota
	ActionEnter
	ActionBackspace
	ActionClear
	ActionSwitch
)

// Event is a translated keystroke.
type Event struct {
	Action Action
	// Char is set for ActionChar.
	Char byte
	// Terminal is set for ActionSwitch.
	Terminal int
}

// Keyboard tracks modifier state and translates scancodes.
type Keyboard struct {
	shift, caps, ctrl, alt bool
}

// Translate consumes one scancode. It returns false for modifier changes,
// key releases and keys without a meaning.
func (k *Keyboard) Translate(code byte) (Event, bool) {
	switch code {
	case ScanLeftShift, ScanRightShft:
		k.shift = true
		return Event{}, false
	case ScanLeftShift | Break, ScanRightShft | Break:
		k.shift = false
		return Event{}, false
	case ScanCtrl:
		k.ctrl = true
		return Event{}, false
	case ScanCtrl | Break:
		k.ctrl = false
		return Event{}, false
	case ScanAlt:
		k.alt = true
		return Event{}, false
	case ScanAlt | Break:
		k.alt = false
		return Event{}, false
	case ScanCapsLock:
		k.caps = !k.caps
		return Event{}, false
	case ScanEnter:
		return Event{Action: ActionEnter}, true
	case ScanBackspace:
		return Event{Action: ActionBackspace}, true
	case ScanF1, ScanF2, ScanF3:
		if k.alt {
			return Event{Action: ActionSwitch, Terminal: int(code - ScanF1)}, true
		}
		return Event{}, false
	}

	if code&Break != 0 || int(code) >= len(plain) {
		return Event{}, false
	}

	ch := plain[code]
	if ch == 0 {
		return Event{}, false
	}
	letter := ch >= 'a' && ch <= 'z'
	if k.ctrl {
		if ch == 'l' {
			return Event{Action: ActionClear}, true
		}
		return Event{}, false
	}
	if k.shift != (k.caps && letter) {
		ch = shifted[code]
	}
	return Event{Action: ActionChar, Char: ch}, true
}

// Encode returns the scancodes that type s on a keyboard with no
// modifiers held. Characters without a key are skipped.
func Encode(s string) []byte {
	var out []byte
	for i := 0; i < len(s); i++ {
		out = append(out, encode[s[i]]...)
	}
	return out
}

// EncodeCtrl returns the scancodes for Ctrl plus the key typing ch.
func EncodeCtrl(ch byte) []byte {
	keys := encode[ch]
	if len(keys) != 2 {
		return nil
	}
	return []byte{ScanCtrl, keys[0], keys[1], ScanCtrl | Break}
}

// EncodeSwitch returns the scancodes for Alt+F(terminal+1).
func EncodeSwitch(terminal int) []byte {
	f := byte(ScanF1 + terminal)
	return []byte{ScanAlt, f, f | Break, ScanAlt | Break}
}
