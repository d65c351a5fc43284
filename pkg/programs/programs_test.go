package programs

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinyos/pkg/abi"
	"tinyos/pkg/vfs"
	"tinyos/pkg/vfs/imagefs"
)

// scriptTrap is a flat user memory and a scripted kernel. Halt ends the
// program goroutine the way the kernel does.
type scriptTrap struct {
	mem      map[uint32]byte
	input    []string
	out      bytes.Buffer
	executed []string
	status   int32
	halted   int32
	args     string
}

func newScriptTrap(input ...string) *scriptTrap {
	return &scriptTrap{mem: make(map[uint32]byte), input: input, halted: -1}
}

func (s *scriptTrap) cstring(va uint32) string {
	var out []byte
	for s.mem[va] != 0 {
		out = append(out, s.mem[va])
		va++
	}
	return string(out)
}

func (s *scriptTrap) Syscall(num, a, b, c uint32) int32 {
	switch num {
	case abi.SysHalt:
		s.halted = int32(a)
		runtime.Goexit()
	case abi.SysExecute:
		s.executed = append(s.executed, s.cstring(a))
		return s.status
	case abi.SysRead:
		if a != 0 || len(s.input) == 0 {
			return -1
		}
		line := s.input[0]
		s.input = s.input[1:]
		s.Store(b, []byte(line))
		return int32(len(line))
	case abi.SysWrite:
		buf := make([]byte, c)
		s.Load(b, buf)
		s.out.Write(buf)
		return int32(c)
	case abi.SysGetargs:
		if s.args == "" {
			return -1
		}
		s.Store(a, append([]byte(s.args), 0))
		return 0
	}
	return -1
}

func (s *scriptTrap) Load(va uint32, buf []byte) {
	for i := range buf {
		buf[i] = s.mem[va+uint32(i)]
	}
}

func (s *scriptTrap) Store(va uint32, data []byte) {
	for i, b := range data {
		s.mem[va+uint32(i)] = b
	}
}

func run(prog abi.Program, t abi.Trap) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		prog(t)
	}()
	<-done
}

func TestEntryPointsInsideImage(t *testing.T) {
	r := Default()
	seen := make(map[uint32]string)
	for _, name := range r.Names() {
		entry := EntryPoint(name)
		assert.GreaterOrEqual(t, entry, uint32(abi.LoadAddress), name)
		assert.Less(t, entry, uint32(abi.ImageTop), name)
		_, dup := seen[entry]
		assert.False(t, dup, name)
		seen[entry] = name
		assert.NotNil(t, r.Lookup(entry), name)
	}
	assert.Nil(t, r.Lookup(abi.LoadAddress))
}

func TestImageHeader(t *testing.T) {
	img := Image("shell")
	require.GreaterOrEqual(t, len(img), abi.HeaderSize)
	assert.Equal(t, abi.Magic[:], img[:4])
	assert.Equal(t, EntryPoint("shell"), binary.LittleEndian.Uint32(img[abi.EntryOffset:]))

	img = ImageAt("x", 0x1234)
	assert.Equal(t, uint32(0x1234), binary.LittleEndian.Uint32(img[abi.EntryOffset:]))
}

func TestRegisterSameNameTwice(t *testing.T) {
	r := NewRegistry()
	e1 := r.Register("a", func(abi.Trap) {})
	e2 := r.Register("a", func(abi.Trap) {})
	assert.Equal(t, e1, e2)
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestInstall(t *testing.T) {
	data, err := Default().Install(imagefs.NewBuilder()).Build()
	require.NoError(t, err)
	img, err := imagefs.Parse(data)
	require.NoError(t, err)

	d, err := img.Lookup("rtc")
	require.NoError(t, err)
	assert.Equal(t, vfs.TypeRTC, d.Type)

	for _, name := range []string{"shell", "ls", "cat", "fish", "frame0.txt", "frame1.txt"} {
		d, err := img.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, vfs.TypeRegular, d.Type, name)
	}
}

func TestShellStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int32
		want   string
	}{
		{"ok", 0, ""},
		{"missing", -1, "no such command\n"},
		{"exception", abi.ExceptionStatus, "program terminated by exception\n"},
		{"abnormal", 3, "program terminated abnormally\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScriptTrap("cat frame0.txt\n", "exit\n")
			s.status = tt.status
			run(Shell, s)

			assert.Equal(t, []string{"cat frame0.txt"}, s.executed)
			assert.Equal(t, int32(0), s.halted)
			assert.Equal(t, Prompt+tt.want+Prompt, s.out.String())
		})
	}
}

func TestShellSkipsBlankLines(t *testing.T) {
	s := newScriptTrap("\n", "   \n", "exit\n")
	run(Shell, s)
	assert.Empty(t, s.executed)
	assert.Equal(t, Prompt+Prompt+Prompt, s.out.String())
}

func TestShellReadFailure(t *testing.T) {
	s := newScriptTrap()
	run(Shell, s)
	assert.Equal(t, int32(1), s.halted)
	assert.Contains(t, s.out.String(), "read from keyboard failed")
}

func TestHello(t *testing.T) {
	s := newScriptTrap("Ada\n")
	run(Hello, s)
	assert.Equal(t, "Hi, what's your name? Hello, Ada\n", s.out.String())
	assert.Equal(t, int32(-1), s.halted)
}

func TestCounter(t *testing.T) {
	s := newScriptTrap()
	s.args = "3"
	run(Counter, s)
	assert.Equal(t, "1\n2\n3\n", s.out.String())

	s = newScriptTrap()
	s.args = "many"
	run(Counter, s)
	assert.Equal(t, int32(1), s.halted)
}

func TestSigtest(t *testing.T) {
	s := newScriptTrap()
	run(Sigtest, s)
	assert.Equal(t, "signals not supported\n", s.out.String())
}

func TestCatWithoutArguments(t *testing.T) {
	s := newScriptTrap()
	run(Cat, s)
	assert.Equal(t, int32(3), s.halted)
	assert.Equal(t, "could not read arguments\n", s.out.String())
}

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Counts
	}{
		{"empty", "", Counts{}},
		{"one line", "hello world\n", Counts{Lines: 1, Words: 2, Bytes: 12, Longest: 11}},
		{"no trailing newline", "a b\nccc", Counts{Lines: 2, Words: 3, Bytes: 7, Longest: 3}},
		{"blank lines", "\n\n", Counts{Lines: 2, Bytes: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Count([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
