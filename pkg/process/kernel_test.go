package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinyos/pkg/abi"
	"tinyos/pkg/machine"
	"tinyos/pkg/programs"
	"tinyos/pkg/pty"
	"tinyos/pkg/ulib"
	"tinyos/pkg/vfs/imagefs"
)

const waitFor = 5 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newKernel boots nothing. It builds an image holding the built-in programs,
// extra and a few malformed files, with a single terminal unless opts
// says otherwise.
func newKernel(t *testing.T, extra map[string]abi.Program, opts ...Option) *Kernel {
	t.Helper()
	reg := programs.Default()
	for name, prog := range extra {
		reg.Register(name, prog)
	}
	b := reg.Install(imagefs.NewBuilder()).
		Add("notes.txt", []byte("plain text that is long enough to have a header\n")).
		Add("badentry", programs.ImageAt("badentry", abi.LoadAddress)).
		Add("tiny", abi.Magic[:])
	data, err := b.Build()
	require.NoError(t, err)
	img, err := imagefs.Parse(data)
	require.NoError(t, err)

	all := append([]Option{WithLogger(quietLogger()), WithTerminals(1)}, opts...)
	k := New(img, reg, all...)
	t.Cleanup(k.Shutdown)
	return k
}

// park blocks the calling process on standard input forever.
func park(lib *ulib.Lib) {
	for {
		lib.Gets(abi.ArgsLength)
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		require.FailNow(t, "timed out waiting for a process")
	}
	var zero T
	return zero
}

func typeLine(k *Kernel, line string) {
	for _, code := range pty.Encode(line) {
		k.KeyboardInterrupt(code)
	}
}

func screen(k *Kernel, terminal int) string {
	return strings.Join(k.Screen(terminal), "\n")
}

func TestBootstrapVisitsEveryTerminal(t *testing.T) {
	k := newKernel(t, nil, WithTerminals(3))

	for i := 0; i < 3; i++ {
		k.TimerInterrupt()
		assert.Equal(t, i, k.ActivePID(i), "terminal %d", i)
	}
	assert.Equal(t, 3, k.Live())
	assert.Equal(t, []uint64{1, 1, 1}, k.Visits())

	for pid := 0; pid < 3; pid++ {
		p, ok := k.Process(pid)
		require.True(t, ok)
		assert.True(t, p.IsRoot())
		assert.Equal(t, StateRunning, p.State)
		assert.Equal(t, "shell", p.Command)
		assert.Equal(t, pid, p.Terminal)
		assert.NotEmpty(t, p.ID)
	}

	const rounds = 4
	for i := 0; i < 3*rounds; i++ {
		k.TimerInterrupt()
	}
	assert.Equal(t, []uint64{rounds + 1, rounds + 1, rounds + 1}, k.Visits())
	assert.Equal(t, 3, k.Live())

	stats := k.Stats()
	assert.Equal(t, uint64(3+3*rounds), stats.Ticks)
	assert.Equal(t, 2, stats.Current)
	assert.Equal(t, []int{0, 1, 2}, stats.Active)

	k.Inspect(func() {
		assert.Equal(t, 2, k.pages.Current())
		assert.Equal(t, KernelStackTop(2), k.cpu.TSS.ESP0)
		assert.Equal(t, machine.KernelDS, k.cpu.TSS.SS0)
		assert.Equal(t, 2, k.cpu.Owner())
	})
}

func TestBoot(t *testing.T) {
	k := newKernel(t, nil)
	require.NoError(t, k.Boot(context.Background()))
	assert.Equal(t, 0, k.ActivePID(0))
}

func TestBootWithoutShell(t *testing.T) {
	k := newKernel(t, nil, WithShell("missing"))
	assert.ErrorIs(t, k.Boot(context.Background()), ErrNotBooted)
	assert.Equal(t, NoPID, k.ActivePID(0))
	assert.Equal(t, 0, k.Live())
}

func TestExecuteGetargsRoundTrip(t *testing.T) {
	var k *Kernel
	args := make(chan string, 1)
	states := make(chan State, 1)
	status := make(chan int32, 1)

	k = newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			status <- lib.Execute("  echoargs   arg1 arg2")
			park(lib)
		},
		"echoargs": func(t abi.Trap) {
			lib := ulib.New(t)
			s, _ := lib.GetArgs(abi.ArgsLength + 1)
			args <- s
			parent, _ := k.Process(0)
			states <- parent.State
			lib.Halt(7)
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	assert.Equal(t, "arg1 arg2", receive(t, args))
	assert.Equal(t, StateWaiting, receive(t, states))
	assert.Equal(t, int32(7), receive(t, status))

	assert.Equal(t, 1, k.Live())
	p, ok := k.Process(0)
	require.True(t, ok)
	assert.Equal(t, StateRunning, p.State)
	_, ok = k.Process(1)
	assert.False(t, ok)
}

func TestChildProcessLayout(t *testing.T) {
	var k *Kernel
	seen := make(chan PCB, 1)
	done := make(chan struct{}, 1)

	k = newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			lib.Execute("child")
			done <- struct{}{}
			park(lib)
		},
		"child": func(abi.Trap) {
			p, _ := k.Process(1)
			seen <- p
			k.Inspect(func() {
				assert.Equal(t, 1, k.pages.Current())
				assert.Equal(t, KernelStackTop(1), k.cpu.TSS.ESP0)
				assert.Equal(t, 1, k.terms[0].pid)
			})
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	p := receive(t, seen)
	assert.Equal(t, 0, p.ParentPID)
	assert.Equal(t, "child", p.Command)
	assert.Empty(t, p.Args)
	assert.Equal(t, KernelStackTop(1), p.ESP0)
	assert.Equal(t, machine.KernelDS, p.SS0)
	receive(t, done)

	k.Inspect(func() {
		assert.Equal(t, 0, k.pages.Current())
		assert.Equal(t, KernelStackTop(0), k.cpu.TSS.ESP0)
		assert.Equal(t, 0, k.terms[0].pid)
	})
}

func TestExecuteFailures(t *testing.T) {
	statuses := make(chan []int32, 1)
	k := newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			var out []int32
			for _, cmd := range []string{
				"missing",
				"notes.txt",
				"tiny",
				".",
				"rtc",
				"",
				strings.Repeat("x", abi.NameLength+1),
				"cat " + strings.Repeat("a", abi.ArgsLength+1),
			} {
				out = append(out, lib.Execute(cmd))
			}
			statuses <- out
			park(lib)
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	for i, st := range receive(t, statuses) {
		assert.Equal(t, int32(-1), st, "command %d", i)
	}
	assert.Equal(t, 1, k.Live())
}

func TestSpawnErrors(t *testing.T) {
	k := newKernel(t, nil)

	tests := []struct {
		command string
		want    error
	}{
		{"", ErrBadCommand},
		{"   ", ErrBadCommand},
		{strings.Repeat("n", abi.NameLength+1), ErrBadCommand},
		{"shell " + strings.Repeat("a", abi.ArgsLength+1), ErrBadCommand},
		{"missing", ErrNotExecutable},
		{"notes.txt", ErrNotExecutable},
		{"tiny", ErrNotExecutable},
		{".", ErrNotExecutable},
		{"rtc", ErrNotExecutable},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			k.Inspect(func() {
				_, err := k.spawn(0, tt.command, nil)
				assert.ErrorIs(t, err, tt.want)
				assert.Equal(t, 0, k.procs.Live())
				assert.Equal(t, NoPID, k.terms[0].pid)
			})
		})
	}
}

func TestSpawnNoFreeSlot(t *testing.T) {
	k := newKernel(t, nil)
	k.Inspect(func() {
		for i := 0; i < MaxProcesses; i++ {
			p, err := k.procs.Alloc()
			if !assert.NoError(t, err) {
				return
			}
			p.State = StateRunning
		}
		_, err := k.spawn(0, "shell", nil)
		assert.ErrorIs(t, err, ErrNoFreeProcessSlot)
		assert.Equal(t, NoPID, k.terms[0].pid)
	})
}

func TestExecuteUntilTableFull(t *testing.T) {
	var k *Kernel
	live := make(chan int, 1)
	status := make(chan int32, 1)

	k = newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			status <- lib.Execute("nest")
			park(lib)
		},
		"nest": func(t abi.Trap) {
			lib := ulib.New(t)
			st := lib.Execute("nest")
			if st == -1 {
				live <- k.Live()
				lib.Halt(1)
			}
			lib.Halt(uint8(st + 1))
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	assert.Equal(t, MaxProcesses, receive(t, live))
	assert.Equal(t, int32(MaxProcesses-1), receive(t, status))
	assert.Equal(t, 1, k.Live())
}

func TestHaltStatusIsMasked(t *testing.T) {
	status := make(chan int32, 1)
	k := newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			status <- lib.Execute("big")
			park(lib)
		},
		"big": func(t abi.Trap) {
			t.Syscall(abi.SysHalt, 0x1FF, 0, 0)
		},
	}, WithShell("root"))
	k.TimerInterrupt()
	assert.Equal(t, int32(0xFF), receive(t, status))
}

func TestExceptionsHaltWith256(t *testing.T) {
	statuses := make(chan []int32, 1)
	k := newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			var out []int32
			for _, cmd := range []string{"fault pf", "fault de", "fault gp", "badentry"} {
				out = append(out, lib.Execute(cmd))
			}
			statuses <- out
			park(lib)
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	assert.Equal(t, []int32{256, 256, 256, 256}, receive(t, statuses))
	text := screen(k, 0)
	assert.Contains(t, text, "Page-Fault Exception (#PF)")
	assert.Contains(t, text, "Divide Error Exception (#DE)")
	assert.Contains(t, text, "General Protection Exception (#GP)")
	assert.Contains(t, text, "Invalid Opcode Exception (#UD)")
	assert.Equal(t, 1, k.Live())
}

func TestVidmap(t *testing.T) {
	var k *Kernel
	addrs := make(chan uint32, 1)
	rets := make(chan []int32, 1)
	mapped := make(chan bool, 2)

	k = newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			lib.Execute("draw")
			k.Inspect(func() { mapped <- k.pages.VideoMapped() })
			park(lib)
		},
		"draw": func(t abi.Trap) {
			lib := ulib.New(t)
			rets <- []int32{
				t.Syscall(abi.SysVidmap, 0, 0, 0),
				t.Syscall(abi.SysVidmap, abi.ImageTop-3, 0, 0),
				t.Syscall(abi.SysVidmap, abi.ImageBase-4, 0, 0),
			}
			addr, ret := lib.Vidmap()
			if ret != 0 {
				lib.Halt(1)
			}
			addrs <- addr
			k.Inspect(func() { mapped <- k.pages.VideoMapped() })
			t.Store(addr, []byte{'Z', 0x07})
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	assert.Equal(t, []int32{-1, -1, -1}, receive(t, rets))
	assert.Equal(t, uint32(abi.VidmapAddress), receive(t, addrs))
	assert.True(t, receive(t, mapped))
	assert.False(t, receive(t, mapped))
	assert.True(t, strings.HasPrefix(k.Screen(0)[0], "Z"))
}

func TestVidmapFollowsScheduling(t *testing.T) {
	var k *Kernel
	ready := make(chan struct{}, 1)
	k = newKernel(t, map[string]abi.Program{
		"viewer": func(t abi.Trap) {
			lib := ulib.New(t)
			if _, ret := lib.Vidmap(); ret != 0 {
				lib.Halt(1)
			}
			ready <- struct{}{}
			park(lib)
		},
	}, WithShell("viewer"), WithTerminals(2))

	k.TimerInterrupt()
	receive(t, ready)
	k.Inspect(func() { assert.True(t, k.pages.VideoMapped()) })

	k.TimerInterrupt()
	receive(t, ready)
	k.Inspect(func() {
		assert.True(t, k.pages.VideoMapped())
		// Terminal 1 is in the background, so its page is a backing page.
		pa, err := k.cpu.MMU.Translate(abi.VidmapAddress, machine.AccessUser)
		assert.NoError(t, err)
		assert.Equal(t, k.console.Terminal(1).Video(), pa)
	})

	k.TimerInterrupt()
	k.Inspect(func() {
		pa, err := k.cpu.MMU.Translate(abi.VidmapAddress, machine.AccessUser)
		assert.NoError(t, err)
		assert.Equal(t, k.console.Terminal(0).Video(), pa)
	})
}

func TestRootHaltRestartsShell(t *testing.T) {
	var boots atomic.Int32
	k := newKernel(t, map[string]abi.Program{
		"oneshot": func(t abi.Trap) {
			lib := ulib.New(t)
			n := boots.Add(1)
			lib.Puts("boot " + ulib.Itoa(int(n)) + "\n")
			if n < 3 {
				return
			}
			park(lib)
		},
	}, WithShell("oneshot"))
	k.TimerInterrupt()

	require.Eventually(t, func() bool { return boots.Load() == 3 }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(screen(k, 0), "boot 3")
	}, waitFor, time.Millisecond)

	assert.Equal(t, 1, k.Live())
	assert.Equal(t, 0, k.ActivePID(0))
	p, ok := k.Process(0)
	require.True(t, ok)
	assert.True(t, p.IsRoot())
	assert.Contains(t, screen(k, 0), "boot 1\nboot 2\nboot 3")
}

func TestSyserr(t *testing.T) {
	status := make(chan int32, 1)
	k := newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			lib := ulib.New(t)
			status <- lib.Execute("syserr")
			park(lib)
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	assert.Equal(t, int32(0), receive(t, status))
	text := screen(k, 0)
	assert.Contains(t, text, "PASS: descriptor table exhaustion")
	assert.NotContains(t, text, "FAIL")
}

func TestOversizedWriteFailsBeforeCopy(t *testing.T) {
	type result struct {
		rets      []int32
		allocated uint64
	}
	results := make(chan result, 1)
	k := newKernel(t, map[string]abi.Program{
		"root": func(t abi.Trap) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			rets := []int32{
				t.Syscall(abi.SysWrite, 1, 0, 0x7FFFFFFF),
				t.Syscall(abi.SysWrite, 1, abi.ImageBase, 0x7FFFFFFF),
				t.Syscall(abi.SysWrite, 1, abi.LoadAddress, 1<<30),
			}
			runtime.ReadMemStats(&after)
			results <- result{rets: rets, allocated: after.TotalAlloc - before.TotalAlloc}
			park(ulib.New(t))
		},
	}, WithShell("root"))
	k.TimerInterrupt()

	r := receive(t, results)
	assert.Equal(t, []int32{-1, -1, -1}, r.rets)
	assert.Less(t, r.allocated, uint64(64<<20))
}

func TestShellRunsTypedCommand(t *testing.T) {
	k := newKernel(t, nil)
	k.TimerInterrupt()

	typeLine(k, "testprint\n")
	require.Eventually(t, func() bool {
		return strings.Contains(screen(k, 0), "the test succeeds")
	}, waitFor, time.Millisecond)

	typeLine(k, "cat frame0.txt\n")
	require.Eventually(t, func() bool {
		return strings.Contains(screen(k, 0), "><>")
	}, waitFor, time.Millisecond)

	frame, ok := programs.Asset("frame0.txt")
	require.True(t, ok)
	counts, err := programs.Count(frame)
	require.NoError(t, err)
	typeLine(k, "wc frame0.txt\n")
	require.Eventually(t, func() bool {
		return strings.Contains(screen(k, 0), fmt.Sprintf("%7d frame0.txt", counts.Bytes))
	}, waitFor, time.Millisecond)

	typeLine(k, "nosuch\n")
	require.Eventually(t, func() bool {
		return strings.Contains(screen(k, 0), "no such command")
	}, waitFor, time.Millisecond)

	require.Eventually(t, func() bool { return k.Live() == 1 }, waitFor, time.Millisecond)
}

func TestTerminalsRunIndependently(t *testing.T) {
	k := newKernel(t, nil, WithTerminals(2))
	k.TimerInterrupt()
	k.TimerInterrupt()

	typeLine(k, "counter 3\n")
	require.Eventually(t, func() bool {
		k.TimerInterrupt()
		return strings.Contains(screen(k, 0), "1\n2\n3")
	}, waitFor, time.Millisecond)
	assert.NotContains(t, screen(k, 1), "counter")

	for _, code := range pty.EncodeSwitch(1) {
		k.KeyboardInterrupt(code)
	}
	typeLine(k, "hello\n")
	require.Eventually(t, func() bool {
		k.TimerInterrupt()
		return strings.Contains(screen(k, 1), "what's your name?")
	}, waitFor, time.Millisecond)
	typeLine(k, "Ada\n")
	require.Eventually(t, func() bool {
		k.TimerInterrupt()
		return strings.Contains(screen(k, 1), "Hello, Ada")
	}, waitFor, time.Millisecond)
	assert.NotContains(t, screen(k, 0), "Ada")
}

func TestShutdownUnwindsBlockedProcesses(t *testing.T) {
	k := newKernel(t, nil, WithTerminals(3))
	for i := 0; i < 3; i++ {
		k.TimerInterrupt()
	}
	done := make(chan struct{})
	go func() {
		k.Shutdown()
		close(done)
	}()
	receive(t, done)
	assert.False(t, k.TimerInterrupt())
	assert.False(t, k.KeyboardInterrupt(0x1E))
}
