package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProcessStateTransitions tests valid state transitions.
func TestProcessStateTransitions(t *testing.T) {
	p := &PCB{PID: 1}

	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{"Free to Running", StateFree, StateRunning, false},
		{"Running to Waiting", StateRunning, StateWaiting, false},
		{"Waiting to Running", StateWaiting, StateRunning, false},
		{"Running to Free", StateRunning, StateFree, false},
		{"Free to Waiting", StateFree, StateWaiting, true},
		{"Waiting to Free", StateWaiting, StateFree, true},
		{"Running to Running", StateRunning, StateRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.State = tt.from
			err := p.TransitionTo(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, p.State)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, p.State)
		})
	}
}

func TestMustTransitionPanics(t *testing.T) {
	p := &PCB{PID: 2, Command: "ls", State: StateFree}
	assert.Panics(t, func() { p.mustTransition(StateWaiting) })
}

func TestKernelStacks(t *testing.T) {
	for pid := 0; pid < MaxProcesses; pid++ {
		top := KernelStackTop(pid)
		assert.Equal(t, uint32(8<<20-8<<10*pid-4), top)
		assert.Equal(t, pid, FromStack(top), "top of stack %d", pid)
		assert.Equal(t, pid, FromStack(top-KernelStackSize+8), "bottom of stack %d", pid)
	}
}

func TestTableAllocLowestFree(t *testing.T) {
	tbl := NewTable(MaxProcesses)
	var pcbs []*PCB
	for i := 0; i < MaxProcesses; i++ {
		p, err := tbl.Alloc()
		require.NoError(t, err)
		assert.Equal(t, i, p.PID)
		p.State = StateRunning
		pcbs = append(pcbs, p)
	}
	assert.True(t, tbl.Full())

	_, err := tbl.Alloc()
	assert.ErrorIs(t, err, ErrNoFreeProcessSlot)

	tbl.Free(3)
	assert.Nil(t, tbl.Get(3))
	assert.Equal(t, MaxProcesses-1, tbl.Live())

	p, err := tbl.Alloc()
	require.NoError(t, err)
	assert.Equal(t, 3, p.PID)
	assert.Same(t, pcbs[3], p)
}

func TestTableGetRange(t *testing.T) {
	tbl := NewTable(2)
	assert.Equal(t, 2, tbl.Limit())
	assert.Nil(t, tbl.Get(-1))
	assert.Nil(t, tbl.Get(0))
	assert.Nil(t, tbl.Get(2))

	p, err := tbl.Alloc()
	require.NoError(t, err)
	p.State = StateRunning
	assert.Same(t, p, tbl.Get(0))

	p, err = tbl.Alloc()
	require.NoError(t, err)
	p.State = StateRunning
	_, err = tbl.Alloc()
	assert.ErrorIs(t, err, ErrNoFreeProcessSlot)
}

func TestIsRoot(t *testing.T) {
	assert.True(t, (&PCB{PID: 2, ParentPID: 2}).IsRoot())
	assert.False(t, (&PCB{PID: 2, ParentPID: 0}).IsRoot())
	assert.Equal(t, "cat[4]", (&PCB{PID: 4, Command: "cat"}).String())
}
