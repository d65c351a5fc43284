package paging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinyos/pkg/abi"
	"tinyos/pkg/machine"
)

func newMapper() (*Mapper, *machine.MMU) {
	mmu := machine.NewMMU(machine.NewMemory(ProcessBase0 + 6*machine.LargePageSize))
	return New(mmu, 6, 3), mmu
}

func TestBootMappings(t *testing.T) {
	_, mmu := newMapper()

	pa, err := mmu.Translate(VideoMemory+10, machine.AccessWrite)
	require.NoError(t, err)
	assert.Equal(t, uint32(VideoMemory+10), pa)

	pa, err = mmu.Translate(BackingPage(2), machine.AccessRead)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xBB000), pa)

	pa, err = mmu.Translate(KernelBase+0x1234, machine.AccessRead)
	require.NoError(t, err)
	assert.Equal(t, uint32(KernelBase+0x1234), pa)

	// kernel pages are not user accessible
	_, err = mmu.Translate(KernelBase, machine.AccessUser)
	var pf *machine.PageFault
	assert.True(t, errors.As(err, &pf))

	// nothing is mapped at the image slot yet
	_, err = mmu.Translate(abi.ImageBase, machine.AccessUser)
	assert.True(t, errors.As(err, &pf))
}

func TestMapProcessIsolation(t *testing.T) {
	m, mmu := newMapper()

	for pid := 0; pid < 6; pid++ {
		m.MapProcess(pid)
		assert.Equal(t, pid, m.Current())
		require.NoError(t, mmu.Write(abi.ImageBase+0x48000, []byte{byte(pid + 1)}, machine.AccessUser))
	}

	for pid := 0; pid < 6; pid++ {
		got := make([]byte, 1)
		require.NoError(t, mmu.Memory().Read(ProcessBase(pid)+0x48000, got))
		assert.Equal(t, byte(pid+1), got[0], "region of pid %d", pid)

		m.MapProcess(pid)
		require.NoError(t, mmu.Read(abi.ImageBase+0x48000, got, machine.AccessUser))
		assert.Equal(t, byte(pid+1), got[0], "view of pid %d", pid)
	}
}

func TestMapProcessFlushes(t *testing.T) {
	m, mmu := newMapper()
	before := mmu.Flushes()
	m.MapProcess(1)
	assert.Equal(t, before+1, mmu.Flushes())
	assert.Equal(t, uint32(12<<20), ProcessBase(1))
}

func TestMapProcessOutOfRange(t *testing.T) {
	m, _ := newMapper()
	assert.Panics(t, func() { m.MapProcess(6) })
	assert.Panics(t, func() { m.MapProcess(-1) })
}

func TestVideoMapping(t *testing.T) {
	m, mmu := newMapper()

	m.MapVideo(BackingPage(1))
	assert.True(t, m.VideoMapped())
	require.NoError(t, mmu.Write(abi.VidmapAddress+2, []byte{'x'}, machine.AccessUser))

	got := make([]byte, 1)
	require.NoError(t, mmu.Memory().Read(BackingPage(1)+2, got))
	assert.Equal(t, byte('x'), got[0])

	flushes := mmu.Flushes()
	m.UnmapVideo()
	assert.False(t, m.VideoMapped())
	assert.Equal(t, flushes+1, mmu.Flushes())

	err := mmu.Write(abi.VidmapAddress, []byte{'y'}, machine.AccessUser)
	var pf *machine.PageFault
	assert.True(t, errors.As(err, &pf))
}

func TestImageSlotIsOneLargePage(t *testing.T) {
	assert.Equal(t, machine.LargePageSize, abi.ImageTop-abi.ImageBase)
	assert.Equal(t, machine.DirectoryIndex(abi.ImageBase), machine.DirectoryIndex(abi.UserStack))
	assert.NotEqual(t, machine.DirectoryIndex(abi.ImageBase), machine.DirectoryIndex(abi.VidmapAddress))
}
