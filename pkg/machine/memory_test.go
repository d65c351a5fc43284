package machine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	mem := NewMemory(16 << 20)

	buf := make([]byte, 8)
	require.NoError(t, mem.Read(0x1000, buf))
	assert.Equal(t, make([]byte, 8), buf, "unwritten memory reads as zero")
	assert.Equal(t, 0, mem.Frames())

	// spans a frame boundary
	data := []byte("crossing a page")
	addr := uint32(2*PageSize - 5)
	require.NoError(t, mem.Write(addr, data))
	got := make([]byte, len(data))
	require.NoError(t, mem.Read(addr, got))
	assert.Equal(t, data, got)
	assert.Equal(t, 2, mem.Frames())
}

func TestMemoryBounds(t *testing.T) {
	mem := NewMemory(PageSize)

	tests := []struct {
		name string
		addr uint32
		n    int
		ok   bool
	}{
		{"inside", 0, PageSize, true},
		{"last byte", PageSize - 1, 1, true},
		{"past end", PageSize - 1, 2, false},
		{"far away", 0xFFFFFFF0, 0x20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mem.Write(tt.addr, make([]byte, tt.n))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrBusError), "Write() error = %v, want %v", err, ErrBusError)
			}
		})
	}
}

func TestMemoryCopy(t *testing.T) {
	mem := NewMemory(1 << 20)
	require.NoError(t, mem.Write(0x100, []byte{1, 2, 3, 4}))
	require.NoError(t, mem.Copy(0x8000, 0x100, 4))

	got := make([]byte, 4)
	require.NoError(t, mem.Read(0x8000, got))
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}
