package imagefs

import (
	"encoding/binary"
	"fmt"

	"tinyos/pkg/vfs"
)

type file struct {
	name string
	kind vfs.FileType
	data []byte
}

// Builder assembles an image. The root directory "." is always entry 0.
type Builder struct {
	files []file
}

// NewBuilder creates a builder holding only the root directory.
func NewBuilder() *Builder {
	return &Builder{files: []file{{name: ".", kind: vfs.TypeDirectory}}}
}

// Add appends a regular file.
func (b *Builder) Add(name string, data []byte) *Builder {
	b.files = append(b.files, file{name: name, kind: vfs.TypeRegular, data: data})
	return b
}

// AddDevice appends the RTC device entry.
func (b *Builder) AddDevice(name string) *Builder {
	b.files = append(b.files, file{name: name, kind: vfs.TypeRTC})
	return b
}

// Build encodes the image.
func (b *Builder) Build() ([]byte, error) {
	if len(b.files) > MaxEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyFiles, len(b.files))
	}

	var inodes, blocks uint32
	for _, f := range b.files {
		if len(f.name) > vfs.NameLength {
			return nil, fmt.Errorf("%w: %q", ErrNameTooLong, f.name)
		}
		if f.kind != vfs.TypeRegular {
			continue
		}
		n := (len(f.data) + BlockSize - 1) / BlockSize
		if n > MaxFileBlocks {
			return nil, fmt.Errorf("%w: %q is %d bytes", ErrFileTooLarge, f.name, len(f.data))
		}
		inodes++
		blocks += uint32(n)
	}

	le := binary.LittleEndian
	out := make([]byte, (1+int(inodes)+int(blocks))*BlockSize)
	le.PutUint32(out[0:], uint32(len(b.files)))
	le.PutUint32(out[4:], inodes)
	le.PutUint32(out[8:], blocks)

	var inode, block uint32
	for i, f := range b.files {
		raw := out[headerSize+i*dentrySize:]
		copy(raw[:vfs.NameLength], f.name)
		le.PutUint32(raw[32:], uint32(f.kind))
		if f.kind != vfs.TypeRegular {
			continue
		}
		le.PutUint32(raw[36:], inode)

		node := out[(1+int(inode))*BlockSize:]
		le.PutUint32(node, uint32(len(f.data)))
		for off, slot := 0, 0; off < len(f.data); off, slot = off+BlockSize, slot+1 {
			le.PutUint32(node[4+4*slot:], block)
			start := (1 + int(inodes) + int(block)) * BlockSize
			copy(out[start:start+BlockSize], f.data[off:])
			block++
		}
		inode++
	}
	return out, nil
}
