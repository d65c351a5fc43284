// Package imagefs reads and writes the boot-block filesystem image.
//
// Layout, in 4KB blocks:
//
//	block 0       boot block: entry count, inode count, data block count,
//	              52 reserved bytes, then 63 directory entries of 64 bytes
//	block 1..N    inodes: file length followed by 1023 data block numbers
//	block N+1..   data blocks
//
// A directory entry holds a 32-byte name, a 4-byte type, a 4-byte inode
// number and 24 reserved bytes. All integers are little-endian.
package imagefs

import (
	"encoding/binary"
	"errors"
	"fmt"

	"tinyos/pkg/vfs"
)

const (
	// BlockSize is the size of every block in the image.
	BlockSize = 4096
	// MaxEntries is the capacity of the boot block directory.
	MaxEntries = 63
	// MaxFileBlocks is the number of data blocks one inode can reference.
	MaxFileBlocks = (BlockSize - 4) / 4

	headerSize = 64
	dentrySize = 64
)

// Image errors.
var (
	ErrCorrupt      = errors.New("imagefs: corrupt image")
	ErrTooManyFiles = errors.New("imagefs: too many files")
	ErrNameTooLong  = errors.New("imagefs: name too long")
	ErrFileTooLarge = errors.New("imagefs: file too large")
)

// Image is a parsed filesystem image. It is immutable and safe for
// concurrent use.
type Image struct {
	data    []byte
	inodes  uint32
	blocks  uint32
	entries []vfs.Dentry
}

// Parse validates data and indexes its directory.
func Parse(data []byte) (*Image, error) {
	if len(data) < BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}

	le := binary.LittleEndian
	count := le.Uint32(data[0:])
	img := &Image{
		data:   data,
		inodes: le.Uint32(data[4:]),
		blocks: le.Uint32(data[8:]),
	}
	if count > MaxEntries {
		return nil, fmt.Errorf("%w: %d directory entries", ErrCorrupt, count)
	}
	if need := (1 + uint64(img.inodes) + uint64(img.blocks)) * BlockSize; uint64(len(data)) < need {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrCorrupt, len(data), need)
	}

	img.entries = make([]vfs.Dentry, 0, count)
	for i := 0; i < int(count); i++ {
		raw := data[headerSize+i*dentrySize:]
		d := vfs.Dentry{
			Name:  cString(raw[:vfs.NameLength]),
			Type:  vfs.FileType(le.Uint32(raw[32:])),
			Inode: le.Uint32(raw[36:]),
		}
		if d.Type == vfs.TypeRegular {
			if d.Inode >= img.inodes {
				return nil, fmt.Errorf("%w: %q references inode %d", ErrCorrupt, d.Name, d.Inode)
			}
			d.Length = img.length(d.Inode)
		}
		img.entries = append(img.entries, d)
	}
	return img, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (img *Image) inode(n uint32) []byte {
	off := (1 + int(n)) * BlockSize
	return img.data[off : off+BlockSize]
}

func (img *Image) length(n uint32) uint32 {
	return binary.LittleEndian.Uint32(img.inode(n))
}

// Lookup resolves name against the directory.
func (img *Image) Lookup(name string) (vfs.Dentry, error) {
	if name == "" || len(name) > vfs.NameLength {
		return vfs.Dentry{}, fmt.Errorf("%w: %q", vfs.ErrNotFound, name)
	}
	for _, d := range img.entries {
		if d.Name == name {
			return d, nil
		}
	}
	return vfs.Dentry{}, fmt.Errorf("%w: %q", vfs.ErrNotFound, name)
}

// Entry returns the entry at index.
func (img *Image) Entry(index int) (vfs.Dentry, error) {
	if index < 0 || index >= len(img.entries) {
		return vfs.Dentry{}, fmt.Errorf("%w: entry %d", vfs.ErrNotFound, index)
	}
	return img.entries[index], nil
}

// Len returns the number of directory entries.
func (img *Image) Len() int {
	return len(img.entries)
}

// ReadData copies data of inode starting at offset into buf.
func (img *Image) ReadData(inode uint32, offset uint32, buf []byte) (int, error) {
	if inode >= img.inodes {
		return 0, fmt.Errorf("%w: %d", vfs.ErrBadInode, inode)
	}
	node := img.inode(inode)
	length := binary.LittleEndian.Uint32(node)
	if offset >= length {
		return 0, nil
	}

	n := min(uint32(len(buf)), length-offset)
	for done := uint32(0); done < n; {
		pos := offset + done
		slot := pos / BlockSize
		if slot >= MaxFileBlocks {
			return int(done), fmt.Errorf("%w: inode %d offset %d", ErrCorrupt, inode, pos)
		}
		block := binary.LittleEndian.Uint32(node[4+4*slot:])
		if block >= img.blocks {
			return int(done), fmt.Errorf("%w: inode %d references block %d", ErrCorrupt, inode, block)
		}
		start := (1+int(img.inodes)+int(block))*BlockSize + int(pos%BlockSize)
		done += uint32(copy(buf[done:n], img.data[start:start+BlockSize-int(pos%BlockSize)]))
	}
	return int(n), nil
}

// Bytes returns the raw image.
func (img *Image) Bytes() []byte {
	return img.data
}
