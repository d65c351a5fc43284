package vfs

import (
	"errors"
	"fmt"
)

// NameLength is the maximum length of an entry name. A name of exactly
// NameLength bytes carries no terminator.
const NameLength = 32

// Store errors.
var (
	ErrNotFound = errors.New("vfs: file not found")
	ErrBadInode = errors.New("vfs: invalid inode")
)

// FileType classifies a directory entry.
type FileType uint32

const (
	// TypeRTC is the real-time clock device.
	TypeRTC FileType = 0
	// TypeDirectory is the root directory.
	TypeDirectory FileType = 1
	// TypeRegular is a regular file backed by an inode.
	TypeRegular FileType = 2
)

func (t FileType) String() string {
	switch t {
	case TypeRTC:
		return "rtc"
	case TypeDirectory:
		return "directory"
	case TypeRegular:
		return "file"
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Dentry is a directory entry.
type Dentry struct {
	Name  string
	Type  FileType
	Inode uint32
	// Length is the file size in bytes. Zero for devices and directories.
	Length uint32
}

// Store is a read-only flat file store.
type Store interface {
	// Lookup resolves name. It returns ErrNotFound if there is no entry
	// with that name or the name is longer than NameLength.
	Lookup(name string) (Dentry, error)

	// Entry returns the entry at index in directory order, or ErrNotFound
	// past the last entry.
	Entry(index int) (Dentry, error)

	// Len returns the number of directory entries.
	Len() int

	// ReadData copies file data starting at offset into buf and returns
	// the number of bytes copied. It returns 0 at or past the end of file.
	ReadData(inode uint32, offset uint32, buf []byte) (int, error)
}

// ReadFile reads the whole regular file described by d.
func ReadFile(s Store, d Dentry) ([]byte, error) {
	data := make([]byte, d.Length)
	n, err := s.ReadData(d.Inode, 0, data)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}
