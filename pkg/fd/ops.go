package fd

import (
	"errors"

	"tinyos/pkg/vfs"
)

// FileOps serves regular files from a store.
type FileOps struct {
	Store vfs.Store
}

// Open starts reading at the beginning of the file.
func (FileOps) Open(_ Caller, d *Descriptor) error {
	d.Cursor = 0
	return nil
}

// Close releases nothing.
func (FileOps) Close(Caller, *Descriptor) error { return nil }

// Read copies from the cursor, bounded by the file length, and advances
// the cursor.
func (o FileOps) Read(_ Caller, d *Descriptor, buf []byte) (int, error) {
	n, err := o.Store.ReadData(d.Inode, d.Cursor, buf)
	if err != nil {
		return -1, err
	}
	d.Cursor += uint32(n)
	return n, nil
}

// Write fails; the store is read-only.
func (FileOps) Write(Caller, *Descriptor, []byte) (int, error) {
	return -1, ErrReadOnly
}

// DirOps serves the directory listing.
type DirOps struct {
	Store vfs.Store
}

// Open rewinds to the first entry.
func (DirOps) Open(_ Caller, d *Descriptor) error {
	d.Cursor = 0
	return nil
}

// Close releases nothing.
func (DirOps) Close(Caller, *Descriptor) error { return nil }

// Read returns the name of the entry under the cursor, at most
// vfs.NameLength bytes, and advances. After the last entry it returns 0
// and rewinds.
func (o DirOps) Read(_ Caller, d *Descriptor, buf []byte) (int, error) {
	entry, err := o.Store.Entry(int(d.Cursor))
	if errors.Is(err, vfs.ErrNotFound) {
		d.Cursor = 0
		return 0, nil
	}
	if err != nil {
		return -1, err
	}
	d.Cursor++
	return copy(buf, entry.Name), nil
}

// Write fails; the directory is read-only.
func (DirOps) Write(Caller, *Descriptor, []byte) (int, error) {
	return -1, ErrReadOnly
}
