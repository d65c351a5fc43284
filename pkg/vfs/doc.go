// Package vfs defines the read-only file store the kernel loads programs
// and serves open/read from.
//
// A store is a flat directory of at most 63 entries. Each entry has a name
// of up to 32 bytes, a type (RTC device, directory or regular file) and,
// for regular files, an inode holding the file length and its data blocks.
//
// Implementations:
//
//   - imagefs: the boot-block filesystem image format
//   - diskfs: loads or builds an image through any afs storage URL
package vfs
