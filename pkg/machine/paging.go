package machine

// Flags holds the attribute bits shared by directory and table entries.
type Flags uint32

const (
	FlagPresent      Flags = 1 << 0
	FlagWritable     Flags = 1 << 1
	FlagUser         Flags = 1 << 2
	FlagWriteThrough Flags = 1 << 3
	FlagCacheDisable Flags = 1 << 4
	FlagAccessed     Flags = 1 << 5
	FlagDirty        Flags = 1 << 6
	// FlagLarge is the page-size bit of a directory entry (4MB page).
	FlagLarge  Flags = 1 << 7
	FlagGlobal Flags = 1 << 8

	flagMask      = 0xFFF
	largeAddrMask = 0xFFC00000
)

// PDE is a page directory entry.
type PDE uint32

// PTE is a page table entry.
type PTE uint32

// NewLargePDE returns a directory entry mapping a 4MB page at phys.
func NewLargePDE(phys uint32, flags Flags) PDE {
	return PDE(phys&largeAddrMask | uint32(flags|FlagLarge)&flagMask)
}

// NewTablePDE returns a directory entry pointing at the page table stored
// at physical address table.
func NewTablePDE(table uint32, flags Flags) PDE {
	return PDE(table&^flagMask | uint32(flags&^FlagLarge)&flagMask)
}

// Present reports whether the entry is valid.
func (e PDE) Present() bool { return Flags(e)&FlagPresent != 0 }

// Large reports whether the entry maps a 4MB page directly.
func (e PDE) Large() bool { return Flags(e)&FlagLarge != 0 }

// Flags returns the attribute bits of the entry.
func (e PDE) Flags() Flags { return Flags(e) & flagMask }

// Address returns the page base for large entries and the page table
// address otherwise.
func (e PDE) Address() uint32 {
	if e.Large() {
		return uint32(e) & largeAddrMask
	}
	return uint32(e) &^ flagMask
}

// NewPTE returns a table entry mapping the 4KB frame at phys.
func NewPTE(phys uint32, flags Flags) PTE {
	return PTE(phys&^flagMask | uint32(flags)&flagMask)
}

// Present reports whether the entry is valid.
func (e PTE) Present() bool { return Flags(e)&FlagPresent != 0 }

// Flags returns the attribute bits of the entry.
func (e PTE) Flags() Flags { return Flags(e) & flagMask }

// Address returns the frame base.
func (e PTE) Address() uint32 { return uint32(e) &^ flagMask }

// PageDirectory is the top level of the paging structure.
type PageDirectory [EntryCount]PDE

// PageTable maps one 4MB region in 4KB pages.
type PageTable [EntryCount]PTE

// DirectoryIndex returns the directory slot covering va.
func DirectoryIndex(va uint32) int { return int(va >> 22) }

// TableIndex returns the table slot covering va.
func TableIndex(va uint32) int { return int(va>>12) & (EntryCount - 1) }
