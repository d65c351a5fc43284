package graphics

import "image/color"

// Cell geometry in pixels.
const (
	CellWidth  = 8
	CellHeight = 16
	// baseline is the glyph baseline offset within a cell.
	baseline = 12
)

// Palette is the VGA text-mode palette indexed by attribute nibble.
var Palette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF}, // black
	{0x00, 0x00, 0xAA, 0xFF}, // blue
	{0x00, 0xAA, 0x00, 0xFF}, // green
	{0x00, 0xAA, 0xAA, 0xFF}, // cyan
	{0xAA, 0x00, 0x00, 0xFF}, // red
	{0xAA, 0x00, 0xAA, 0xFF}, // magenta
	{0xAA, 0x55, 0x00, 0xFF}, // brown
	{0xAA, 0xAA, 0xAA, 0xFF}, // light grey
	{0x55, 0x55, 0x55, 0xFF}, // dark grey
	{0x55, 0x55, 0xFF, 0xFF}, // light blue
	{0x55, 0xFF, 0x55, 0xFF}, // light green
	{0x55, 0xFF, 0xFF, 0xFF}, // light cyan
	{0xFF, 0x55, 0x55, 0xFF}, // light red
	{0xFF, 0x55, 0xFF, 0xFF}, // light magenta
	{0xFF, 0xFF, 0x55, 0xFF}, // yellow
	{0xFF, 0xFF, 0xFF, 0xFF}, // white
}

// Colors splits an attribute byte into foreground and background. A zero
// attribute, as in memory that was never written, reads as light grey on
// black.
func Colors(attr byte) (fg, bg color.RGBA) {
	if attr == 0 {
		attr = 0x07
	}
	return Palette[attr&0x0F], Palette[attr>>4&0x07]
}
