package graphics

import (
	"bytes"
	"image"
	"io"

	"github.com/fogleman/gg"

	"tinyos/pkg/pty"
)

// Width and Height are the size of a rendered screen.
const (
	Width  = pty.Cols * CellWidth
	Height = pty.Rows * CellHeight
)

// Render draws every cell of s.
func Render(s pty.Screen) image.Image {
	dc := gg.NewContext(Width, Height)
	for y := 0; y < pty.Rows; y++ {
		for x := 0; x < pty.Cols; x++ {
			ch, attr := s.Cell(x, y)
			fg, bg := Colors(attr)
			px, py := float64(x*CellWidth), float64(y*CellHeight)

			dc.SetColor(bg)
			dc.DrawRectangle(px, py, CellWidth, CellHeight)
			dc.Fill()

			if ch <= ' ' || ch >= 0x7F {
				continue
			}
			dc.SetColor(fg)
			dc.DrawString(string(rune(ch)), px, py+baseline)
		}
	}
	return dc.Image()
}

// WritePNG renders s and encodes it to w.
func WritePNG(w io.Writer, s pty.Screen) error {
	return gg.NewContextForImage(Render(s)).EncodePNG(w)
}

// PNG renders s to PNG bytes.
func PNG(s pty.Screen) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
