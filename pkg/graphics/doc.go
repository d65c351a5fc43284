/*
Package graphics renders text-mode screens to images.

Each character cell becomes an 8x16 pixel block coloured from the standard
16-colour VGA palette by its attribute byte. Glyphs are drawn with the
default face of github.com/fogleman/gg.

	var buf bytes.Buffer
	if err := graphics.WritePNG(&buf, term.Screen()); err != nil {
		return err
	}
*/
package graphics
