package scanner

import "unicode/utf8"

// runeCursor converts increasing byte offsets of a string into rune offsets
// without rescanning from the start each time.
type runeCursor struct {
	text    string
	byteOff int
	runeOff int
}

func newRuneCursor(text string) *runeCursor {
	return &runeCursor{text: text}
}

// runeOffset returns the rune offset of byte offset b. Offsets are expected
// to be non-decreasing; a smaller offset restarts the count.
func (c *runeCursor) runeOffset(b int) int {
	if b < c.byteOff {
		c.byteOff, c.runeOff = 0, 0
	}
	c.runeOff += utf8.RuneCountInString(c.text[c.byteOff:b])
	c.byteOff = b
	return c.runeOff
}

// backRunes returns the byte offset n runes before b, clamped at 0.
func backRunes(text string, b, n int) int {
	for ; n > 0 && b > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:b])
		b -= size
	}
	return b
}

// forwardRunes returns the byte offset n runes after b, clamped at len(text).
func forwardRunes(text string, b, n int) int {
	for ; n > 0 && b < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[b:])
		b += size
	}
	return b
}
