// Package bytestrings provides line scanning helpers that work on both strings and byte slices
// without copying.
package bytestrings

import (
	"iter"
	"strings"
	"unsafe"
)

// NextNonEmptyLine returns the next non-empty line and the remaining text.
// Trailing carriage returns are removed.
func NextNonEmptyLine[T ~[]byte | ~string](text T) (T, T) {
	for {
		lfIndex := strings.IndexByte(*(*string)(unsafe.Pointer(&text)), '\n')
		if lfIndex == -1 {
			if len(text) > 0 && text[len(text)-1] == '\r' {
				return text[:len(text)-1], text[len(text):]
			}
			return text, text[len(text):]
		}
		line := text[:lfIndex]
		text = text[lfIndex+1:]
		if lfIndex == 0 {
			continue
		}
		if line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		return line, text
	}
}

// NonEmptyLines returns an iterator over the non-empty lines of text.
func NonEmptyLines[T ~[]byte | ~string](text T) iter.Seq[T] {
	return func(yield func(T) bool) {
		var line T
		for {
			line, text = NextNonEmptyLine(text)
			if len(line) == 0 {
				return
			}
			if !yield(line) {
				return
			}
		}
	}
}

// TrimComment returns s with the comment starting at the first '#' removed,
// and surrounding spaces and tabs trimmed.
func TrimComment(s string) string {
	if i := strings.IndexByte(s, '#'); i != -1 {
		s = s[:i]
	}
	return strings.Trim(s, " \t")
}
