package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Caret positions are byte offsets into a paragraph's content and always sit
// on a rune boundary.

func clampToRuneBoundary(text string, pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(text) {
		return len(text)
	}
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

func previousRuneBoundary(text string, pos int) int {
	pos = clampToRuneBoundary(text, pos)
	if pos == 0 {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(text[:pos])
	if size <= 0 {
		size = 1
	}
	return pos - size
}

func nextRuneBoundary(text string, pos int) int {
	pos = clampToRuneBoundary(text, pos)
	if pos >= len(text) {
		return len(text)
	}
	_, size := utf8.DecodeRuneInString(text[pos:])
	if size <= 0 {
		size = 1
	}
	return pos + size
}

// previousWordBoundary skips spaces, then the word before them.
func previousWordBoundary(text string, pos int) int {
	pos = clampToRuneBoundary(text, pos)
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:pos])
		if !unicode.IsSpace(r) {
			break
		}
		pos -= max(size, 1)
	}
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:pos])
		if unicode.IsSpace(r) {
			break
		}
		pos -= max(size, 1)
	}
	return pos
}

func nextWordBoundary(text string, pos int) int {
	pos = clampToRuneBoundary(text, pos)
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += max(size, 1)
	}
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if unicode.IsSpace(r) {
			break
		}
		pos += max(size, 1)
	}
	return pos
}

// cleanInput normalizes typed or pasted text to NFC and unifies line
// endings. Invalid UTF-8 is replaced rather than rejected.
func cleanInput(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(s)
}
