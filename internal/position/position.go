// Package position implements the byte-offset <-> (line, UTF-16 character)
// arithmetic shared by every subsystem that hands positions across the
// ASP/VBScript/reference boundary.
//
// LSP positions are UTF-16 code units. The parser, the ASP extractor, and
// the reference scanner scan text by UTF-8 byte offset and convert through
// this package whenever they build a Position, so every Position they
// return already counts Character in UTF-16 units and the LSP layer copies
// it to the wire unchanged.
package position

import "unicode/utf8"

// Position is a zero-indexed (line, character) pair. Character is counted
// in UTF-16 code units, per the LSP wire format.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open [Start, End) span of Positions.
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether p lies within r ([start, end)).
func (r Range) Contains(p Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character >= r.End.Character {
		return false
	}
	return true
}

// LineIndex precomputes byte offsets of line starts for a document,
// treating "\r\n" as a single newline boundary (the offset recorded is the
// byte immediately after '\n').
type LineIndex struct {
	text  string
	lines []int // byte offset of the start of each line
}

// NewLineIndex builds a LineIndex over text.
func NewLineIndex(text string) *LineIndex {
	offs := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return &LineIndex{text: text, lines: offs}
}

// Text returns the underlying document text.
func (li *LineIndex) Text() string { return li.text }

// LineCount returns the number of lines in the document.
func (li *LineIndex) LineCount() int { return len(li.lines) }

func u16Width(r rune) int {
	if r < 0x10000 {
		return 1
	}
	return 2
}

// OffsetToPosition converts a byte offset into the document into a
// (line, UTF-16 character) Position.
func (li *LineIndex) OffsetToPosition(off int) Position {
	if off < 0 {
		off = 0
	}
	if off > len(li.text) {
		off = len(li.text)
	}
	i, j := 0, len(li.lines)
	for i+1 < j {
		m := (i + j) / 2
		if li.lines[m] <= off {
			i = m
		} else {
			j = m
		}
	}
	u16 := 0
	for k := li.lines[i]; k < off && k < len(li.text); {
		r, sz := utf8.DecodeRuneInString(li.text[k:])
		if sz <= 0 {
			sz = 1
		}
		if r == '\r' {
			k += sz
			continue
		}
		if r == '\n' {
			break
		}
		u16 += u16Width(r)
		k += sz
	}
	return Position{Line: i, Character: u16}
}

// PositionToOffset converts a (line, UTF-16 character) Position back into a
// byte offset into the document.
func (li *LineIndex) PositionToOffset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(li.lines) {
		return len(li.text)
	}
	i := li.lines[p.Line]
	need := p.Character
	for i < len(li.text) && need > 0 {
		r, sz := utf8.DecodeRuneInString(li.text[i:])
		if sz <= 0 {
			sz = 1
		}
		if r == '\r' {
			i += sz
			continue
		}
		if r == '\n' {
			break
		}
		need -= u16Width(r)
		i += sz
	}
	return i
}

// MakeRange builds a Range from a pair of byte offsets.
func (li *LineIndex) MakeRange(start, end int) Range {
	return Range{Start: li.OffsetToPosition(start), End: li.OffsetToPosition(end)}
}

// Offset applies a fragment anchor (anchorLine, anchorChar) to a position
// that was computed relative to the start of an embedded fragment (e.g. a
// VBScript block extracted from an ASP file). Only positions on the
// fragment's first line receive the character offset; later lines are
// absolute within the fragment and only need the line offset. This is the
// single utility spec.md §4.1/§4.3/§9 calls for so no other code performs
// this arithmetic ad hoc.
func Offset(anchorLine, anchorChar int, p Position) Position {
	if p.Line == 0 {
		return Position{Line: anchorLine, Character: anchorChar + p.Character}
	}
	return Position{Line: anchorLine + p.Line, Character: p.Character}
}

// OffsetRange applies Offset to both ends of r.
func OffsetRange(anchorLine, anchorChar int, r Range) Range {
	return Range{
		Start: Offset(anchorLine, anchorChar, r.Start),
		End:   Offset(anchorLine, anchorChar, r.End),
	}
}
