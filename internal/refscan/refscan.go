// Package refscan implements the identifier/reference tokenizer described
// by spec.md §4.4: a CODE/IN_STRING/IN_LINE_COMMENT state machine that
// finds textual occurrences of a set of target names, skipping comments
// and string literals.
package refscan

import (
	"strings"

	"github.com/okurashoichi/serena-vbs/internal/position"
)

// Hit is one textual identifier occurrence matching a target name.
type Hit struct {
	Name  string // token text as it appears in source (original case)
	Range position.Range
}

// Names is a case-insensitive set of target identifiers to look for.
type Names map[string]struct{}

// NewNames builds a target set from a list of names, case-folding each.
func NewNames(names []string) Names {
	n := make(Names, len(names))
	for _, name := range names {
		n[strings.ToLower(name)] = struct{}{}
	}
	return n
}

func (n Names) has(token string) bool {
	_, ok := n[strings.ToLower(token)]
	return ok
}

type scanState int

const (
	stCode scanState = iota
	stString
	stLineComment
)

// Scan walks content and returns every identifier token whose case-folded
// text is in targets, with its exact byte-derived Range. Positions are
// expressed relative to the start of content (offset 0,0); callers
// anchoring into a larger document (e.g. an ASP fragment) must apply
// position.OffsetRange themselves, matching the convention vbparser uses.
func Scan(content string, targets Names) []Hit {
	li := position.NewLineIndex(content)
	var hits []Hit

	state := stCode
	i := 0
	n := len(content)
	for i < n {
		c := content[i]
		switch state {
		case stLineComment:
			if c == '\n' {
				state = stCode
			}
			i++
			continue
		case stString:
			if c == '"' {
				if i+1 < n && content[i+1] == '"' {
					i += 2
					continue
				}
				state = stCode
			}
			i++
			continue
		}

		// state == stCode
		switch {
		case c == '\'':
			state = stLineComment
			i++
		case c == '"':
			state = stString
			i++
		case isIdentStart(c):
			start := i
			i++
			for i < n && isIdentPart(content[i]) {
				i++
			}
			token := content[start:i]
			if isRemToken(content, start, token) {
				state = stLineComment
				continue
			}
			if targets.has(token) {
				hits = append(hits, Hit{Name: token, Range: li.MakeRange(start, i)})
			}
		default:
			i++
		}
	}
	return hits
}

// isRemToken reports whether token is a statement-boundary REM keyword,
// i.e. "rem" (case-insensitive) preceded by start-of-line/whitespace/':'
// and followed by whitespace or end of input/line.
func isRemToken(content string, start int, token string) bool {
	if !strings.EqualFold(token, "rem") {
		return false
	}
	if start > 0 {
		prev := content[start-1]
		if prev != ' ' && prev != '\t' && prev != ':' && prev != '\n' {
			return false
		}
	}
	end := start + len(token)
	if end < len(content) {
		next := content[end]
		if next != ' ' && next != '\t' && next != '\n' && next != '\r' {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
