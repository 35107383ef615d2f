// Package aspext extracts server-side VBScript fragments from mixed
// HTML/ASP source text, preserving exact positions back to the original
// file so downstream parsing can report symbol ranges in the coordinate
// system the client actually opened.
package aspext

import (
	"regexp"
	"strings"

	"github.com/okurashoichi/serena-vbs/internal/position"
)

// ScriptBlock is a maximal VBScript region lifted out of an ASP file.
type ScriptBlock struct {
	Content string
	// AnchorLine/AnchorChar is the position of the first byte of Content
	// in the original file — not the position of the opening delimiter.
	AnchorLine int
	AnchorChar int
	IsInline   bool
}

// inline output expressions: <%= ... %>
var inlinePattern = regexp.MustCompile(`(?s)<%=.*?%>`)

// server script tags: <script ... runat="server" ...> ... </script>
var scriptTagPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
var runatServerPattern = regexp.MustCompile(`(?is)runat\s*=\s*("server"|'server')`)
var scriptOpenTagPattern = regexp.MustCompile(`(?is)^<script\b[^>]*>`)
var scriptCloseTagPattern = regexp.MustCompile(`(?is)</script\s*>\z`)

// Extract returns every ScriptBlock in content, ordered by position.
// Unterminated <% blocks extend to EOF (tolerant, per spec.md §4.1).
func Extract(content string) []ScriptBlock {
	var blocks []ScriptBlock
	blocks = append(blocks, findDelimitedBlocks(content)...)
	blocks = append(blocks, findScriptTagBlocks(content)...)
	sortBlocks(blocks)
	return blocks
}

func findDelimitedBlocks(content string) []ScriptBlock {
	var blocks []ScriptBlock
	li := position.NewLineIndex(content)

	// Scan manually so an unterminated "<%" extends to EOF instead of
	// producing no match at all (regexp has no notion of "rest of file").
	i := 0
	for i < len(content) {
		start := indexFrom(content, "<%", i)
		if start < 0 {
			break
		}
		// Skip inline expressions <%= ... %>; they carry no symbols.
		if start+2 < len(content) && content[start+2] == '=' {
			end := indexFrom(content, "%>", start+3)
			if end < 0 {
				// Unterminated inline expression: nothing more to scan.
				break
			}
			i = end + 2
			continue
		}
		contentStart := start + 2
		end := indexFrom(content, "%>", contentStart)
		var body string
		if end < 0 {
			body = content[contentStart:]
			i = len(content)
		} else {
			body = content[contentStart:end]
			i = end + 2
		}
		anchor := li.OffsetToPosition(contentStart)
		blocks = append(blocks, ScriptBlock{
			Content:    body,
			AnchorLine: anchor.Line,
			AnchorChar: anchor.Character,
			IsInline:   false,
		})
	}
	return blocks
}

func findScriptTagBlocks(content string) []ScriptBlock {
	var blocks []ScriptBlock
	li := position.NewLineIndex(content)

	for _, m := range scriptTagPattern.FindAllStringIndex(content, -1) {
		whole := content[m[0]:m[1]]
		openTag := scriptOpenTagPattern.FindString(whole)
		if openTag == "" || !runatServerPattern.MatchString(openTag) {
			continue
		}
		closeLoc := scriptCloseTagPattern.FindStringIndex(whole)
		if closeLoc == nil {
			continue
		}
		bodyStart := m[0] + len(openTag)
		bodyEnd := m[0] + closeLoc[0]
		if bodyEnd < bodyStart {
			bodyEnd = bodyStart
		}
		anchor := li.OffsetToPosition(bodyStart)
		blocks = append(blocks, ScriptBlock{
			Content:    content[bodyStart:bodyEnd],
			AnchorLine: anchor.Line,
			AnchorChar: anchor.Character,
			IsInline:   false,
		})
	}
	return blocks
}

// InlineExpressions returns the ranges of <%= ... %> expressions, useful
// for callers that want to report them (e.g. document outline of raw ASP)
// without treating them as parseable VBScript.
func InlineExpressions(content string) []position.Range {
	li := position.NewLineIndex(content)
	var out []position.Range
	for _, m := range inlinePattern.FindAllStringIndex(content, -1) {
		out = append(out, li.MakeRange(m[0], m[1]))
	}
	return out
}

func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	idx := strings.Index(s[from:], substr)
	if idx < 0 {
		return -1
	}
	return idx + from
}

func sortBlocks(blocks []ScriptBlock) {
	for i := 1; i < len(blocks); i++ {
		j := i
		for j > 0 && less(blocks[j], blocks[j-1]) {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
			j--
		}
	}
}

func less(a, b ScriptBlock) bool {
	if a.AnchorLine != b.AnchorLine {
		return a.AnchorLine < b.AnchorLine
	}
	return a.AnchorChar < b.AnchorChar
}
