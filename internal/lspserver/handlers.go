package lspserver

import (
	"encoding/json"

	"github.com/okurashoichi/serena-vbs/internal/includegraph"
	"github.com/okurashoichi/serena-vbs/internal/position"
	"github.com/okurashoichi/serena-vbs/internal/symbolindex"
	"github.com/okurashoichi/serena-vbs/internal/vbparser"
)

// onInitialize resolves the workspace root if one wasn't supplied on the
// command line, runs the deferred initial scan against it (spec.md §6:
// "--workspace-root PATH (optional; defaults to the LSP rootUri)"; §5:
// "blocks initialize completion in practice"), then answers with this
// server's capabilities.
func (s *Server) onInitialize(id json.RawMessage, raw json.RawMessage) {
	var params InitializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		s.log.Warnf("initialize: malformed params: %v", err)
	}

	s.mu.Lock()
	pending := s.scanPending
	s.mu.Unlock()
	if pending {
		root := params.RootPath
		if root == "" && params.RootURI != "" {
			if p, err := uriToPath(params.RootURI); err == nil {
				root = p
			}
		}
		if root != "" {
			s.ScanNow(root)
		} else {
			s.log.Warnf("initialize: no rootUri/rootPath and no --workspace-root; serving without a workspace scan")
		}
	}

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:       TextDocumentSyncOptions{OpenClose: true, Change: 1},
			DocumentSymbolProvider: true,
			DefinitionProvider:     true,
			ReferencesProvider:     true,
		},
		ServerInfo: map[string]string{
			"name":    "vbls-lsp",
			"version": "0.1",
		},
	}
	s.sendResponse(id, result, nil)
}

func (s *Server) onDidOpen(raw json.RawMessage) {
	var params struct {
		TextDocument TextDocumentItem `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		s.log.Warnf("didOpen: malformed params: %v", err)
		return
	}
	s.OpenOrChange(params.TextDocument.URI, params.TextDocument.Text, false)
}

func (s *Server) onDidChange(raw json.RawMessage) {
	var params struct {
		TextDocument   TextDocumentIdentifier           `json:"textDocument"`
		ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		s.log.Warnf("didChange: malformed params: %v", err)
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}
	// Full-document sync only (spec.md §6): the last change carries the
	// complete new text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.OpenOrChange(params.TextDocument.URI, text, false)
}

func (s *Server) onDidClose(raw json.RawMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		s.log.Warnf("didClose: malformed params: %v", err)
		return
	}
	s.Close(params.TextDocument.URI)
}

func (s *Server) onDocumentSymbol(id json.RawMessage, raw json.RawMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		s.sendResponse(id, []DocumentSymbol{}, nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	syms := s.symbols.GetSymbolsInDocument(params.TextDocument.URI)
	out := make([]DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, toDocumentSymbol(sym))
	}
	s.sendResponse(id, out, nil)
}

func toDocumentSymbol(sym vbparser.Symbol) DocumentSymbol {
	children := make([]DocumentSymbol, 0, len(sym.Children))
	for _, c := range sym.Children {
		children = append(children, toDocumentSymbol(c))
	}
	return DocumentSymbol{
		Name:           sym.Name,
		Kind:           lspKind(sym.Kind),
		Range:          toWireRange(sym.Range),
		SelectionRange: toWireRange(sym.SelectionRange),
		Children:       children,
	}
}

func lspKind(k vbparser.Kind) int {
	switch k {
	case vbparser.KindClass:
		return lspKindClass
	case vbparser.KindProperty:
		return lspKindProperty
	default:
		return lspKindFunction
	}
}

func (s *Server) onDefinition(id json.RawMessage, raw json.RawMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
		Position     Position               `json:"position"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		s.sendResponse(id, nil, nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uri := params.TextDocument.URI
	content, ok := s.symbols.GetDocumentContent(uri)
	if !ok {
		s.sendResponse(id, nil, nil)
		return
	}
	word := wordAt(content, fromWirePosition(params.Position))
	if word == "" {
		s.sendResponse(id, nil, nil)
		return
	}

	defs := s.symbols.FindDefinitions(word)
	locs := locationsInScope(defs, uri, s.includes)
	if len(locs) == 0 {
		s.sendResponse(id, nil, nil)
		return
	}
	if len(locs) == 1 {
		s.sendResponse(id, locs[0], nil)
		return
	}
	s.sendResponse(id, locs, nil)
}

// locationsInScope implements spec.md §4.7's go-to-definition scoping
// rule: definitions in the origin document first; if none, definitions
// reachable via the include graph's transitive closure from origin.
func locationsInScope(defs []symbolindex.IndexedSymbol, origin string, graph *includegraph.Graph) []Location {
	var own []Location
	for _, d := range defs {
		if d.URI == origin {
			own = append(own, Location{URI: d.URI, Range: toWireRange(d.SelectionRange)})
		}
	}
	if len(own) > 0 {
		return own
	}

	reachable := make(map[string]bool)
	for _, uri := range graph.TransitiveIncludes(origin) {
		reachable[uri] = true
	}
	var included []Location
	for _, d := range defs {
		if reachable[d.URI] {
			included = append(included, Location{URI: d.URI, Range: toWireRange(d.SelectionRange)})
		}
	}
	return included
}

func (s *Server) onReferences(id json.RawMessage, raw json.RawMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
		Position     Position               `json:"position"`
		Context      struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		} `json:"context"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		s.sendResponse(id, []Location{}, nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.symbols.GetDocumentContent(params.TextDocument.URI)
	if !ok {
		s.sendResponse(id, []Location{}, nil)
		return
	}
	word := wordAt(content, fromWirePosition(params.Position))
	if word == "" {
		s.sendResponse(id, []Location{}, nil)
		return
	}

	// References are workspace-wide (spec.md §4.7: "does NOT scope by
	// include graph"), regardless of which document the query originated in.
	refs := s.references.FindReferences(word, params.Context.IncludeDeclaration)
	locs := make([]Location, 0, len(refs))
	for _, r := range refs {
		locs = append(locs, Location{URI: r.URI, Range: toWireRange(r.Range)})
	}
	s.sendResponse(id, locs, nil)
}

func (s *Server) onShutdown(id json.RawMessage) {
	s.sendResponse(id, nil, nil)
}

// wordAt extracts the maximal [A-Za-z0-9_] span containing or adjacent to
// pos, per spec.md §4.9. Returns "" if pos lands on no such span.
func wordAt(content string, pos position.Position) string {
	li := position.NewLineIndex(content)
	off := li.PositionToOffset(pos)

	isWord := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}

	// A position sits between bytes; prefer the word to the cursor's
	// right, falling back to the word immediately to its left.
	anchor := off
	if anchor >= len(content) || !isWord(content[anchor]) {
		if anchor == 0 || !isWord(content[anchor-1]) {
			return ""
		}
		anchor--
	}

	start, end := anchor, anchor+1
	for start > 0 && isWord(content[start-1]) {
		start--
	}
	for end < len(content) && isWord(content[end]) {
		end++
	}
	return content[start:end]
}

func toWireRange(r position.Range) Range {
	return Range{
		Start: Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   Position{Line: r.End.Line, Character: r.End.Character},
	}
}

func fromWirePosition(p Position) position.Position {
	return position.Position{Line: p.Line, Character: p.Character}
}
