// Package symbolindex implements the workspace-wide symbol table described
// by spec.md §4.5: a pair of dual-keyed maps (by document, by case-folded
// name) fed by vbparser and queried by the definition/documentSymbol
// handlers.
package symbolindex

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/okurashoichi/serena-vbs/internal/position"
	"github.com/okurashoichi/serena-vbs/internal/vbparser"
)

// IndexedSymbol is a flattened, single-document symbol record: nested
// ParsedSymbols become siblings with ContainerName recording their parent
// Class, so by_name lookups don't need to walk a tree.
type IndexedSymbol struct {
	Name           string
	ContainerName  string // "" for top-level symbols
	Kind           vbparser.Kind
	URI            string
	Range          position.Range
	SelectionRange position.Range
}

// DocumentEntry is everything the index keeps for one document.
type DocumentEntry struct {
	Content string
	Hash    uint64
	Symbols []vbparser.Symbol // hierarchical, as returned by vbparser.Parse
	Flat    []IndexedSymbol
}

// Index is the workspace symbol table. Per spec.md §5, it has exactly one
// writer (the dispatcher goroutine); no internal locking is used.
type Index struct {
	byURI  map[string]*DocumentEntry
	byName map[string][]IndexedSymbol
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		byURI:  make(map[string]*DocumentEntry),
		byName: make(map[string][]IndexedSymbol),
	}
}

// ContentHash fingerprints content so callers (the workspace scanner, the
// didChange handler) can cheaply decide whether a document actually
// changed before paying for a reparse.
func ContentHash(content string) uint64 {
	return xxhash.Sum64String(content)
}

// Unchanged reports whether content's hash matches what's already indexed
// for uri (false if uri isn't indexed at all).
func (idx *Index) Unchanged(uri, content string) bool {
	entry, ok := idx.byURI[uri]
	if !ok {
		return false
	}
	return entry.Hash == ContentHash(content)
}

// Update atomically replaces uri's entry in both maps, flattening parsed
// into IndexedSymbol records.
func (idx *Index) Update(uri, content string, parsed []vbparser.Symbol) {
	idx.Remove(uri)

	var flat []IndexedSymbol
	flatten(uri, parsed, "", &flat)

	idx.byURI[uri] = &DocumentEntry{
		Content: content,
		Hash:    ContentHash(content),
		Symbols: parsed,
		Flat:    flat,
	}
	for _, s := range flat {
		key := strings.ToLower(s.Name)
		idx.byName[key] = append(idx.byName[key], s)
	}
}

func flatten(uri string, syms []vbparser.Symbol, container string, out *[]IndexedSymbol) {
	for _, s := range syms {
		*out = append(*out, IndexedSymbol{
			Name:           s.Name,
			ContainerName:  container,
			Kind:           s.Kind,
			URI:            uri,
			Range:          s.Range,
			SelectionRange: s.SelectionRange,
		})
		if len(s.Children) > 0 {
			flatten(uri, s.Children, s.Name, out)
		}
	}
}

// Remove deletes uri from both maps and drops its cached content.
func (idx *Index) Remove(uri string) {
	entry, ok := idx.byURI[uri]
	if !ok {
		return
	}
	for _, s := range entry.Flat {
		key := strings.ToLower(s.Name)
		filtered := idx.byName[key][:0:0]
		for _, cand := range idx.byName[key] {
			if cand.URI != uri {
				filtered = append(filtered, cand)
			}
		}
		if len(filtered) == 0 {
			delete(idx.byName, key)
		} else {
			idx.byName[key] = filtered
		}
	}
	delete(idx.byURI, uri)
}

// FindDefinitions returns every IndexedSymbol whose name case-fold-matches
// name, across the whole workspace.
func (idx *Index) FindDefinitions(name string) []IndexedSymbol {
	return append([]IndexedSymbol(nil), idx.byName[strings.ToLower(name)]...)
}

// GetDocumentContent returns the stored text for uri, or "", false if uri
// isn't indexed.
func (idx *Index) GetDocumentContent(uri string) (string, bool) {
	entry, ok := idx.byURI[uri]
	if !ok {
		return "", false
	}
	return entry.Content, true
}

// GetSymbolsInDocument returns the hierarchical symbol tree for uri,
// suitable for conversion to LSP DocumentSymbol.
func (idx *Index) GetSymbolsInDocument(uri string) []vbparser.Symbol {
	entry, ok := idx.byURI[uri]
	if !ok {
		return nil
	}
	return entry.Symbols
}

// AllNames returns every case-folded name currently present in the index,
// the target set reftrack.Update needs per spec.md §4.6.
func (idx *Index) AllNames() []string {
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	return names
}

// Documents returns every indexed URI.
func (idx *Index) Documents() []string {
	uris := make([]string, 0, len(idx.byURI))
	for uri := range idx.byURI {
		uris = append(uris, uri)
	}
	return uris
}
