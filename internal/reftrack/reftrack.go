// Package reftrack implements the workspace-wide reference table described
// by spec.md §4.6: every textual occurrence of a currently-indexed symbol
// name, keyed both by document and by case-folded name, fed by refscan and
// queried by the references handler.
package reftrack

import (
	"sort"
	"strconv"
	"strings"

	"github.com/okurashoichi/serena-vbs/internal/position"
	"github.com/okurashoichi/serena-vbs/internal/refscan"
	"github.com/okurashoichi/serena-vbs/internal/symbolindex"
	"github.com/okurashoichi/serena-vbs/internal/vbparser"
)

// Reference is one textual occurrence of a name.
type Reference struct {
	Name         string
	URI          string
	Range        position.Range
	IsDefinition bool
}

// Tracker is the workspace reference table. Single-writer, like symbolindex.
type Tracker struct {
	byURI  map[string][]Reference
	byName map[string][]Reference
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		byURI:  make(map[string][]Reference),
		byName: make(map[string][]Reference),
	}
}

// Update rescans uri's content against every name currently known to idx
// and replaces uri's entry in both maps. Call this after symbolindex.Update
// for the same document, and also after any other document's Update when
// the target name set may have grown (a newly-opened file can introduce
// names that earlier-scanned files reference).
func (t *Tracker) Update(idx *symbolindex.Index, uri, content string) {
	t.Remove(uri)

	targets := refscan.NewNames(idx.AllNames())
	if len(targets) == 0 {
		return
	}
	hits := refscan.Scan(content, targets)
	if len(hits) == 0 {
		return
	}

	defs := selectionRangesByName(idx, uri)

	refs := make([]Reference, 0, len(hits))
	for _, h := range hits {
		key := strings.ToLower(h.Name)
		isDef := false
		for _, sel := range defs[key] {
			if sel == h.Range {
				isDef = true
				break
			}
		}
		refs = append(refs, Reference{Name: h.Name, URI: uri, Range: h.Range, IsDefinition: isDef})
	}
	sort.Slice(refs, func(i, j int) bool { return rangeLess(refs[i].Range, refs[j].Range) })

	t.byURI[uri] = refs
	for _, r := range refs {
		key := strings.ToLower(r.Name)
		t.byName[key] = append(t.byName[key], r)
	}
}

func selectionRangesByName(idx *symbolindex.Index, uri string) map[string][]position.Range {
	out := make(map[string][]position.Range)
	for _, s := range idx.GetSymbolsInDocument(uri) {
		collectSelections(s, out)
	}
	return out
}

func collectSelections(s vbparser.Symbol, out map[string][]position.Range) {
	key := strings.ToLower(s.Name)
	out[key] = append(out[key], s.SelectionRange)
	for _, c := range s.Children {
		collectSelections(c, out)
	}
}

// Remove deletes uri's references from both maps.
func (t *Tracker) Remove(uri string) {
	refs, ok := t.byURI[uri]
	if !ok {
		return
	}
	for _, r := range refs {
		key := strings.ToLower(r.Name)
		filtered := t.byName[key][:0:0]
		for _, cand := range t.byName[key] {
			if cand.URI != uri {
				filtered = append(filtered, cand)
			}
		}
		if len(filtered) == 0 {
			delete(t.byName, key)
		} else {
			t.byName[key] = filtered
		}
	}
	delete(t.byURI, uri)
}

// FindReferences returns every Reference whose name case-fold-matches name,
// optionally filtering out definitions, deduplicated by (uri, range) and
// ordered by uri then start position.
func (t *Tracker) FindReferences(name string, includeDeclaration bool) []Reference {
	all := t.byName[strings.ToLower(name)]
	seen := make(map[string]bool, len(all))
	out := make([]Reference, 0, len(all))
	for _, r := range all {
		if r.IsDefinition && !includeDeclaration {
			continue
		}
		dedupKey := dedupeKey(r)
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return rangeLess(out[i].Range, out[j].Range)
	})
	return out
}

func dedupeKey(r Reference) string {
	return r.URI + "|" + strconv.Itoa(r.Range.Start.Line) + ":" + strconv.Itoa(r.Range.Start.Character) +
		"-" + strconv.Itoa(r.Range.End.Line) + ":" + strconv.Itoa(r.Range.End.Character)
}

func rangeLess(a, b position.Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Character < b.Start.Character
}
