// Package includegraph models the Classic ASP include relationship as a
// directed graph, supporting cycle detection and transitive-closure
// queries used to scope go-to-definition along include-reachable files.
package includegraph

import (
	"github.com/okurashoichi/serena-vbs/internal/include"
	"github.com/okurashoichi/serena-vbs/internal/vbslog"
)

// Edge is one include relationship: source includes target via directive.
type Edge struct {
	SourceURI string
	TargetURI string
	Directive include.Directive
}

// Graph tracks forward and reverse include adjacency between documents.
type Graph struct {
	edges      map[string][]Edge
	reverse    map[string][]string
	directives map[string][]include.Directive
	log        *vbslog.Logger
}

// New creates an empty include graph. log may be nil, in which case cycle
// warnings are discarded.
func New(log *vbslog.Logger) *Graph {
	return &Graph{
		edges:      make(map[string][]Edge),
		reverse:    make(map[string][]string),
		directives: make(map[string][]include.Directive),
		log:        log,
	}
}

// Update replaces the include edges originating from uri and returns the
// set of URIs whose reachable set may have changed (uri itself, plus every
// valid target).
func (g *Graph) Update(uri string, directives []include.Directive) []string {
	affected := []string{uri}

	g.removeEdgesFrom(uri)
	g.directives[uri] = append([]include.Directive(nil), directives...)

	var edges []Edge
	for _, d := range directives {
		if !d.IsValid || d.ResolvedURI == "" {
			continue
		}
		edges = append(edges, Edge{SourceURI: uri, TargetURI: d.ResolvedURI, Directive: d})

		if !containsString(g.reverse[d.ResolvedURI], uri) {
			g.reverse[d.ResolvedURI] = append(g.reverse[d.ResolvedURI], uri)
		}
		if !containsString(affected, d.ResolvedURI) {
			affected = append(affected, d.ResolvedURI)
		}
	}
	if len(edges) > 0 {
		g.edges[uri] = edges
	}
	return affected
}

// Remove drops uri from the graph entirely and returns the set of URIs
// whose reachable set may have changed.
func (g *Graph) Remove(uri string) []string {
	_, hasEdges := g.edges[uri]
	_, hasDirectives := g.directives[uri]
	if !hasEdges && !hasDirectives {
		return nil
	}

	affected := []string{uri}
	if hasEdges {
		for _, e := range g.edges[uri] {
			if !containsString(affected, e.TargetURI) {
				affected = append(affected, e.TargetURI)
			}
		}
	}

	g.removeEdgesFrom(uri)
	delete(g.directives, uri)
	delete(g.reverse, uri)
	return affected
}

func (g *Graph) removeEdgesFrom(uri string) {
	edges, ok := g.edges[uri]
	if !ok {
		return
	}
	for _, e := range edges {
		target := e.TargetURI
		filtered := g.reverse[target][:0:0]
		for _, src := range g.reverse[target] {
			if src != uri {
				filtered = append(filtered, src)
			}
		}
		if len(filtered) == 0 {
			delete(g.reverse, target)
		} else {
			g.reverse[target] = filtered
		}
	}
	delete(g.edges, uri)
}

// DirectIncludes returns the URIs uri directly includes.
func (g *Graph) DirectIncludes(uri string) []string {
	edges := g.edges[uri]
	if len(edges) == 0 {
		return nil
	}
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.TargetURI
	}
	return out
}

// Includers returns the URIs that directly include uri.
func (g *Graph) Includers(uri string) []string {
	return append([]string(nil), g.reverse[uri]...)
}

// Directives returns every include directive parsed from uri, valid or not
// (useful for document-symbol-style display of broken includes).
func (g *Graph) Directives(uri string) []include.Directive {
	return append([]include.Directive(nil), g.directives[uri]...)
}

// TransitiveIncludes returns every URI reachable from uri by following
// include edges forward, in discovery order, excluding uri itself. It
// always terminates, even across cycles.
func (g *Graph) TransitiveIncludes(uri string) []string {
	var result []string
	visited := map[string]bool{uri: true}

	var dfs func(string)
	dfs = func(current string) {
		for _, target := range g.DirectIncludes(current) {
			if visited[target] {
				if g.log != nil {
					g.log.Warnf("circular include detected involving: %s", target)
				}
				continue
			}
			visited[target] = true
			result = append(result, target)
			dfs(target)
		}
	}
	dfs(uri)
	return result
}

// HasCycle reports whether a cycle is reachable from uri, logging a
// warning naming the back-edge target when one is found.
func (g *Graph) HasCycle(uri string) bool {
	inPath := map[string]bool{}
	visited := map[string]bool{}

	var dfs func(string) bool
	dfs = func(current string) bool {
		if inPath[current] {
			if g.log != nil {
				g.log.Warnf("circular include detected involving: %s", current)
			}
			return true
		}
		if visited[current] {
			return false
		}
		inPath[current] = true
		visited[current] = true

		for _, target := range g.DirectIncludes(current) {
			if dfs(target) {
				return true
			}
		}
		inPath[current] = false
		return false
	}
	return dfs(uri)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
