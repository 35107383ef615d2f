package lspserver

import (
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/okurashoichi/serena-vbs/internal/aspext"
	"github.com/okurashoichi/serena-vbs/internal/include"
	"github.com/okurashoichi/serena-vbs/internal/includegraph"
	"github.com/okurashoichi/serena-vbs/internal/reftrack"
	"github.com/okurashoichi/serena-vbs/internal/symbolindex"
	"github.com/okurashoichi/serena-vbs/internal/vbparser"
	"github.com/okurashoichi/serena-vbs/internal/vbslog"
	"github.com/okurashoichi/serena-vbs/internal/workspace"
)

// Server holds every subsystem spec.md §4 names behind one mutex. Per
// spec.md §5 there is never more than one writer — the dispatch loop — so
// the mutex exists to document that ownership invariant and match the
// teacher's server.mu pattern, not to resolve real contention.
type Server struct {
	mu sync.Mutex

	symbols    *symbolindex.Index
	references *reftrack.Tracker
	includes   *includegraph.Graph

	workspaceRoot string          // file:// URI, "" if not configured
	scanned       map[string]bool // URIs discovered by the workspace scan; not evicted on close

	// scanOpts carries the Encoding/ScanThreshold values fixed at startup.
	// scanPending is true until the first scan runs — either eagerly, when
	// --workspace-root was given on the command line, or lazily from
	// onInitialize's rootUri/rootPath, per spec.md §6 ("--workspace-root
	// PATH (optional; defaults to the LSP rootUri)"). It guards against
	// scanning twice if both a CLI root and an initialize root arrive.
	scanOpts    workspace.Options
	scanPending bool

	out io.Writer
	log *vbslog.Logger
}

// New creates a Server with empty subsystems, writing LSP responses to out.
// workspaceRoot is a file:// URI; pass "" to defer root resolution to the
// client's initialize request (its rootUri) and run the scan then.
// scanOpts carries the Encoding/ScanThreshold values from CLI/config;
// its Root field is overwritten once the effective root is known.
func New(out io.Writer, workspaceRoot string, scanOpts workspace.Options, log *vbslog.Logger) *Server {
	return &Server{
		symbols:       symbolindex.New(),
		references:    reftrack.New(),
		includes:      includegraph.New(log),
		workspaceRoot: workspaceRoot,
		scanned:       make(map[string]bool),
		scanOpts:      scanOpts,
		scanPending:   true,
		out:           out,
		log:           log,
	}
}

// ScanNow runs the workspace scan synchronously against root (a plain
// filesystem path), feeding every discovered file through OpenOrChange as
// if it had been opened by the client. Safe to call at most once
// meaningfully; subsequent calls are no-ops if a scan already ran.
func (s *Server) ScanNow(root string) {
	s.mu.Lock()
	if !s.scanPending {
		s.mu.Unlock()
		return
	}
	s.scanPending = false
	s.workspaceRoot = pathToFileURI(root)
	opts := s.scanOpts
	opts.Root = root
	log := s.log
	s.mu.Unlock()

	log.Infof("scanning workspace root %s", root)
	workspace.Scan(opts, log, func(uri, content string) {
		s.OpenOrChange(uri, content, true)
	})
}

// OpenOrChange is the single entry point that handles both workspace-scan
// discovery and textDocument/didOpen|didChange: parse, re-index, re-scan
// includes, and rescan references workspace-wide for the (possibly grown)
// name set. fromScan marks uri as scanned, so a later didClose does not
// evict it (spec.md §3 "Lifecycle").
func (s *Server) OpenOrChange(uri, content string, fromScan bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromScan {
		s.scanned[uri] = true
	}
	if s.symbols.Unchanged(uri, content) {
		return
	}

	parsed := s.parseDocument(uri, content)
	s.symbols.Update(uri, content, parsed)

	directives := include.Extract(content, uri, s.workspaceRoot)
	affected := s.includes.Update(uri, directives)
	s.includes.HasCycle(uri)
	s.lazyLoadTargets(affected)

	s.reindexAllReferences()
}

// Close handles textDocument/didClose: evict uri's document unless it was
// discovered by the initial workspace scan, per spec.md §3's lifecycle
// rule (scanned documents stay indexed for cross-file queries).
func (s *Server) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanned[uri] {
		return
	}
	s.symbols.Remove(uri)
	s.references.Remove(uri)
	s.includes.Remove(uri)
	s.reindexAllReferences()
}

// parseDocument dispatches to the ASP extractor for mixed HTML/VBScript
// content or runs the parser directly over the whole file, per spec.md
// §4.3 ("a full .vbs/.inc file (one fragment with offset 0) or each
// ScriptBlock from §4.1").
func (s *Server) parseDocument(uri, content string) []vbparser.Symbol {
	if !isASP(uri) {
		return vbparser.Parse(content, 0, 0)
	}
	var all []vbparser.Symbol
	for _, block := range aspext.Extract(content) {
		if block.IsInline {
			continue
		}
		all = append(all, vbparser.Parse(block.Content, block.AnchorLine, block.AnchorChar)...)
	}
	return all
}

// pathToFileURI converts a plain filesystem path into a file:// URI,
// matching the convention internal/workspace and internal/include use.
func pathToFileURI(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file://" + slashed
}

func isASP(uri string) bool {
	return hasSuffixFold(uri, ".asp")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := range tail {
		a, b := tail[i], suffix[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// lazyLoadTargets reads and indexes any affected include target that lies
// within the workspace root and isn't indexed yet, per spec.md §3
// ("Includes' targets are lazily loaded"). Callers must hold s.mu.
func (s *Server) lazyLoadTargets(affected []string) {
	rootPrefix := strings.TrimSuffix(s.workspaceRoot, "/") + "/"
	for _, uri := range affected {
		if s.workspaceRoot == "" || !strings.HasPrefix(uri, rootPrefix) {
			continue
		}
		if _, ok := s.symbols.GetDocumentContent(uri); ok {
			continue
		}
		content, err := readFileURI(uri)
		if err != nil {
			s.log.Warnf("lazy include load: %v", err)
			continue
		}
		parsed := s.parseDocument(uri, content)
		s.symbols.Update(uri, content, parsed)
		directives := include.Extract(content, uri, s.workspaceRoot)
		more := s.includes.Update(uri, directives)
		s.lazyLoadTargets(more)
	}
}

// reindexAllReferences rescans every currently-indexed document against
// the full current name set, per spec.md §4.6: "the practical target set
// is every name currently in the symbol index's by_name." A document's
// reference list can only grow stale when some other document's symbol
// set changes, so this runs after every symbol-index mutation. Callers
// must hold s.mu.
func (s *Server) reindexAllReferences() {
	for _, uri := range s.symbols.Documents() {
		content, ok := s.symbols.GetDocumentContent(uri)
		if !ok {
			continue
		}
		s.references.Update(s.symbols, uri, content)
	}
}
