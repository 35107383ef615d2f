package lspserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okurashoichi/serena-vbs/internal/vbslog"
	"github.com/okurashoichi/serena-vbs/internal/workspace"
)

// frame encodes v as one Content-Length-framed JSON-RPC message.
func frame(t *testing.T, v any) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	var b bytes.Buffer
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	return b.Bytes()
}

// readResponses decodes every framed JSON-RPC message in out.
func readResponses(t *testing.T, out *bytes.Buffer) []Response {
	t.Helper()
	var responses []Response
	r := bufio.NewReader(out)
	for {
		msg, err := readMsg(r)
		if err != nil {
			break
		}
		var resp Response
		require.NoError(t, json.Unmarshal(msg, &resp))
		responses = append(responses, resp)
	}
	return responses
}

func runServer(t *testing.T, srv *Server, requests []any) []Response {
	t.Helper()
	var in bytes.Buffer
	for _, req := range requests {
		in.Write(frame(t, req))
	}
	in.Write(frame(t, map[string]any{"jsonrpc": "2.0", "method": "exit"}))

	var out bytes.Buffer
	srv.out = &out
	srv.Run(&in)
	return readResponses(t, &out)
}

func TestInitialize_AdvertisesThreeCapabilities(t *testing.T) {
	srv := New(&bytes.Buffer{}, "file:///proj", workspace.Options{}, vbslog.Nop())
	responses := runServer(t, srv, []any{
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{}},
	})
	require.Len(t, responses, 1)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(toRaw(t, responses[0].Result), &result))
	assert.True(t, result.Capabilities.DocumentSymbolProvider)
	assert.True(t, result.Capabilities.DefinitionProvider)
	assert.True(t, result.Capabilities.ReferencesProvider)
}

func TestInitialize_ScansWorkspaceFromRootURIWhenNoCLIRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "utils.vbs"),
		[]byte("Function AddNumbers(a, b)\nEnd Function\n"), 0o644))

	srv := New(&bytes.Buffer{}, "", workspace.Options{}, vbslog.Nop())
	rootURI := pathToFileURI(root)
	responses := runServer(t, srv, []any{
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": map[string]any{"rootUri": rootURI}},
	})
	require.Len(t, responses, 1)

	defs := srv.symbols.FindDefinitions("AddNumbers")
	require.Len(t, defs, 1)
}

func TestDocumentSymbol_ReturnsHierarchicalTree(t *testing.T) {
	srv := New(&bytes.Buffer{}, "", workspace.Options{}, vbslog.Nop())
	srv.OpenOrChange("file:///u1.vbs", "Class Calculator\n  Sub Add(v)\n  End Sub\nEnd Class\n", false)

	responses := runServer(t, srv, []any{
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "textDocument/documentSymbol",
			"params": map[string]any{"textDocument": map[string]any{"uri": "file:///u1.vbs"}}},
	})
	require.Len(t, responses, 1)

	var syms []DocumentSymbol
	require.NoError(t, json.Unmarshal(toRaw(t, responses[0].Result), &syms))
	require.Len(t, syms, 1)
	assert.Equal(t, "Calculator", syms[0].Name)
	require.Len(t, syms[0].Children, 1)
	assert.Equal(t, "Add", syms[0].Children[0].Name)
}

func TestDefinition_FindsDeclarationAcrossUnopenedInclude(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.inc"),
		[]byte("Function Helper()\nEnd Function\n"), 0o644))

	srv := New(&bytes.Buffer{}, pathToFileURI(root), workspace.Options{}, vbslog.Nop())
	aURI := pathToFileURI(filepath.Join(root, "a.asp"))
	srv.OpenOrChange(aURI, `<!--#include file="lib.inc"-->
<%
Call Helper()
%>`, false)

	responses := runServer(t, srv, []any{
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "textDocument/definition",
			"params": map[string]any{
				"textDocument": map[string]any{"uri": aURI},
				"position":     map[string]any{"line": 2, "character": 5},
			}},
	})
	require.Len(t, responses, 1)

	var loc Location
	require.NoError(t, json.Unmarshal(toRaw(t, responses[0].Result), &loc))
	assert.Contains(t, loc.URI, "lib.inc")
}

func TestReferences_WorkspaceWideExcludingCommentsAndStrings(t *testing.T) {
	srv := New(&bytes.Buffer{}, "", workspace.Options{}, vbslog.Nop())
	srv.OpenOrChange("file:///m.vbs", "Function F()\nEnd Function\n", false)
	srv.OpenOrChange("file:///u.vbs", "Call F()\n' F is great\nx = \"F\"\n", false)

	responses := runServer(t, srv, []any{
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "textDocument/references",
			"params": map[string]any{
				"textDocument": map[string]any{"uri": "file:///u.vbs"},
				"position":     map[string]any{"line": 0, "character": 5},
				"context":      map[string]any{"includeDeclaration": false},
			}},
	})
	require.Len(t, responses, 1)

	var locs []Location
	require.NoError(t, json.Unmarshal(toRaw(t, responses[0].Result), &locs))
	require.Len(t, locs, 1)
	assert.Equal(t, "file:///u.vbs", locs[0].URI)
}

func TestDefinition_UnknownDocumentReturnsNull(t *testing.T) {
	srv := New(&bytes.Buffer{}, "", workspace.Options{}, vbslog.Nop())
	responses := runServer(t, srv, []any{
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "textDocument/definition",
			"params": map[string]any{
				"textDocument": map[string]any{"uri": "file:///missing.vbs"},
				"position":     map[string]any{"line": 0, "character": 0},
			}},
	})
	require.Len(t, responses, 1)
	assert.Equal(t, "null", string(toRaw(t, responses[0].Result)))
}

func TestDidClose_EvictsOnlyUnscannedDocuments(t *testing.T) {
	srv := New(&bytes.Buffer{}, "", workspace.Options{}, vbslog.Nop())
	srv.OpenOrChange("file:///scanned.vbs", "Function F()\nEnd Function\n", true)
	srv.OpenOrChange("file:///opened.vbs", "Function G()\nEnd Function\n", false)

	srv.Close("file:///scanned.vbs")
	srv.Close("file:///opened.vbs")

	_, scannedStillThere := srv.symbols.GetDocumentContent("file:///scanned.vbs")
	_, openedStillThere := srv.symbols.GetDocumentContent("file:///opened.vbs")
	assert.True(t, scannedStillThere)
	assert.False(t, openedStillThere)
}

func TestASPFragment_SymbolAnchoredOnFragmentLineNotFileStart(t *testing.T) {
	srv := New(&bytes.Buffer{}, "", workspace.Options{}, vbslog.Nop())
	src := "<%@ Language=\"VBScript\" %>\n<html><%\nFunction Greet()\nEnd Function\n%></html>"
	srv.OpenOrChange("file:///page.asp", src, false)

	defs := srv.symbols.FindDefinitions("Greet")
	require.Len(t, defs, 1)
	assert.Equal(t, 2, defs[0].SelectionRange.Start.Line)
}

func toRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return json.RawMessage(b)
}
