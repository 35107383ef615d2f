package lspserver

import (
	"bufio"
	"encoding/json"
	"io"
)

// Run reads framed JSON-RPC messages from in until EOF, an exit
// notification, or a fatal transport error, dispatching each to the
// matching handler. This mirrors the teacher's cmd/msg-lsp/main.go
// read-decode-switch loop, promoted into the server type so cmd/vbls-lsp
// stays a thin entry point.
func (s *Server) Run(in io.Reader) {
	r := bufio.NewReader(in)
	for {
		msgBytes, err := readMsg(r)
		if err != nil {
			if err != io.EOF {
				s.log.Errorf("read error: %v", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(msgBytes, &req); err != nil {
			s.log.Warnf("malformed JSON-RPC message: %v", err)
			continue
		}

		if req.Method == "exit" {
			return
		}
		s.dispatch(req)
	}
}

// dispatch routes one request to its handler behind a recover, so an
// internal panic in a handler (spec.md §7: "Internal exception in a
// handler: log ERROR including the triggering request, return null … The
// server stays alive") is caught, logged, and answered with null/empty
// instead of crashing the process.
func (s *Server) dispatch(req Request) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("internal error handling %s (id=%s): %v", req.Method, string(req.ID), r)
			if len(req.ID) > 0 {
				// List-valued requests get an empty array, the rest null.
				var result any
				switch req.Method {
				case "textDocument/references":
					result = []Location{}
				case "textDocument/documentSymbol":
					result = []DocumentSymbol{}
				}
				s.sendResponse(req.ID, result, nil)
			}
		}
	}()

	switch req.Method {
	case "initialize":
		s.onInitialize(req.ID, req.Params)
	case "initialized":
		// no-op
	case "shutdown":
		s.onShutdown(req.ID)

	case "textDocument/didOpen":
		s.onDidOpen(req.Params)
	case "textDocument/didChange":
		s.onDidChange(req.Params)
	case "textDocument/didClose":
		s.onDidClose(req.Params)

	case "textDocument/documentSymbol":
		s.onDocumentSymbol(req.ID, req.Params)
	case "textDocument/definition":
		s.onDefinition(req.ID, req.Params)
	case "textDocument/references":
		s.onReferences(req.ID, req.Params)

	default:
		if len(req.ID) > 0 {
			s.sendResponse(req.ID, nil, &ResponseError{Code: -32601, Message: "method not found"})
		}
	}
}
