// Package lsp serves editor diagnostics and completion over the Language
// Server Protocol.
package lsp

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"aslang/internal/ast"
	"aslang/internal/diag"
	"aslang/internal/parser"
	"aslang/internal/runtime"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "aslang-lsp"

// Server is the aslang language server. Every edit reruns the parse and
// compile phases and publishes the collected errors as diagnostics.
type Server struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

func NewServer(version string) *Server {
	s := &Server{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run starts the server on stdio. Blocks until the client disconnects.
func (s *Server) Run() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "aslang LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	return Completions(text, prefix), nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := Diagnostics(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnostics runs the parse and compile phases over text and converts
// every error into an LSP diagnostic. Positions are best effort: errors
// without one land on the first character.
func Diagnostics(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	for _, err := range runtime.Check(text) {
		var derr *diag.Error
		line, col := 0, 0
		msg := err.Error()
		if errors.As(err, &derr) {
			msg = derr.Kind.String() + ": " + derr.Msg
			if derr.Pos.Line > 0 {
				line = derr.Pos.Line - 1
				col = derr.Pos.Col - 1
			}
		}
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
				End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + 1)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  msg,
		})
	}
	return diagnostics
}

var keywordCompletions = []string{
	"let", "fn", "async", "if", "elseif", "else", "while", "for",
	"break", "continue", "return", "output", "input", "true", "false",
}

// Completions offers keywords plus every function and top-level variable
// declared in the document that matches prefix.
func Completions(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, kw := range keywordCompletions {
		if strings.HasPrefix(kw, lowerPrefix) {
			kind := protocol.CompletionItemKindKeyword
			kwCopy := kw
			items = append(items, protocol.CompletionItem{
				Label:      kw,
				Kind:       &kind,
				InsertText: &kwCopy,
			})
		}
	}

	// A document with parse errors still yields whatever declarations were
	// recovered.
	prog, _ := parser.New(text).Parse()
	if prog == nil {
		return items
	}
	for _, stmt := range prog.Stmts {
		switch decl := stmt.(type) {
		case *ast.FuncStmt:
			if strings.HasPrefix(strings.ToLower(decl.Name), lowerPrefix) {
				kind := protocol.CompletionItemKindFunction
				detail := "fn"
				if decl.IsAsync {
					detail = "async fn"
				}
				name := decl.Name
				items = append(items, protocol.CompletionItem{
					Label:      decl.Name,
					Kind:       &kind,
					Detail:     &detail,
					InsertText: &name,
				})
			}
		case *ast.LetStmt:
			if strings.HasPrefix(strings.ToLower(decl.Name), lowerPrefix) {
				kind := protocol.CompletionItemKindVariable
				detail := "let"
				name := decl.Name
				items = append(items, protocol.CompletionItem{
					Label:      decl.Name,
					Kind:       &kind,
					Detail:     &detail,
					InsertText: &name,
				})
			}
		}
	}
	return items
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}
	return line[start:col]
}

func boolPtr(b bool) *bool {
	return &b
}
