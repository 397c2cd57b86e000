package lsp

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"loom/grammar"
	"loom/internal/fusion"
	"loom/internal/ir"
)

// LoomHandler implements the LSP server handlers for loom IR files. It keeps
// the last-seen content per open document and republishes diagnostics on
// every open and change.
type LoomHandler struct {
	mu      sync.RWMutex
	content map[string]string
}

// NewLoomHandler creates and returns a new LoomHandler instance
func NewLoomHandler() *LoomHandler {
	return &LoomHandler{
		content: make(map[string]string),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *LoomHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true), // notify on open/close events
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

// Initialized is called after the client completes initialization
func (h *LoomHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("Loom LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *LoomHandler) Shutdown(ctx *glsp.Context) error {
	log.Println("Loom LSP Shutdown")
	return nil
}

// SetTrace handles trace configuration requests
func (h *LoomHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *LoomHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)

	diagnostics, err := h.refresh(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to analyze document: %w", err)
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *LoomHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor
func (h *LoomHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)

	diagnostics, err := h.refresh(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to analyze document: %w", err)
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// refresh re-reads and re-analyzes the document behind a URI. It always
// returns the diagnostics to publish; an empty list clears stale ones.
func (h *LoomHandler) refresh(rawURI protocol.DocumentUri) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	h.mu.Lock()
	h.content[path] = string(content)
	h.mu.Unlock()

	return Analyze(path, string(content)), nil
}

// Analyze runs the front end and the pass preconditions over one document
// and converts every problem found into LSP diagnostics. The pass runs on a
// throwaway lowering, so mutation is irrelevant here.
func Analyze(path, content string) []protocol.Diagnostic {
	program, err := grammar.ParseSource(path, content)
	if err != nil {
		return ConvertParseError(err)
	}

	lowered, cerrs := ir.BuildProgram(program)
	if len(cerrs) > 0 {
		return ConvertCompilerErrors(cerrs)
	}

	pass, err := fusion.NewPass(fusion.Options{})
	if err != nil {
		return nil
	}
	return ConvertCompilerErrors(pass.RunProgram(lowered))
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) → C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	// Normalize to platform-specific separators
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
