package lsp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"dil/grammar"
	"dil/internal/ast"
	"dil/internal/config"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("dil.lsp")

// Define the set of supported semantic token types (advertised in the legend)
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"string",
	"comment",
	"operator",
}

// Define the set of supported semantic token modifiers
var SemanticTokenModifiers = []string{
	"declaration",
	"readonly",
	"static",
}

// DilHandler implements the LSP server handlers for source IR files
type DilHandler struct {
	cfg *config.Config

	mu      sync.RWMutex
	content map[string]string
	libs    map[string]*ast.Library
}

// NewDilHandler creates a handler that lowers documents with cfg.
func NewDilHandler(cfg *config.Config) *DilHandler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &DilHandler{
		cfg:     cfg,
		content: make(map[string]string),
		libs:    make(map[string]*ast.Library),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *DilHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			DocumentSymbolProvider: ptrBool(true),
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *DilHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *DilHandler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *DilHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *DilHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Infof("opened %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	diagnostics := h.update(path, params.TextDocument.Text)
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *DilHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Infof("closed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.libs, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor.
// Only full syncs are advertised, so the last change holds the whole text.
func (h *DilHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	var text string
	found := false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, found = c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text, found = c.Text, true
			}
		}
	}
	if !found {
		return fmt.Errorf("no full content change for %s", params.TextDocument.URI)
	}

	diagnostics := h.update(path, text)
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *DilHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	source, err := h.source(path)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(path, source)

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

// TextDocumentDocumentSymbol lists classes and members of the last document
// version that converted cleanly.
func (h *DilHandler) TextDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	lib, err := h.library(ctx, path, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return []protocol.DocumentSymbol{}, nil
	}
	return documentSymbols(lib), nil
}

func (h *DilHandler) source(path string) (string, error) {
	h.mu.RLock()
	source, ok := h.content[path]
	h.mu.RUnlock()
	if ok {
		return source, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(content), nil
}

func (h *DilHandler) library(ctx *glsp.Context, path string, rawURI protocol.DocumentUri) (*ast.Library, error) {
	h.mu.RLock()
	lib, ok := h.libs[path]
	h.mu.RUnlock()
	if ok {
		return lib, nil
	}

	source, err := h.source(path)
	if err != nil {
		return nil, err
	}
	sendDiagnosticNotification(ctx, rawURI, h.update(path, source))

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.libs[path], nil
}

// update stores a new document version and returns its diagnostics. The
// previous library is kept when the new text does not convert, so symbols
// stay available while the user is typing.
func (h *DilHandler) update(path, source string) []protocol.Diagnostic {
	h.mu.Lock()
	h.content[path] = source
	h.mu.Unlock()

	lib, errs := grammar.Read(path, source)
	if len(errs) > 0 {
		return ConvertDiagnostics(errs)
	}

	h.mu.Lock()
	h.libs[path] = lib
	h.mu.Unlock()

	return LoweringDiagnostics(context.Background(), h.cfg, lib)
}

func documentSymbols(lib *ast.Library) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}

	for _, class := range lib.Classes {
		symbol := documentSymbol(class.Name, class.Pos, protocol.SymbolKindClass)
		for _, f := range class.Fields {
			symbol.Children = append(symbol.Children, fieldSymbol(f))
		}
		for _, c := range class.Constructors {
			name := class.Name
			if c.Name != "" {
				name += "." + c.Name
			}
			symbol.Children = append(symbol.Children, documentSymbol(name, c.Pos, protocol.SymbolKindConstructor))
		}
		for _, p := range class.Procedures {
			symbol.Children = append(symbol.Children, procedureSymbol(p, protocol.SymbolKindMethod))
		}
		symbols = append(symbols, symbol)
	}
	for _, f := range lib.Fields {
		symbols = append(symbols, fieldSymbol(f))
	}
	for _, p := range lib.Procedures {
		symbols = append(symbols, procedureSymbol(p, protocol.SymbolKindFunction))
	}

	return symbols
}

func fieldSymbol(f *ast.Field) protocol.DocumentSymbol {
	kind := protocol.SymbolKindField
	if f.IsConst {
		kind = protocol.SymbolKindConstant
	} else if f.Owner == nil {
		kind = protocol.SymbolKindVariable
	}
	return documentSymbol(f.Name, f.Pos, kind)
}

func procedureSymbol(p *ast.Procedure, kind protocol.SymbolKind) protocol.DocumentSymbol {
	switch p.Kind {
	case ast.GetterProcedure, ast.SetterProcedure:
		kind = protocol.SymbolKindProperty
	}
	symbol := documentSymbol(p.Name, p.Pos, kind)
	detail := p.Kind.String()
	if p.IsStatic {
		detail = "static " + detail
	}
	symbol.Detail = &detail
	return symbol
}

func documentSymbol(name string, pos ast.Position, kind protocol.SymbolKind) protocol.DocumentSymbol {
	start := protocol.Position{Line: uint32(max(pos.Line-1, 0)), Character: uint32(max(pos.Column-1, 0))}
	end := protocol.Position{Line: start.Line, Character: start.Character + uint32(len(name))}
	r := protocol.Range{Start: start, End: end}
	return protocol.DocumentSymbol{Name: name, Kind: kind, Range: r, SelectionRange: r}
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

// sendDiagnosticNotification always publishes, so an empty list clears
// diagnostics left over from an earlier version.
func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)

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
