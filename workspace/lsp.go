package workspace

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/yarn/config"
	"github.com/dhamidi/yarn/format"
	"github.com/dhamidi/yarn/parser"
)

const lsName = "yarn"

// tokenTypes is the semantic token legend. The index of a type is its
// number on the wire.
var tokenTypes = []format.Class{
	format.ClassKeyword,
	format.ClassMarker,
	format.ClassProperty,
	format.ClassString,
	format.ClassNumber,
	format.ClassVariable,
	format.ClassFunction,
	format.ClassOperator,
	format.ClassComment,
	format.ClassTag,
	format.ClassCommand,
}

var lspTokenTypes = map[format.Class]protocol.SemanticTokenType{
	format.ClassKeyword:  protocol.SemanticTokenTypeKeyword,
	format.ClassMarker:   protocol.SemanticTokenTypeMacro,
	format.ClassProperty: protocol.SemanticTokenTypeProperty,
	format.ClassString:   protocol.SemanticTokenTypeString,
	format.ClassNumber:   protocol.SemanticTokenTypeNumber,
	format.ClassVariable: protocol.SemanticTokenTypeVariable,
	format.ClassFunction: protocol.SemanticTokenTypeFunction,
	format.ClassOperator: protocol.SemanticTokenTypeOperator,
	format.ClassComment:  protocol.SemanticTokenTypeComment,
	format.ClassTag:      protocol.SemanticTokenTypeType,
	format.ClassCommand:  protocol.SemanticTokenTypeMethod,
}

type LSPServer struct {
	workspace *Workspace
	watcher   *FileWatcher
	handler   protocol.Handler
	server    *server.Server
	version   string

	mu     sync.Mutex
	open   map[string]bool
	notify glsp.NotifyFunc
}

func NewLSPServer(version string) *LSPServer {
	ls := &LSPServer{
		version: version,
		open:    make(map[string]bool),
	}

	ls.handler = protocol.Handler{
		Initialize:                     ls.initialize,
		Initialized:                    ls.initialized,
		Shutdown:                       ls.shutdown,
		SetTrace:                       ls.setTrace,
		TextDocumentDidOpen:            ls.textDocumentDidOpen,
		TextDocumentDidChange:          ls.textDocumentDidChange,
		TextDocumentDidClose:           ls.textDocumentDidClose,
		TextDocumentDidSave:            ls.textDocumentDidSave,
		TextDocumentFoldingRange:       ls.textDocumentFoldingRange,
		TextDocumentDocumentSymbol:     ls.textDocumentDocumentSymbol,
		TextDocumentSemanticTokensFull: ls.textDocumentSemanticTokensFull,
		TextDocumentHover:              ls.textDocumentHover,
		TextDocumentDefinition:         ls.textDocumentDefinition,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	cfg, err := config.LoadDir(rootDir)
	if err != nil {
		log.Warningf("%s, using defaults", err)
		cfg = config.Default()
	}
	ls.workspace = New(rootDir, cfg)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindIncremental),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	legend := protocol.SemanticTokensLegend{TokenModifiers: []string{}}
	for _, class := range tokenTypes {
		legend.TokenTypes = append(legend.TokenTypes, string(lspTokenTypes[class]))
	}
	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: legend,
		Full:   true,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	ls.mu.Lock()
	ls.notify = ctx.Notify
	ls.mu.Unlock()

	ls.watcher = NewFileWatcher(ls.workspace, ls.fileChanged)
	ls.watcher.skip = ls.isOpen
	ls.watcher.Start()
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	if ls.watcher != nil {
		ls.watcher.Stop()
	}
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) isOpen(path string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.open[path]
}

func (ls *LSPServer) setOpen(path string, open bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if open {
		ls.open[path] = true
	} else {
		delete(ls.open, path)
	}
}

// fileChanged publishes diagnostics for files the watcher picked up.
func (ls *LSPServer) fileChanged(path string, doc *Document) {
	ls.mu.Lock()
	notify := ls.notify
	ls.mu.Unlock()
	if notify == nil {
		return
	}
	if doc == nil {
		notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         pathToURI(path),
			Diagnostics: []protocol.Diagnostic{},
		})
		return
	}
	ls.publishDiagnostics(notify, doc)
}

func (ls *LSPServer) publishDiagnostics(notify glsp.NotifyFunc, doc *Document) {
	source := lsName
	severity := protocol.DiagnosticSeverityError
	diags := []protocol.Diagnostic{}
	for _, d := range Diagnostics(doc.Tree) {
		diags = append(diags, protocol.Diagnostic{
			Range:    toRange(doc.Content, d.Range),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	version := uint32(max(0, doc.Version))
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         pathToURI(doc.Path),
		Version:     &version,
		Diagnostics: diags,
	})
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.setOpen(path, true)
	doc, err := ls.workspace.Open(context.Background(), path, params.TextDocument.Version, []byte(params.TextDocument.Text))
	if err != nil {
		log.Errorf("open %s: %s", path, err)
		return nil
	}
	ls.publishDiagnostics(ctx.Notify, doc)
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	current := ls.workspace.Document(path)
	if current == nil {
		log.Warningf("change %s: document is not open, dropping version %d", path, params.TextDocument.Version)
		return nil
	}

	version := params.TextDocument.Version
	content := current.Content
	var edits []TextEdit
	var doc *Document
	for _, change := range params.ContentChanges {
		switch change := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			start, end := toOffset(content, change.Range.Start), toOffset(content, change.Range.End)
			edits = append(edits, TextEdit{Start: start, End: end, Text: change.Text})
			content = slices.Concat(content[:start], []byte(change.Text), content[end:])
		case protocol.TextDocumentContentChangeEventWhole:
			edits = nil
			content = []byte(change.Text)
		}
	}
	if len(edits) == len(params.ContentChanges) {
		doc, err = ls.workspace.Edit(context.Background(), path, version, edits...)
	} else {
		// A whole-document change resets the batch.
		doc, err = ls.workspace.UpdateVersion(context.Background(), path, version, content)
	}
	if err != nil {
		log.Errorf("change %s: %s", path, err)
		return nil
	}
	ls.publishDiagnostics(ctx.Notify, doc)
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.setOpen(path, false)
	if _, err := ls.workspace.ScanFile(context.Background(), path); err != nil {
		ls.workspace.Remove(path)
		ls.fileChanged(path, nil)
	}
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	var doc *Document
	if params.Text != nil {
		var version int32
		if current := ls.workspace.Document(path); current != nil {
			version = current.Version
		}
		doc, err = ls.workspace.UpdateVersion(context.Background(), path, version, []byte(*params.Text))
	} else {
		doc, err = ls.workspace.ScanFile(context.Background(), path)
	}
	if err == nil {
		ls.publishDiagnostics(ctx.Notify, doc)
	}
	return nil
}

func (ls *LSPServer) document(uri protocol.DocumentUri) *Document {
	path, err := uriToPath(uri)
	if err != nil {
		return nil
	}
	return ls.workspace.Document(path)
}

func (ls *LSPServer) textDocumentFoldingRange(ctx *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	doc := ls.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	var ranges []protocol.FoldingRange
	for _, f := range Folds(doc.Tree) {
		kind := f.Kind
		ranges = append(ranges, protocol.FoldingRange{
			StartLine: uint32(f.StartLine),
			EndLine:   uint32(f.EndLine),
			Kind:      &kind,
		})
	}
	return ranges, nil
}

func (ls *LSPServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := ls.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	return documentSymbols(doc.Content, Outline(doc.Tree)), nil
}

func documentSymbols(content []byte, symbols []Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, s := range symbols {
		ds := protocol.DocumentSymbol{
			Name:           s.Name,
			Kind:           symbolKind(s.Kind),
			Range:          toRange(content, s.Node.Range()),
			SelectionRange: toRange(content, s.Selection),
			Children:       documentSymbols(content, s.Children),
		}
		if ds.Name == "" {
			ds.Name = "(empty)"
		}
		if s.Detail != "" {
			detail := s.Detail
			ds.Detail = &detail
		}
		out = append(out, ds)
	}
	return out
}

func symbolKind(k SymbolKind) protocol.SymbolKind {
	switch k {
	case SymbolNode:
		return protocol.SymbolKindNamespace
	case SymbolOption:
		return protocol.SymbolKindEvent
	case SymbolVariable:
		return protocol.SymbolKindVariable
	case SymbolEnum:
		return protocol.SymbolKindEnum
	case SymbolEnumCase:
		return protocol.SymbolKindEnumMember
	}
	return protocol.SymbolKindString
}

func (ls *LSPServer) textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc := ls.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	return &protocol.SemanticTokens{Data: encodeTokens(doc.Content, Tokens(doc.Tree))}, nil
}

// encodeTokens produces the relative five-integer encoding of semantic
// tokens: line delta, start delta, length, type and modifiers.
func encodeTokens(content []byte, tokens []Token) []uint32 {
	data := []uint32{}
	var prevLine, prevChar uint32
	for _, tok := range tokens {
		typ := slices.Index(tokenTypes, tok.Class)
		if typ < 0 {
			continue
		}
		r := toRange(content, tok.Range)
		line, char := r.Start.Line, r.Start.Character
		if line != prevLine {
			prevChar = 0
		}
		data = append(data, line-prevLine, char-prevChar, r.End.Character-char, uint32(typ), 0)
		prevLine, prevChar = line, char
	}
	return data
}

func (ls *LSPServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := ls.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	n := NodeAt(doc.Tree, toOffset(doc.Content, params.Position))
	var sb strings.Builder
	fmt.Fprintf(&sb, "`%s`", n.Kind())
	for p := n.Parent(); !p.IsZero(); p = p.Parent() {
		fmt.Fprintf(&sb, " < `%s`", p.Kind())
	}
	if n.HasError() {
		for e := range n.Descendants(func(d parser.Node) bool { return d.IsError() || d.IsMissing() }) {
			fmt.Fprintf(&sb, "\n\n%s", e.Error())
			break
		}
	}
	r := toRange(doc.Content, n.Range())
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: sb.String()},
		Range:    &r,
	}, nil
}

// textDocumentDefinition resolves the target of a jump or detour to the
// node with that title.
func (ls *LSPServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := ls.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	n := NodeAt(doc.Tree, toOffset(doc.Content, params.Position))
	if n.Kind() != "identifier" || n.Parent().Kind() != "jump_statement" {
		return nil, nil
	}
	target, node, ok := ls.workspace.FindNode(n.Text())
	if !ok {
		return nil, nil
	}
	return protocol.Location{
		URI:   pathToURI(target.Path),
		Range: toRange(target.Content, node.Range()),
	}, nil
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
