// Package workspace keeps the parsed state of a directory of Yarn
// scripts and updates it incrementally as files change.
package workspace

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/yarn/config"
	"github.com/dhamidi/yarn/parser"
)

var log = commonlog.GetLogger("yarn.workspace")

// Document is an immutable snapshot of one script. Updates replace the
// snapshot instead of modifying it.
type Document struct {
	Path    string
	Version int32
	Content []byte
	Tree    *parser.Tree
	// Changed lists the ranges whose syntax differs from the previous
	// snapshot. A fresh document has no changed ranges.
	Changed []parser.Range
}

// TextEdit replaces the bytes [Start, End) of a document with Text.
// Offsets refer to the content after all preceding edits in the same
// batch were applied.
type TextEdit struct {
	Start, End int
	Text       string
}

type Workspace struct {
	mu     sync.RWMutex
	root   string
	cfg    *config.Config
	parser *parser.Parser
	docs   map[string]*Document
}

func New(root string, cfg *config.Config) *Workspace {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Workspace{
		root:   root,
		cfg:    cfg,
		parser: parser.New(cfg.ParserOptions()...),
		docs:   make(map[string]*Document),
	}
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) Config() *config.Config { return w.cfg }

// Walk calls fn for every script below the root that the configuration
// does not exclude. Hidden directories are skipped.
func (w *Workspace) Walk(fn func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if d.IsDir() {
			if path != w.root && (strings.HasPrefix(d.Name(), ".") || w.cfg.Excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.cfg.IsScript(path) || w.cfg.Excluded(rel) {
			return nil
		}
		return fn(path, d)
	})
}

func (w *Workspace) ScanAll(ctx context.Context) error {
	return w.Walk(func(path string, _ fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.ScanFile(ctx, path); err != nil {
			log.Warningf("scan %s: %s", path, err)
		}
		return nil
	})
}

// ScanFile reads path from disk and updates its document.
func (w *Workspace) ScanFile(ctx context.Context, path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return w.Update(ctx, path, content)
}

// Open parses content from scratch and replaces any document at path.
func (w *Workspace) Open(ctx context.Context, path string, version int32, content []byte) (*Document, error) {
	tree, err := w.parser.Parse(ctx, parser.Bytes(content))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	doc := &Document{Path: path, Version: version, Content: content, Tree: tree}

	w.mu.Lock()
	w.docs[path] = doc
	w.mu.Unlock()

	log.Debugf("opened %s: %d bytes, %d tokens", path, len(content), tree.Stats().Lexed)
	return doc, nil
}

// Update replaces the content of path. When a document already exists,
// the difference between old and new content becomes a single edit and
// the tree is reparsed incrementally.
func (w *Workspace) Update(ctx context.Context, path string, content []byte) (*Document, error) {
	old := w.Document(path)
	if old == nil {
		return w.Open(ctx, path, 0, content)
	}
	if bytes.Equal(old.Content, content) {
		return old, nil
	}
	return w.UpdateVersion(ctx, path, old.Version+1, content)
}

// UpdateVersion is Update with the document version chosen by the
// caller, as editors do.
func (w *Workspace) UpdateVersion(ctx context.Context, path string, version int32, content []byte) (*Document, error) {
	old := w.Document(path)
	if old == nil {
		return w.Open(ctx, path, version, content)
	}
	if bytes.Equal(old.Content, content) {
		if old.Version == version {
			return old, nil
		}
		return w.Edit(ctx, path, version)
	}
	start, oldEnd, newEnd := diffBounds(old.Content, content)
	return w.Edit(ctx, path, version, TextEdit{Start: start, End: oldEnd, Text: string(content[start:newEnd])})
}

// Edit applies a batch of edits to an open document, queueing them on
// the previous tree and reparsing once.
func (w *Workspace) Edit(ctx context.Context, path string, version int32, edits ...TextEdit) (*Document, error) {
	old := w.Document(path)
	if old == nil {
		return nil, fmt.Errorf("edit %s: %w", path, os.ErrNotExist)
	}

	content := old.Content
	pending := parser.NewPending(old.Tree)
	for _, te := range edits {
		e, err := parser.NewEdit(content, te.Start, te.End, []byte(te.Text))
		if err != nil {
			return nil, fmt.Errorf("edit %s: %w", path, err)
		}
		if err := pending.Add(e); err != nil {
			return nil, fmt.Errorf("edit %s: %w", path, err)
		}
		content = slices.Concat(content[:te.Start], []byte(te.Text), content[te.End:])
	}

	tree, err := w.parser.Reparse(ctx, pending, parser.Bytes(content))
	if err != nil {
		return nil, fmt.Errorf("reparse %s: %w", path, err)
	}
	edited, err := pending.Tree()
	if err != nil {
		return nil, fmt.Errorf("reparse %s: %w", path, err)
	}
	doc := &Document{
		Path:    path,
		Version: version,
		Content: content,
		Tree:    tree,
		Changed: parser.ChangedRanges(edited, tree),
	}

	w.mu.Lock()
	w.docs[path] = doc
	w.mu.Unlock()

	stats := tree.Stats()
	log.Debugf("reparsed %s: %d edits, %d tokens lexed, %d reused, %d changed ranges",
		path, len(edits), stats.Lexed, stats.Reused, len(doc.Changed))
	return doc, nil
}

func (w *Workspace) Remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, path)
}

func (w *Workspace) Document(path string) *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.docs[path]
}

// Documents returns all documents ordered by path.
func (w *Workspace) Documents() []*Document {
	w.mu.RLock()
	docs := make([]*Document, 0, len(w.docs))
	for _, d := range w.docs {
		docs = append(docs, d)
	}
	w.mu.RUnlock()
	slices.SortFunc(docs, func(a, b *Document) int { return strings.Compare(a.Path, b.Path) })
	return docs
}

// FindNode returns the document and node whose title is title.
func (w *Workspace) FindNode(title string) (*Document, parser.Node, bool) {
	for _, doc := range w.Documents() {
		for _, sym := range Outline(doc.Tree) {
			if sym.Kind == SymbolNode && sym.Name == title {
				return doc, sym.Node, true
			}
		}
	}
	return nil, parser.Node{}, false
}

// diffBounds returns the replaced region [start, oldEnd) of a and the
// region [start, newEnd) of b that replaces it.
func diffBounds(a, b []byte) (start, oldEnd, newEnd int) {
	n := min(len(a), len(b))
	for start < n && a[start] == b[start] {
		start++
	}
	oldEnd, newEnd = len(a), len(b)
	for oldEnd > start && newEnd > start && a[oldEnd-1] == b[newEnd-1] {
		oldEnd--
		newEnd--
	}
	return start, oldEnd, newEnd
}
