package workspace

import (
	"context"
	"io/fs"
	"time"
)

// ChangeFunc is called after the watcher updated or removed a document.
// doc is nil for removed files.
type ChangeFunc func(path string, doc *Document)

// FileWatcher polls the workspace root and keeps documents in sync with
// the files on disk.
type FileWatcher struct {
	workspace    *Workspace
	stopCh       chan struct{}
	doneCh       chan struct{}
	pollInterval time.Duration
	modTimes     map[string]time.Time
	onChange     ChangeFunc
	// skip reports paths owned by an editor, which the watcher leaves alone.
	skip func(path string) bool
}

func NewFileWatcher(w *Workspace, onChange ChangeFunc) *FileWatcher {
	return &FileWatcher{
		workspace:    w,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		pollInterval: w.cfg.Workspace.PollInterval.Duration,
		modTimes:     make(map[string]time.Time),
		onChange:     onChange,
	}
}

func (fw *FileWatcher) Start() {
	go fw.run()
}

// Stop ends polling and waits for a running scan to finish.
func (fw *FileWatcher) Stop() {
	close(fw.stopCh)
	<-fw.doneCh
}

func (fw *FileWatcher) run() {
	defer close(fw.doneCh)
	ticker := time.NewTicker(fw.pollInterval)
	defer ticker.Stop()

	fw.Scan()

	for {
		select {
		case <-fw.stopCh:
			return
		case <-ticker.C:
			fw.Scan()
		}
	}
}

// Scan performs one poll: new and modified files are reparsed and
// deleted files are removed. Skipped paths are neither reparsed nor
// removed.
func (fw *FileWatcher) Scan() {
	ctx := context.Background()
	current := make(map[string]bool)

	fw.workspace.Walk(func(path string, d fs.DirEntry) error {
		current[path] = true
		if fw.skip != nil && fw.skip(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		lastMod, known := fw.modTimes[path]
		if known && !info.ModTime().After(lastMod) {
			return nil
		}
		fw.modTimes[path] = info.ModTime()
		doc, err := fw.workspace.ScanFile(ctx, path)
		if err != nil {
			log.Warningf("watch %s: %s", path, err)
			return nil
		}
		if fw.onChange != nil {
			fw.onChange(path, doc)
		}
		return nil
	})

	for path := range fw.modTimes {
		if current[path] || (fw.skip != nil && fw.skip(path)) {
			continue
		}
		delete(fw.modTimes, path)
		fw.workspace.Remove(path)
		if fw.onChange != nil {
			fw.onChange(path, nil)
		}
	}
}
