package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/starford/redline/internal/checksum"
	"github.com/starford/redline/internal/models"
)

// Sink receives parsed import documents.
type Sink interface {
	Import(ctx context.Context, session, html string, action models.Action) error
}

// EventCallback is called after a file has been imported into a session.
type EventCallback func(session, path string)

const debounce = 150 * time.Millisecond

// Importer feeds files matching a doublestar pattern under root into a Sink.
// Files whose checksum has not changed since the last import are skipped.
type Importer struct {
	root    string
	pattern string
	sink    Sink
	logger  *slog.Logger
	cb      EventCallback
	seen    map[string]string // rel path -> checksum
}

// New validates pattern and returns an Importer.
func New(root, pattern string, sink Sink, logger *slog.Logger, cb EventCallback) (*Importer, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Importer{
		root:    abs,
		pattern: pattern,
		sink:    sink,
		logger:  logger,
		cb:      cb,
		seen:    make(map[string]string),
	}, nil
}

// Scan imports every file already present under root and returns how many
// were imported.
func (im *Importer) Scan(ctx context.Context) (int, error) {
	matches, err := doublestar.Glob(os.DirFS(im.root), im.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rel := range matches {
		if im.importFile(ctx, filepath.FromSlash(rel)) {
			n++
		}
	}
	return n, nil
}

// Watch scans root once, then processes file change events until ctx is
// cancelled. Bursts of writes to the same file are coalesced.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, im.root); err != nil {
		return err
	}
	if n, err := im.Scan(ctx); err != nil {
		im.logger.Warn("importer: initial scan failed", slog.String("error", err.Error()))
	} else {
		im.logger.Info("importer: started", slog.String("root", im.root), slog.String("pattern", im.pattern), slog.Int("imported", n))
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			im.logger.Info("importer: stopped")
			return nil

		case <-timerCh:
			for rel := range pending {
				im.importFile(ctx, rel)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						im.logger.Warn("importer: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() {
							if rel, ok := im.match(p); ok {
								schedule(rel)
							}
						}
						return nil
					})
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if rel, ok := im.match(ev.Name); ok {
				schedule(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("importer: error", slog.String("error", watchErr.Error()))
		}
	}
}

// match reports whether the absolute path abs matches the pattern and
// returns it relative to root.
func (im *Importer) match(abs string) (string, bool) {
	rel, err := filepath.Rel(im.root, abs)
	if err != nil {
		return "", false
	}
	ok, err := doublestar.Match(im.pattern, filepath.ToSlash(rel))
	if err != nil || !ok {
		return "", false
	}
	return rel, true
}

func (im *Importer) importFile(ctx context.Context, rel string) bool {
	data, err := os.ReadFile(filepath.Join(im.root, rel))
	if err != nil {
		im.logger.Warn("importer: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	sum := checksum.Sum(data)
	if im.seen[rel] == sum {
		return false
	}
	doc, err := Parse(rel, data)
	if err != nil {
		im.logger.Warn("importer: parse failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	if err := im.sink.Import(ctx, doc.Session, doc.HTML, doc.Action); err != nil {
		im.logger.Warn("importer: import failed",
			slog.String("path", rel),
			slog.String("session", doc.Session),
			slog.String("error", err.Error()))
		return false
	}
	im.seen[rel] = sum
	im.logger.Debug("importer: imported", slog.String("path", rel), slog.String("session", doc.Session))
	if im.cb != nil {
		im.cb(doc.Session, rel)
	}
	return true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
