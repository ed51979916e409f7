// Package editservice serializes access to editor sessions and connects them
// to persistence, the audit trail and live update fan-out.
package editservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/audit"
	"github.com/starford/redline/internal/editor"
	"github.com/starford/redline/internal/markup"
	"github.com/starford/redline/internal/models"
	"github.com/starford/redline/internal/storage"
)

// Publisher receives session updates for connected UIs.
type Publisher interface {
	PublishSessionEvent(session, kind string, data any)
}

// Options tunes the editors the service creates.
type Options struct {
	Conventions markup.Conventions
	Strategy    editor.Strategy
	MaxHistory  int
	CacheSize   int
}

// DefaultOptions returns the settings used when no config is given.
func DefaultOptions() Options {
	return Options{
		Conventions: markup.DefaultConventions(),
		Strategy:    editor.StrategyNeighbor,
		MaxHistory:  editor.DefaultMaxHistory,
		CacheSize:   128,
	}
}

// View is the externally visible state of one session.
type View struct {
	ID          string            `json:"id"`
	ContentHTML string            `json:"content_html"`
	Cursor      int               `json:"cursor"`
	HistoryLen  int               `json:"history_len"`
	LogCount    int               `json:"log_count"`
	Selection   *editor.Selection `json:"selection"`
	Proposal    *editor.Proposal  `json:"proposal"`
	Locked      bool              `json:"locked"`
	Editable    bool              `json:"editable"`
	Checksum    string            `json:"checksum"`
	UpdatedAt   time.Time         `json:"updated_at,omitzero"`
}

// Update is pushed to watchers after every editor mutation.
type Update struct {
	Session string `json:"session"`
	editor.Event
}

// Service coordinates sessions, storage, audit and publishing.
type Service struct {
	store  storage.Provider
	trail  audit.Trail
	pub    Publisher
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex // guards cache misses and retired
	cache *lru.Cache[string, *session]
	// retired holds evicted sessions that were busy at eviction time. A
	// reload of the same id waits for them so it reads their last save.
	retired map[string]*session

	watchMu  sync.Mutex
	watchers map[string]map[int]func(Update)
	nextW    int
}

// New creates a service. trail and pub may be nil.
func New(store storage.Provider, trail audit.Trail, pub Publisher, logger *slog.Logger, opts Options) (*Service, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	s := &Service{
		store:    store,
		trail:    trail,
		pub:      pub,
		logger:   logger,
		opts:     opts,
		watchers: make(map[string]map[int]func(Update)),
		retired:  make(map[string]*session),
	}
	// Evictions only happen from Add and Remove, both called with s.mu held.
	cache, err := lru.NewWithEvict(opts.CacheSize, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("editservice: cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *Service) editorOptions() []editor.Option {
	return []editor.Option{
		editor.WithConventions(s.opts.Conventions),
		editor.WithStrategy(s.opts.Strategy),
		editor.WithMaxHistory(s.opts.MaxHistory),
	}
}

// List returns metadata for every stored session.
func (s *Service) List(ctx context.Context) ([]models.SessionMetadata, error) {
	return s.store.List(ctx)
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	var v View
	err := s.with(ctx, id, false, func(sess *session) error {
		v = sess.view()
		return nil
	})
	return v, err
}

// SetContent replaces the document of session id, creating the session when
// it does not exist. A non-empty ifMatch must equal the stored checksum.
func (s *Service) SetContent(ctx context.Context, id, html, ifMatch string) (View, error) {
	return s.setContent(ctx, id, html, "", ifMatch)
}

// Import implements importer.Sink.
func (s *Service) Import(ctx context.Context, id, html string, action models.Action) error {
	_, err := s.setContent(ctx, id, html, action, "")
	return err
}

func (s *Service) setContent(ctx context.Context, id, html string, action models.Action, ifMatch string) (View, error) {
	var v View
	err := s.with(ctx, id, true, func(sess *session) error {
		if ifMatch != "" && ifMatch != sess.meta.Checksum {
			return fmt.Errorf("session %s: checksum mismatch: %w", id, apperr.ErrConflict)
		}
		if sess.ed.Locked() {
			return fmt.Errorf("session %s: %w", id, apperr.ErrLocked)
		}
		sess.ed.SetContent(html, action)
		return s.persist(ctx, sess, &v)
	})
	return v, err
}

// Select resolves a selection. A nil text clears it, which is always allowed.
func (s *Service) Select(ctx context.Context, id string, text *string, blockIndex *int) (View, error) {
	var v View
	err := s.with(ctx, id, false, func(sess *session) error {
		if text != nil {
			if err := sess.writable(); err != nil {
				return err
			}
		}
		if !sess.ed.SelectText(text, blockIndex) {
			return fmt.Errorf("session %s: selection not found in document: %w", id, apperr.ErrNotFound)
		}
		v = sess.view()
		return nil
	})
	return v, err
}

// Propose attaches an edit to the current selection and locks the session
// until the proposal is decided or deferred.
func (s *Service) Propose(ctx context.Context, id, editedHTML string) (editor.Proposal, error) {
	var p editor.Proposal
	err := s.with(ctx, id, false, func(sess *session) error {
		if err := sess.writable(); err != nil {
			return err
		}
		if sess.ed.Selection() == nil {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNoSelection)
		}
		var ok bool
		p, ok = sess.ed.Propose(editedHTML)
		if !ok {
			return fmt.Errorf("session %s: selection no longer matches the document: %w", id, apperr.ErrConflict)
		}
		sess.ed.SetLocked(true)
		return s.persist(ctx, sess, nil)
	})
	return p, err
}

// Decide applies or cancels the pending proposal and unlocks the session.
func (s *Service) Decide(ctx context.Context, id string, apply bool) (editor.Proposal, error) {
	var p editor.Proposal
	err := s.with(ctx, id, false, func(sess *session) error {
		var ok bool
		p, ok = sess.ed.Decide(apply)
		if !ok {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNoProposal)
		}
		sess.ed.SetLocked(false)
		return s.persist(ctx, sess, nil)
	})
	return p, err
}

// Defer ends the pending proposal without an edit and unlocks the session.
func (s *Service) Defer(ctx context.Context, id string) (editor.Proposal, error) {
	var p editor.Proposal
	err := s.with(ctx, id, false, func(sess *session) error {
		var ok bool
		p, ok = sess.ed.Defer()
		if !ok {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNoProposal)
		}
		sess.ed.SetLocked(false)
		return nil
	})
	return p, err
}

// Resolve applies a caller-supplied resolution to the pending highlight.
func (s *Service) Resolve(ctx context.Context, id string, r editor.Resolution) (View, error) {
	var v View
	err := s.with(ctx, id, false, func(sess *session) error {
		if !sess.ed.ResolveHighlight(r) {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNoHighlight)
		}
		sess.ed.SetLocked(false)
		return s.persist(ctx, sess, &v)
	})
	return v, err
}

// Undo steps back one snapshot. moved is false at the start of history.
func (s *Service) Undo(ctx context.Context, id string) (v View, moved bool, err error) {
	err = s.with(ctx, id, false, func(sess *session) error {
		if moved = sess.ed.Undo(); !moved {
			v = sess.view()
			return nil
		}
		return s.persist(ctx, sess, &v)
	})
	return v, moved, err
}

// Redo steps forward one snapshot. moved is false at the end of history.
func (s *Service) Redo(ctx context.Context, id string) (v View, moved bool, err error) {
	err = s.with(ctx, id, false, func(sess *session) error {
		if moved = sess.ed.Redo(); !moved {
			v = sess.view()
			return nil
		}
		return s.persist(ctx, sess, &v)
	})
	return v, moved, err
}

// Logs returns the action log of a session.
func (s *Service) Logs(ctx context.Context, id string) ([]models.LogEntry, error) {
	var logs []models.LogEntry
	err := s.with(ctx, id, false, func(sess *session) error {
		logs = sess.ed.Logs()
		return nil
	})
	return logs, err
}

// Transcript renders the action log as text.
func (s *Service) Transcript(ctx context.Context, id string) (string, error) {
	logs, err := s.Logs(ctx, id)
	if err != nil {
		return "", err
	}
	return editor.Transcript(logs), nil
}

// ClearLogs resets the session to empty and drops its audit trail.
func (s *Service) ClearLogs(ctx context.Context, id string) (View, error) {
	var v View
	err := s.with(ctx, id, false, func(sess *session) error {
		sess.ed.ClearLogs()
		if s.trail != nil {
			if err := s.trail.Clear(id); err != nil {
				s.logger.Warn("audit clear failed", slog.String("session", id), slog.String("error", err.Error()))
			}
		}
		return s.persist(ctx, sess, &v)
	})
	return v, err
}

// SetFlags updates the advisory lock and editable flags. Nil leaves a flag as is.
func (s *Service) SetFlags(ctx context.Context, id string, locked, editable *bool) (View, error) {
	var v View
	err := s.with(ctx, id, false, func(sess *session) error {
		if locked != nil {
			sess.ed.SetLocked(*locked)
		}
		if editable != nil {
			sess.ed.SetEditable(*editable)
		}
		v = sess.view()
		return nil
	})
	return v, err
}

// Delete removes a session from storage, the audit trail and the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := storage.ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitRetired(id)
	if sess, ok := s.cache.Peek(id); ok {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.deleted = true
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	if s.trail != nil {
		if err := s.trail.Clear(id); err != nil {
			s.logger.Warn("audit clear failed", slog.String("session", id), slog.String("error", err.Error()))
		}
	}
	if s.pub != nil {
		s.pub.PublishSessionEvent(id, "deleted", map[string]string{"session": id})
	}
	return nil
}

// Search runs a full-text query over the audit trail.
func (s *Service) Search(_ context.Context, query string, limit int) ([]audit.SearchResult, error) {
	if s.trail == nil {
		return nil, nil
	}
	return s.trail.Search(query, limit)
}

// Watch registers fn for every update of session id until the returned
// func is called. fn runs while the session is locked and must not block.
func (s *Service) Watch(id string, fn func(Update)) func() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.nextW++
	wid := s.nextW
	if s.watchers[id] == nil {
		s.watchers[id] = make(map[int]func(Update))
	}
	s.watchers[id][wid] = fn
	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers[id], wid)
		if len(s.watchers[id]) == 0 {
			delete(s.watchers, id)
		}
	}
}

// with runs fn on session id while holding the session's lock. create makes
// a missing session instead of failing with apperr.ErrNotFound.
func (s *Service) with(ctx context.Context, id string, create bool, fn func(*session) error) error {
	for {
		sess, err := s.open(ctx, id, create)
		if err != nil {
			return err
		}
		done, err := s.run(sess, fn)
		if sess.evicted.Load() {
			s.release(sess)
		}
		if done {
			return err
		}
	}
}

// run calls fn under the session lock. It reports false without calling fn
// when the session was evicted before the lock was taken.
func (s *Service) run(sess *session, fn func(*session) error) (bool, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.evicted.Load() {
		return false, nil
	}
	if sess.deleted {
		return true, fmt.Errorf("session %s: %w", sess.id, apperr.ErrNotFound)
	}
	return true, fn(sess)
}

// onEvict runs with s.mu held.
func (s *Service) onEvict(id string, sess *session) {
	if sess.deleted {
		return
	}
	sess.evicted.Store(true)
	if sess.mu.TryLock() {
		sess.mu.Unlock()
	} else {
		s.retired[id] = sess
	}
	s.logger.Debug("session evicted", slog.String("session", id))
}

// release forgets a retired session once its holder is done with it.
func (s *Service) release(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired[sess.id] == sess {
		delete(s.retired, sess.id)
	}
}

// awaitRetired blocks until an evicted session with this id has no holder.
// Callers hold s.mu.
func (s *Service) awaitRetired(id string) {
	old, ok := s.retired[id]
	if !ok {
		return
	}
	delete(s.retired, id)
	old.mu.Lock() //nolint:staticcheck // empty critical section waits for the holder
	old.mu.Unlock()
}

func (s *Service) open(ctx context.Context, id string, create bool) (*session, error) {
	if err := storage.ValidateID(id); err != nil {
		return nil, err
	}
	if sess, ok := s.cache.Get(id); ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.cache.Get(id); ok {
		return sess, nil
	}
	s.awaitRetired(id)

	state, meta, err := s.store.Load(ctx, id)
	var ed *editor.Editor
	switch {
	case err == nil:
		ed = editor.Restore(state, s.editorOptions()...)
	case errors.Is(err, apperr.ErrNotFound) && create:
		ed = editor.New(s.editorOptions()...)
		meta = models.SessionMetadata{ID: id}
	default:
		return nil, err
	}

	sess := &session{id: id, ed: ed, meta: meta}
	ed.Subscribe(func(ev editor.Event) { s.onEvent(id, ev) })
	s.cache.Add(id, sess)
	s.logger.Debug("session opened", slog.String("session", id), slog.Int("logs", len(state.Logs)))
	return sess, nil
}

func (s *Service) onEvent(id string, ev editor.Event) {
	if ev.Entry != nil && s.trail != nil {
		if _, err := s.trail.Append(audit.Record{Session: id, Entry: *ev.Entry, HTML: ev.Content}); err != nil {
			s.logger.Warn("audit append failed",
				slog.String("session", id),
				slog.String("action", string(ev.Entry.Action)),
				slog.String("error", err.Error()))
		}
	}
	u := Update{Session: id, Event: ev}
	if s.pub != nil {
		s.pub.PublishSessionEvent(id, string(ev.Kind), u)
	}

	s.watchMu.Lock()
	fns := make([]func(Update), 0, len(s.watchers[id]))
	for _, fn := range s.watchers[id] {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

// persist saves the session and fills v, if non-nil, with the fresh view.
func (s *Service) persist(ctx context.Context, sess *session, v *View) error {
	meta, err := s.store.Save(ctx, sess.id, sess.ed.State())
	if err != nil {
		s.logger.Error("session save failed", slog.String("session", sess.id), slog.String("error", err.Error()))
		return err
	}
	sess.meta = meta
	if v != nil {
		*v = sess.view()
	}
	return nil
}
