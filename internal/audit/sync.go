package audit

import (
	"context"
	"log/slog"

	"github.com/starford/redline/internal/storage"
)

// Sync drops the records of sessions that no longer exist in store. It runs
// once at startup so a session deleted while the server was down does not
// keep showing up in search results.
func Sync(ctx context.Context, db Trail, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List(ctx)
	if err != nil {
		return err
	}
	live := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		live[m.ID] = struct{}{}
	}

	sessions, err := db.Sessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if _, ok := live[s]; ok {
			continue
		}
		if err := db.Clear(s); err != nil {
			logger.Warn("sync: clear failed", slog.String("session", s), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("session", s))
	}
	return nil
}
