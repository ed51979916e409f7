package audit

// Trail defines the interface for the durable action-log mirror.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Trail interface {
	Append(r Record) (int, error)
	Entries(session string) ([]Record, error)
	Clear(session string) error
	Sessions() ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Trail at compile time.
var _ Trail = (*DB)(nil)
