package session

import "context"

// Store persists session snapshots so a crawl identity survives process
// restarts.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, sessionID string) (Snapshot, bool, error)
	List(ctx context.Context) ([]Snapshot, error)
	Remove(ctx context.Context, sessionID string) error
	Close() error
}
