package audit

import "context"

// Store is the append-only persistence contract for CrisisEvents.
type Store interface {
	// Append writes a single event. Implementations must be safe to call
	// concurrently and must never allow an existing event to be
	// overwritten.
	Append(ctx context.Context, event *CrisisEvent) error
	// Get returns a single event by id.
	Get(ctx context.Context, id string) (*CrisisEvent, error)
	// List returns events for a conversation, most recent first, up to
	// limit (0 means no limit).
	List(ctx context.Context, conversationID string, limit int) ([]*CrisisEvent, error)
}
