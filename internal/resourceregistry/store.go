package resourceregistry

import "context"

// Store is the persistence boundary for the registry's relational store
// (§6 "Registry on-disk layout": resources, verification_log,
// known_fabrications tables). Registry holds its working set entirely in
// memory (§5) and only talks to Store on load and on writer operations.
type Store interface {
	// LoadAll returns every resource and known fabrication currently on
	// record, used both for the initial load and for periodic reloads.
	LoadAll(ctx context.Context) ([]*Resource, []*KnownFabrication, error)

	// SaveResource upserts a single resource row.
	SaveResource(ctx context.Context, r *Resource) error

	// AppendVerification appends a verification_log row. Implementations
	// must be idempotent on (TargetResourceID, AttemptedAt) so retried
	// writes do not duplicate history.
	AppendVerification(ctx context.Context, event *VerificationEvent) error
}
