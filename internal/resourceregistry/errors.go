package resourceregistry

import "errors"

// Sentinel errors surfaced by Registry operations. Wrapped with context via
// fmt.Errorf("...: %w", ...) at the call site, never returned bare, so
// callers can use errors.Is regardless of the wrapping message.
var (
	// ErrFabricationConflict is returned by UpsertResource when a channel
	// value being written already appears in the known-fabrication list.
	ErrFabricationConflict = errors.New("resourceregistry: channel value conflicts with known fabrication")

	// ErrStaleVerification is returned by UpsertResource when VerifiedOn is
	// older than the 30-day freshness threshold.
	ErrStaleVerification = errors.New("resourceregistry: verified_on is stale")

	// ErrCorrupt indicates the backing store returned structurally invalid
	// data (for example an active resource with zero channels). The
	// registry refuses to serve rather than guess.
	ErrCorrupt = errors.New("resourceregistry: snapshot failed invariant checks")

	// ErrNotFound names a resource id that does not exist in the current
	// snapshot. No Registry operation returns it at present:
	// RecordVerification logs an unknown target id and returns nil.
	ErrNotFound = errors.New("resourceregistry: resource not found")
)
