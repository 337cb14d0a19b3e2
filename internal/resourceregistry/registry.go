package resourceregistry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/telemetry"
)

const (
	verificationFreshnessWindow = 30 * 24 * time.Hour
	degradedRecheckWindow       = 24 * time.Hour
	cacheKey                    = "crisis_registry:snapshot"
)

// Registry is the process-scoped, read-shared, single-writer resource
// store described in §4.A/§5. Readers always observe a single atomically
// loaded snapshot; writers (UpsertResource, RecordVerification) rebuild a
// fresh snapshot and swap it in rather than mutating shared state, the same
// copy-on-swap discipline as the cache-then-fetch manager this package is
// adapted from.
type Registry struct {
	store Store
	cache Cache
	obs   telemetry.Observability

	snap atomic.Pointer[snapshot]

	writeMu sync.Mutex

	stopCh  chan struct{}
	stopped sync.Once
}

// Options configures a new Registry.
type Options struct {
	Store         Store
	Cache         Cache
	Observability telemetry.Observability
}

// New constructs a Registry and performs the initial load. A load failure
// is returned to the caller rather than starting with an empty registry,
// since an unloadable registry is fatal to the pipeline (§4.A failure
// semantics).
func New(ctx context.Context, opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("resourceregistry: store is required")
	}
	cache := opts.Cache
	if cache == nil {
		cache = NoopCache{}
	}
	obs := opts.Observability
	if obs.Logger == nil {
		obs = telemetry.Noop()
	}
	r := &Registry{store: opts.Store, cache: cache, obs: obs, stopCh: make(chan struct{})}
	if err := r.reload(ctx); err != nil {
		return nil, fmt.Errorf("resourceregistry: initial load: %w", err)
	}
	return r, nil
}

// StartSync runs a background reload loop on interval. Every reload
// failure, ErrCorrupt included, is logged and the last good snapshot is kept
// in service; only the initial load in New fails outright.
func (r *Registry) StartSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				if err := r.reload(ctx); err != nil {
					r.obs.Logger.Error(ctx, "registry reload failed, serving stale snapshot", "error", err.Error())
				}
			}
		}
	}()
}

// StopSync stops the background reload loop started by StartSync.
func (r *Registry) StopSync() {
	r.stopped.Do(func() { close(r.stopCh) })
}

func (r *Registry) reload(ctx context.Context) error {
	resources, fabrications, err := r.loadFromCacheOrStore(ctx)
	if err != nil {
		return err
	}
	snap, err := newSnapshot(resources, fabrications)
	if err != nil {
		return err
	}
	r.snap.Store(snap)
	if payload, encErr := encodeSnapshot(resources, fabrications); encErr == nil {
		_ = r.cache.Set(ctx, cacheKey, payload, 2*time.Minute)
	}
	return nil
}

func (r *Registry) loadFromCacheOrStore(ctx context.Context) ([]*Resource, []*KnownFabrication, error) {
	if payload, ok := r.cache.Get(ctx, cacheKey); ok {
		if resources, fabrications, err := decodeSnapshot(payload); err == nil {
			return resources, fabrications, nil
		}
	}
	return r.store.LoadAll(ctx)
}

func (r *Registry) current() *snapshot {
	snap := r.snap.Load()
	if snap == nil {
		return &snapshot{byID: map[string]*Resource{}, fabrications: map[string]*KnownFabrication{}}
	}
	return snap
}

// Lookup returns active (and degraded, flagged) resources matching region,
// situation, and optional topical tag, ordered per §4.A. An empty slice is
// a legal result.
func (r *Registry) Lookup(_ context.Context, region domain.Region, situation domain.SituationType, tag domain.TopicalTag) []*Resource {
	return r.current().lookup(region, situation, tag)
}

// IsFabrication tests value against the known-fabrication list and, when
// region is non-empty, suggests a verified alternative resource offering
// the same channel kind.
func (r *Registry) IsFabrication(_ context.Context, value string, kind domain.ChannelKind, region domain.Region) (bool, *KnownFabrication, *Resource) {
	return r.current().isFabrication(value, kind, region)
}

// ContainsFabrication reports whether text contains any known-fabrication
// literal as a substring.
func (r *Registry) ContainsFabrication(_ context.Context, text string) (string, bool) {
	return r.current().containsFabrication(text)
}

// IsKnownLiteral reports whether value matches a contact channel literal
// on some registered, non-retired resource.
func (r *Registry) IsKnownLiteral(_ context.Context, value string) bool {
	return r.current().isKnownLiteral(value)
}

// UpsertResource validates and persists a resource, then rebuilds the
// snapshot so the write is immediately visible to readers.
func (r *Registry) UpsertResource(ctx context.Context, res *Resource) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	snap := r.current()
	for _, ch := range res.Channels {
		if isFab, _, _ := snap.isFabrication(ch.Value, ch.Kind, res.Region); isFab {
			return fmt.Errorf("%w: %s", ErrFabricationConflict, ch.Value)
		}
	}
	if time.Since(res.VerifiedOn) > verificationFreshnessWindow {
		return fmt.Errorf("%w: verified_on=%s", ErrStaleVerification, res.VerifiedOn.Format(time.RFC3339))
	}
	if res.NextVerificationDue.IsZero() {
		res.NextVerificationDue = res.VerifiedOn.Add(verificationFreshnessWindow)
	}

	if err := r.store.SaveResource(ctx, res); err != nil {
		return fmt.Errorf("resourceregistry: upsert resource %q: %w", res.ID, err)
	}
	return r.reload(ctx)
}

// RecordVerification appends a verification event and updates the target
// resource's freshness/status fields per the outcome (§4.A). Writes are
// idempotent by (resource_id, attempt_timestamp); the underlying Store
// enforces this via a unique index.
func (r *Registry) RecordVerification(ctx context.Context, event *VerificationEvent) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.store.AppendVerification(ctx, event); err != nil {
		return fmt.Errorf("resourceregistry: record verification: %w", err)
	}

	snap := r.current()
	target, ok := snap.byID[event.TargetResourceID]
	if !ok {
		r.obs.Logger.Warn(ctx, "verification event for unknown resource", "resource_id", event.TargetResourceID)
		return nil
	}
	updated := *target
	if event.Outcome == domain.OutcomeOK {
		updated.VerifiedOn = event.AttemptedAt
		updated.NextVerificationDue = event.AttemptedAt.Add(verificationFreshnessWindow)
		if updated.Status == domain.StatusDegraded {
			updated.Status = domain.StatusActive
		}
	} else {
		updated.Status = domain.StatusDegraded
		updated.NextVerificationDue = event.AttemptedAt.Add(degradedRecheckWindow)
	}
	if err := r.store.SaveResource(ctx, &updated); err != nil {
		return fmt.Errorf("resourceregistry: apply verification outcome: %w", err)
	}
	return r.reload(ctx)
}
