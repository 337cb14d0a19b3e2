package resourceregistry

import (
	"time"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// SupportTier classifies a Resource for the deterministic ordering §4.A
// requires ("emergency services before hotlines before specialist
// services"). The wire schema in §3 does not name this field explicitly; it
// is introduced here to make the ordering rule a property of the data
// rather than an ad-hoc comparator (see DESIGN.md open-question log).
type SupportTier int

const (
	TierEmergencyService SupportTier = iota
	TierHotline
	TierSpecialist
)

// Channel is a single contact channel on a Resource.
type Channel struct {
	Kind  domain.ChannelKind
	Value string
}

// Resource is a verified service entry.
type Resource struct {
	ID                  string
	Region              domain.Region
	ServiceName         string
	Tier                SupportTier
	SituationTypes      []domain.SituationType
	TopicalTags         []domain.TopicalTag
	Channels            []Channel
	Hours               string
	Languages           []string
	Description         string
	VerifiedOn          time.Time
	VerifiedBy          string
	VerificationMethod  string
	NextVerificationDue time.Time
	Status              domain.ResourceStatus
}

// HasChannel reports whether the resource has at least one contact channel,
// the invariant required for every active resource.
func (r *Resource) HasChannel() bool { return len(r.Channels) > 0 }

// SupportsSituation reports whether the resource is routed for situation.
func (r *Resource) SupportsSituation(situation domain.SituationType) bool {
	for _, s := range r.SituationTypes {
		if s == situation {
			return true
		}
	}
	return false
}

// KnownFabrication is an anti-entry: a literal known not to correspond to a
// real verified service.
type KnownFabrication struct {
	Value            string
	Kind             domain.ChannelKind
	FirstObserved    time.Time
	LastObserved     time.Time
	OriginatingModel string
	Notes            string
}

// VerificationEvent is an append-only re-verification log entry.
type VerificationEvent struct {
	TargetResourceID string
	AttemptedAt      time.Time
	VerifierID       string
	Method           string
	Outcome          domain.VerificationOutcome
	Notes            string
}
