package resourceregistry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// snapshot is an immutable, point-in-time view of the registry. Readers
// always operate against a single snapshot obtained via an atomic load so
// concurrent writers never expose torn state (§5, §9 "global mutable
// registry... process-wide snapshot with copy-on-swap semantics").
type snapshot struct {
	byID         map[string]*Resource
	fabrications map[string]*KnownFabrication
	takenAt      time.Time
}

// newSnapshot builds and validates a snapshot from the raw rows a Store
// returns. A structurally invalid row (active resource with no channel,
// duplicate (region, service_name)) makes the whole snapshot build fail:
// the registry is fatal-on-corruption rather than guessing which half to
// trust.
func newSnapshot(resources []*Resource, fabrications []*KnownFabrication) (*snapshot, error) {
	snap := &snapshot{
		byID:         make(map[string]*Resource, len(resources)),
		fabrications: make(map[string]*KnownFabrication, len(fabrications)),
		takenAt:      time.Now(),
	}

	seenRegionName := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		if r.Status == domain.StatusActive && !r.HasChannel() {
			return nil, fmt.Errorf("%w: active resource %q has no contact channel", ErrCorrupt, r.ID)
		}
		key := string(r.Region) + "\x00" + strings.ToLower(r.ServiceName)
		if _, dup := seenRegionName[key]; dup {
			return nil, fmt.Errorf("%w: duplicate (region, service_name) for %q in %s", ErrCorrupt, r.ServiceName, r.Region)
		}
		seenRegionName[key] = struct{}{}
		if _, dup := snap.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate resource id %q", ErrCorrupt, r.ID)
		}
		cp := *r
		snap.byID[r.ID] = &cp
	}

	for _, f := range fabrications {
		cp := *f
		snap.fabrications[normalizeLiteral(f.Value)] = &cp
	}

	// §4.C tie-break: when the same literal appears in both a resource
	// record and the fabrication list, the fabrication list wins. This
	// covers a fabrication added after the resource already existed —
	// UpsertResource only blocks the conflict at write time, so a stale
	// resource row can still be serving a literal that has since been
	// blocklisted.
	for _, r := range snap.byID {
		if r.Status == domain.StatusRetired {
			continue
		}
		for _, ch := range r.Channels {
			f, ok := snap.fabrications[normalizeLiteral(ch.Value)]
			if ok && f.Kind == ch.Kind {
				r.Status = domain.StatusDegraded
				break
			}
		}
	}

	return snap, nil
}

// normalizeLiteral canonicalizes a contact literal for comparison: trims
// whitespace and, for values that look like phone numbers, strips common
// punctuation so "0800 543 800" and "0800-543-800" compare equal.
func normalizeLiteral(v string) string {
	v = strings.TrimSpace(v)
	stripped := stripContactPunctuation(v)
	if looksNumeric(stripped) {
		return strings.ToLower(stripped)
	}
	return strings.ToLower(v)
}

// stripContactPunctuation removes the punctuation a phone number is
// commonly formatted with so "0800 543 800" and "0800-543-800" compare
// equal to the spaceless key normalizeLiteral stores fabrications under.
func stripContactPunctuation(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, v)
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			if r != '+' {
				return false
			}
		}
	}
	return true
}

// lookup implements the ordering rule from §4.A: resources in the requested
// region before GLOBAL, emergency-service tier before hotline before
// specialist, then most-recently-verified before name ascending.
func (s *snapshot) lookup(region domain.Region, situation domain.SituationType, tag domain.TopicalTag) []*Resource {
	var matches []*Resource
	for _, r := range s.byID {
		if r.Status == domain.StatusRetired {
			continue
		}
		if r.Status != domain.StatusActive && r.Status != domain.StatusDegraded {
			continue
		}
		if r.Region != region && r.Region != domain.RegionGlobal {
			continue
		}
		if !r.SupportsSituation(situation) {
			continue
		}
		if tag != "" && !hasTag(r.TopicalTags, tag) {
			continue
		}
		if r.Status == domain.StatusDegraded {
			// Degraded resources are still returned so the caller can
			// surface the flag in metadata, but they sort last within
			// their tier.
		}
		matches = append(matches, r)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if (a.Region == region) != (b.Region == region) {
			return a.Region == region
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		degA, degB := a.Status == domain.StatusDegraded, b.Status == domain.StatusDegraded
		if degA != degB {
			return !degA
		}
		if !a.VerifiedOn.Equal(b.VerifiedOn) {
			return a.VerifiedOn.After(b.VerifiedOn)
		}
		return a.ServiceName < b.ServiceName
	})
	return matches
}

func hasTag(tags []domain.TopicalTag, want domain.TopicalTag) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// isFabrication reports whether value is a known fabrication of the given
// kind, and when region is known, suggests the first verified alternative
// resource for that region offering the same channel kind.
func (s *snapshot) isFabrication(value string, kind domain.ChannelKind, region domain.Region) (bool, *KnownFabrication, *Resource) {
	f, ok := s.fabrications[normalizeLiteral(value)]
	if !ok || f.Kind != kind {
		return false, nil, nil
	}
	var alt *Resource
	if region != "" {
		for _, r := range s.byID {
			if r.Status != domain.StatusActive || r.Region != region {
				continue
			}
			for _, ch := range r.Channels {
				if ch.Kind == kind {
					alt = r
					break
				}
			}
			if alt != nil {
				break
			}
		}
	}
	return true, f, alt
}

// isKnownLiteral reports whether value matches a contact channel literal
// on any non-retired resource, regardless of region — used by the
// training-corpus validator to confirm every literal a model is trained to
// produce corresponds to a real, registered service (§4.D.3).
func (s *snapshot) isKnownLiteral(value string) bool {
	norm := normalizeLiteral(value)
	if norm == "" {
		return false
	}
	for _, r := range s.byID {
		if r.Status == domain.StatusRetired {
			continue
		}
		for _, ch := range r.Channels {
			if normalizeLiteral(ch.Value) == norm {
				return true
			}
		}
	}
	return false
}

// containsFabrication reports whether any fabrication literal is a
// substring of text. Used by the validator and post-scan to enforce
// "no value listed in KnownFabrication appears anywhere in the output".
// Numeric-looking literals (phone numbers) are matched against a
// punctuation-stripped form of text, since the fabrication key itself is
// stored spaceless by normalizeLiteral: without this, a model output
// containing the spaced form "0800 543 800" would never match the
// spaceless fabrication key "0800543800".
func (s *snapshot) containsFabrication(text string) (string, bool) {
	lower := strings.ToLower(text)
	normalized := strings.ToLower(stripContactPunctuation(text))
	for literal := range s.fabrications {
		if literal == "" {
			continue
		}
		haystack := lower
		if looksNumeric(literal) {
			haystack = normalized
		}
		if strings.Contains(haystack, literal) {
			return literal, true
		}
	}
	return "", false
}
