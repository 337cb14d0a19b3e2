package classifier

import (
	"strings"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// Scan is a single classification pass over a turn's text, run both
// pre-LLM (on the user message) and post-LLM (on the composed response),
// per §4.C.
type Scan struct {
	Region  domain.Region
	Risk    domain.RiskLevel
	Matches []Match
}

// HasCategory reports whether a category fired in this scan.
func (s Scan) HasCategory(c Category) bool {
	for _, m := range s.Matches {
		if m.Pattern.Category == c {
			return true
		}
	}
	return false
}

// HasSeverity reports whether any match at severity sev fired.
func (s Scan) HasSeverity(sev Severity) bool {
	for _, m := range s.Matches {
		if m.Pattern.Severity == sev {
			return true
		}
	}
	return false
}

// Scanner runs the rule-tier pattern set for a region against message text.
type Scanner struct {
	region   domain.Region
	patterns []Pattern
}

// New constructs a Scanner bound to region's pattern set (base patterns
// plus that region's vocabulary bank, defaulting to GLOBAL for unknown
// regions per §3).
func New(region domain.Region) *Scanner {
	region = domain.ParseRegion(string(region))
	return &Scanner{region: region, patterns: PatternsForRegion(region)}
}

// Scan runs every pattern against text and scores the result into a
// RiskLevel using the tie-break rules in §4.C:
//   - any ImmediateDanger match alone is sufficient for CRITICAL.
//   - two or more Hopelessness matches, or one Hopelessness plus one
//     Persistence match, escalate to HIGH.
//   - a single Hopelessness or SustainedAffect match alone is MEDIUM.
//   - a false-positive match, with no ImmediateDanger match, demotes what
//     would otherwise be HIGH down to a MEDIUM floor, never all the way to
//     LOW — a joke framing does not cancel a same-message disclosure, it
//     only caps confidence. CRITICAL is never demoted.
//   - no matches is LOW.
func (s *Scanner) Scan(text string) Scan {
	lower := strings.ToLower(text)
	var matches []Match
	for _, pat := range s.patterns {
		if loc := pat.re.FindStringIndex(lower); loc != nil {
			matches = append(matches, Match{Pattern: pat, Text: text[loc[0]:loc[1]]})
		}
	}
	return Scan{Region: s.region, Risk: score(matches), Matches: matches}
}

func score(matches []Match) domain.RiskLevel {
	var (
		immediateDanger int
		hopelessness    int
		persistence     int
		sustained       int
		falsePositive   int
	)
	for _, m := range matches {
		switch m.Pattern.Severity {
		case SeverityImmediateDanger:
			immediateDanger++
		case SeverityHopelessness:
			hopelessness++
		case SeverityPersistence:
			persistence++
		case SeveritySustainedAffect:
			sustained++
		case SeverityFalsePositive:
			falsePositive++
		}
	}

	risk := domain.RiskLow
	switch {
	case immediateDanger > 0:
		risk = domain.RiskCritical
	case hopelessness >= 2, hopelessness >= 1 && persistence >= 1:
		risk = domain.RiskHigh
	case hopelessness >= 1, sustained >= 1:
		risk = domain.RiskMedium
	}

	if falsePositive > 0 && immediateDanger == 0 && risk.AtLeast(domain.RiskHigh) {
		risk = domain.RiskMedium
	}
	return risk
}

// PostScan re-runs the same rule tier against a composed response before it
// is sent to the user, the second half of §4.C's two-pass design: the
// pre-scan governs which tools the orchestrator is permitted to call, the
// post-scan governs whether the composed text itself is safe to release
// (e.g. a model-authored response that inadvertently validates a plan).
func (s *Scanner) PostScan(text string) Scan {
	return s.Scan(text)
}
