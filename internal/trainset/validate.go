package trainset

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// LiteralChecker is the subset of *resourceregistry.Registry the validator
// depends on, reusing the exact literal-matching logic the live post-LLM
// classifier uses so the training corpus and production inference cannot
// silently drift onto different notions of "known fabrication" or
// "registered resource" (§4.D.1).
type LiteralChecker interface {
	ContainsFabrication(ctx context.Context, text string) (string, bool)
	IsKnownLiteral(ctx context.Context, value string) bool
}

// Report is the coverage and compliance summary Validate computes over a
// corpus, plus any hard failures found.
type Report struct {
	Total                                 int
	RiskCounts                            map[domain.RiskLevel]int
	RiskCoverageWarnings                  []string
	// CriticalHighMentionsResourceFraction is the fraction of CRITICAL/HIGH
	// examples whose output contains at least one phone/URL/email literal.
	// The literal need not be registered, and neither resource names nor
	// the example's region are consulted.
	CriticalHighMentionsResourceFraction  float64
	RegistryBackedLiteralFraction         float64
	Failures                              []string
}

var (
	phoneRe = regexp.MustCompile(`\b(?:0800|0[1-9]\d{1,2}|\+?\d{1,3})[\d -]{5,}\d\b`)
	urlRe   = regexp.MustCompile(`\bhttps?://[^\s)\]]+`)
	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

// Validate computes coverage statistics over examples and returns a
// Report. Any example whose output contains a known-fabrication literal is
// a hard failure, and so is any other phone/URL/email literal that is not
// registry-backed; hard failures are reported in Report.Failures and also
// returned as a non-nil error so callers can stop the build per §4.D.1's
// "training pipeline propagates errors eagerly" policy.
func Validate(ctx context.Context, examples []TrainingExample, checker LiteralChecker) (*Report, error) {
	report := &Report{
		Total:      len(examples),
		RiskCounts: map[domain.RiskLevel]int{},
	}

	var (
		criticalHigh         int
		criticalHighWithName int
		totalLiterals        int
		registryBacked       int
	)

	for i, ex := range examples {
		riskStr, _ := ex.Metadata["risk_level"].(string)
		risk := domain.RiskLevel(riskStr)
		if risk.Valid() {
			report.RiskCounts[risk]++
		}

		if literal, found := checker.ContainsFabrication(ctx, ex.Output); found {
			report.Failures = append(report.Failures, fmt.Sprintf("example %d: output contains known fabrication %q", i, literal))
		}

		literals := extractLiterals(ex.Output)
		for _, lit := range literals {
			if _, fab := checker.ContainsFabrication(ctx, lit); fab {
				continue // already reported by the fabrication check
			}
			totalLiterals++
			if checker.IsKnownLiteral(ctx, lit) {
				registryBacked++
			}
		}

		if risk == domain.RiskCritical || risk == domain.RiskHigh {
			criticalHigh++
			if len(literals) > 0 {
				criticalHighWithName++
			}
		}
	}

	for _, level := range []domain.RiskLevel{domain.RiskCritical, domain.RiskHigh, domain.RiskMedium, domain.RiskLow} {
		count := report.RiskCounts[level]
		if report.Total == 0 {
			continue
		}
		if count == 0 {
			report.RiskCoverageWarnings = append(report.RiskCoverageWarnings, fmt.Sprintf("risk bucket %s is empty", level))
			continue
		}
		if float64(count)/float64(report.Total) < 0.05 {
			report.RiskCoverageWarnings = append(report.RiskCoverageWarnings, fmt.Sprintf("risk bucket %s is below 5%% of corpus", level))
		}
	}

	if criticalHigh > 0 {
		report.CriticalHighMentionsResourceFraction = float64(criticalHighWithName) / float64(criticalHigh)
	}
	if totalLiterals > 0 {
		report.RegistryBackedLiteralFraction = float64(registryBacked) / float64(totalLiterals)
		if registryBacked != totalLiterals {
			report.Failures = append(report.Failures,
				fmt.Sprintf("only %d/%d literal phone/url/email strings are registry-backed (must be 100%%)", registryBacked, totalLiterals))
		}
	}

	if len(report.Failures) > 0 {
		return report, fmt.Errorf("trainset: validation failed with %d hard failure(s): %s",
			len(report.Failures), strings.Join(report.Failures, "; "))
	}
	return report, nil
}

func extractLiterals(text string) []string {
	var out []string
	out = append(out, phoneRe.FindAllString(text, -1)...)
	out = append(out, urlRe.FindAllString(text, -1)...)
	out = append(out, emailRe.FindAllString(text, -1)...)
	return out
}
