package trainset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/trainset"
)

type fakeChecker struct {
	fabrications map[string]bool
	known        map[string]bool
}

func (f *fakeChecker) ContainsFabrication(_ context.Context, text string) (string, bool) {
	for lit, bad := range f.fabrications {
		if bad && contains(text, lit) {
			return lit, true
		}
	}
	return "", false
}

func (f *fakeChecker) IsKnownLiteral(_ context.Context, value string) bool {
	return f.known[value]
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestValidateFailsOnKnownFabrication(t *testing.T) {
	checker := &fakeChecker{fabrications: map[string]bool{"0800-999-999": true}}
	examples := []trainset.TrainingExample{
		{Output: "Call 0800-999-999 now.", Metadata: map[string]any{"risk_level": string(domain.RiskHigh)}},
	}
	report, err := trainset.Validate(context.Background(), examples, checker)
	require.Error(t, err)
	require.Len(t, report.Failures, 1)
}

func TestValidateFailsOnNonRegistryBackedLiteral(t *testing.T) {
	checker := &fakeChecker{known: map[string]bool{}}
	examples := []trainset.TrainingExample{
		{Output: "Call 0800 111 222 now.", Metadata: map[string]any{"risk_level": string(domain.RiskHigh)}},
	}
	_, err := trainset.Validate(context.Background(), examples, checker)
	require.Error(t, err)
}

func TestValidatePassesWithRegistryBackedLiteral(t *testing.T) {
	checker := &fakeChecker{known: map[string]bool{"0800 111 222": true}}
	examples := []trainset.TrainingExample{
		{Output: "Call 0800 111 222 now.", Metadata: map[string]any{"risk_level": string(domain.RiskHigh)}},
	}
	report, err := trainset.Validate(context.Background(), examples, checker)
	require.NoError(t, err)
	require.Equal(t, 1.0, report.RegistryBackedLiteralFraction)
}

func TestValidateWarnsOnEmptyRiskBucket(t *testing.T) {
	checker := &fakeChecker{}
	examples := []trainset.TrainingExample{
		{Output: "text", Metadata: map[string]any{"risk_level": string(domain.RiskLow)}},
	}
	report, err := trainset.Validate(context.Background(), examples, checker)
	require.NoError(t, err)
	require.NotEmpty(t, report.RiskCoverageWarnings)
}

func TestValidateTracksCriticalHighResourceMentionFraction(t *testing.T) {
	checker := &fakeChecker{known: map[string]bool{"0800 111 222": true}}
	examples := []trainset.TrainingExample{
		{Output: "Call 0800 111 222 now.", Metadata: map[string]any{"risk_level": string(domain.RiskCritical)}},
		{Output: "I'm here for you.", Metadata: map[string]any{"risk_level": string(domain.RiskCritical)}},
	}
	report, err := trainset.Validate(context.Background(), examples, checker)
	require.NoError(t, err)
	require.Equal(t, 0.5, report.CriticalHighMentionsResourceFraction)
}
