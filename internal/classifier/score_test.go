package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/classifier"
	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

func TestScanImmediateDangerIsAlwaysCritical(t *testing.T) {
	scanner := classifier.New(domain.RegionNZ)
	scan := scanner.Scan("I am going to kill myself tonight")
	require.Equal(t, domain.RiskCritical, scan.Risk)
	require.True(t, scan.HasSeverity(classifier.SeverityImmediateDanger))
}

func TestScanTwoHopelessnessMatchesIsHigh(t *testing.T) {
	scanner := classifier.New(domain.RegionGlobal)
	scan := scanner.Scan("I don't want to wake up anymore, everyone would be better off without me")
	require.Equal(t, domain.RiskHigh, scan.Risk)
}

func TestScanSingleHopelessnessIsMedium(t *testing.T) {
	scanner := classifier.New(domain.RegionGlobal)
	scan := scanner.Scan("I wish I was dead")
	require.Equal(t, domain.RiskMedium, scan.Risk)
}

func TestScanNoMatchIsLow(t *testing.T) {
	scanner := classifier.New(domain.RegionGlobal)
	scan := scanner.Scan("What's the weather like today?")
	require.Equal(t, domain.RiskLow, scan.Risk)
	require.Empty(t, scan.Matches)
}

func TestScanFalsePositiveDemotesButNeverToLow(t *testing.T) {
	scanner := classifier.New(domain.RegionGlobal)
	scan := scanner.Scan("lol everyone would be better off without me, everyone at school hates me")
	require.True(t, scan.HasCategory(classifier.CategoryFalsePositive))
	require.NotEqual(t, domain.RiskLow, scan.Risk)
}

func TestScanFalsePositiveDoesNotDemoteImmediateDanger(t *testing.T) {
	scanner := classifier.New(domain.RegionGlobal)
	scan := scanner.Scan("lol I'm going to kill myself")
	require.Equal(t, domain.RiskCritical, scan.Risk)
}

func TestRegionVocabularyExtendsBasePatterns(t *testing.T) {
	nz := classifier.PatternsForRegion(domain.RegionNZ)
	global := classifier.PatternsForRegion(domain.RegionGlobal)
	require.Greater(t, len(nz), len(global))
}

func TestUnknownRegionDefaultsToGlobalPatterns(t *testing.T) {
	scanner := classifier.New(domain.Region("ZZ"))
	scan := scanner.Scan("I am going to kill myself")
	require.Equal(t, domain.RegionGlobal, scan.Region)
}

func TestContainsVictimBlaming(t *testing.T) {
	id, phrase, found := classifier.ContainsVictimBlaming("Your willingness to accept their behavior contributes to this.")
	require.True(t, found)
	require.Equal(t, "victim_blame/willingness_accept", id)
	require.NotEmpty(t, phrase)

	_, _, found = classifier.ContainsVictimBlaming("I'm so sorry this happened to you.")
	require.False(t, found)
}
