package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

func TestParseRegionDefaultsToGlobal(t *testing.T) {
	assert.Equal(t, domain.RegionNZ, domain.ParseRegion("nz"))
	assert.Equal(t, domain.RegionNZ, domain.ParseRegion(" NZ "))
	assert.Equal(t, domain.RegionGlobal, domain.ParseRegion("xx"))
	assert.Equal(t, domain.RegionGlobal, domain.ParseRegion(""))
}

func TestRiskLevelRankOrdering(t *testing.T) {
	require.True(t, domain.RiskCritical.Rank() > domain.RiskHigh.Rank())
	require.True(t, domain.RiskHigh.Rank() > domain.RiskMedium.Rank())
	require.True(t, domain.RiskMedium.Rank() > domain.RiskLow.Rank())
	assert.Equal(t, -1, domain.RiskLevel("bogus").Rank())
}

func TestRiskLevelAtLeast(t *testing.T) {
	assert.True(t, domain.RiskHigh.AtLeast(domain.RiskMedium))
	assert.True(t, domain.RiskHigh.AtLeast(domain.RiskHigh))
	assert.False(t, domain.RiskMedium.AtLeast(domain.RiskHigh))
}

func TestMapRiskToSituation(t *testing.T) {
	cases := []struct {
		risk      domain.RiskLevel
		situation domain.SituationType
		ok        bool
	}{
		{domain.RiskCritical, domain.SituationEmergency, true},
		{domain.RiskHigh, domain.SituationCrisis, true},
		{domain.RiskMedium, domain.SituationSupport, true},
		{domain.RiskLow, "", false},
	}
	for _, c := range cases {
		situation, ok := domain.MapRiskToSituation(c.risk)
		assert.Equal(t, c.situation, situation)
		assert.Equal(t, c.ok, ok)
	}
}
