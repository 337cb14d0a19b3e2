package resourceregistry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/resourceregistry"
)

func verifiedResource(id, region, name string, tier resourceregistry.SupportTier, situations ...domain.SituationType) *resourceregistry.Resource {
	return &resourceregistry.Resource{
		ID:             id,
		Region:         domain.Region(region),
		ServiceName:    name,
		Tier:           tier,
		SituationTypes: situations,
		Channels:       []resourceregistry.Channel{{Kind: domain.ChannelPhone, Value: "0800 543 800"}},
		VerifiedOn:     time.Now().Add(-24 * time.Hour),
		Status:         domain.StatusActive,
	}
}

func newTestRegistry(t *testing.T, resources ...*resourceregistry.Resource) *resourceregistry.Registry {
	t.Helper()
	store := resourceregistry.NewMemStore()
	for _, r := range resources {
		require.NoError(t, store.SaveResource(context.Background(), r))
	}
	reg, err := resourceregistry.New(context.Background(), resourceregistry.Options{Store: store})
	require.NoError(t, err)
	return reg
}

func TestLookupOrdersEmergencyBeforeHotline(t *testing.T) {
	hotline := verifiedResource("hotline-1", "NZ", "Lifeline", resourceregistry.TierHotline, domain.SituationCrisis)
	emergency := verifiedResource("emergency-1", "NZ", "Police", resourceregistry.TierEmergencyService, domain.SituationCrisis)

	reg := newTestRegistry(t, hotline, emergency)
	results := reg.Lookup(context.Background(), domain.RegionNZ, domain.SituationCrisis, "")

	require.Len(t, results, 2)
	require.Equal(t, "emergency-1", results[0].ID)
	require.Equal(t, "hotline-1", results[1].ID)
}

func TestLookupPrefersExactRegionOverGlobal(t *testing.T) {
	global := verifiedResource("global-1", "GLOBAL", "International helpline", resourceregistry.TierHotline, domain.SituationSupport)
	local := verifiedResource("nz-1", "NZ", "Local helpline", resourceregistry.TierHotline, domain.SituationSupport)

	reg := newTestRegistry(t, global, local)
	results := reg.Lookup(context.Background(), domain.RegionNZ, domain.SituationSupport, "")

	require.Len(t, results, 2)
	require.Equal(t, "nz-1", results[0].ID)
}

func TestLookupExcludesRetired(t *testing.T) {
	retired := verifiedResource("retired-1", "NZ", "Defunct Service", resourceregistry.TierHotline, domain.SituationSupport)
	retired.Status = domain.StatusRetired

	reg := newTestRegistry(t, retired)
	results := reg.Lookup(context.Background(), domain.RegionNZ, domain.SituationSupport, "")
	require.Empty(t, results)
}

func TestContainsFabricationMatchesSubstring(t *testing.T) {
	store := resourceregistry.NewMemStore()
	store.SeedFabrication(&resourceregistry.KnownFabrication{
		Value: "0800-999-999",
		Kind:  domain.ChannelPhone,
	})
	reg, err := resourceregistry.New(context.Background(), resourceregistry.Options{Store: store})
	require.NoError(t, err)

	literal, found := reg.ContainsFabrication(context.Background(), "Call 0800-999-999 now")
	require.True(t, found)
	require.Equal(t, "0800999999", literal)
}

func TestIsKnownLiteralMatchesRegisteredChannel(t *testing.T) {
	res := verifiedResource("nz-1", "NZ", "Lifeline", resourceregistry.TierHotline, domain.SituationSupport)
	reg := newTestRegistry(t, res)

	require.True(t, reg.IsKnownLiteral(context.Background(), "0800543800"))
	require.False(t, reg.IsKnownLiteral(context.Background(), "0800000000"))
}

func TestUpsertResourceRejectsFabricationConflict(t *testing.T) {
	store := resourceregistry.NewMemStore()
	store.SeedFabrication(&resourceregistry.KnownFabrication{Value: "0800111222", Kind: domain.ChannelPhone})
	reg, err := resourceregistry.New(context.Background(), resourceregistry.Options{Store: store})
	require.NoError(t, err)

	conflicting := verifiedResource("new-1", "NZ", "New Service", resourceregistry.TierHotline, domain.SituationSupport)
	conflicting.Channels = []resourceregistry.Channel{{Kind: domain.ChannelPhone, Value: "0800-111-222"}}

	err = reg.UpsertResource(context.Background(), conflicting)
	require.ErrorIs(t, err, resourceregistry.ErrFabricationConflict)
}

func TestUpsertResourceRejectsStaleVerification(t *testing.T) {
	reg := newTestRegistry(t)
	stale := verifiedResource("stale-1", "NZ", "Old Service", resourceregistry.TierHotline, domain.SituationSupport)
	stale.VerifiedOn = time.Now().Add(-60 * 24 * time.Hour)

	err := reg.UpsertResource(context.Background(), stale)
	require.ErrorIs(t, err, resourceregistry.ErrStaleVerification)
}

func TestNewRejectsActiveResourceWithNoChannel(t *testing.T) {
	store := resourceregistry.NewMemStore()
	bad := verifiedResource("bad-1", "NZ", "No Channel Service", resourceregistry.TierHotline, domain.SituationSupport)
	bad.Channels = nil
	require.NoError(t, store.SaveResource(context.Background(), bad))

	_, err := resourceregistry.New(context.Background(), resourceregistry.Options{Store: store})
	require.Error(t, err)
}

func TestRecordVerificationDegradesOnFailureOutcome(t *testing.T) {
	res := verifiedResource("nz-1", "NZ", "Lifeline", resourceregistry.TierHotline, domain.SituationSupport)
	reg := newTestRegistry(t, res)

	err := reg.RecordVerification(context.Background(), &resourceregistry.VerificationEvent{
		TargetResourceID: "nz-1",
		AttemptedAt:      time.Now(),
		Outcome:          domain.OutcomeUnreachable,
	})
	require.NoError(t, err)

	results := reg.Lookup(context.Background(), domain.RegionNZ, domain.SituationSupport, "")
	require.Len(t, results, 1)
	require.Equal(t, domain.StatusDegraded, results[0].Status)
}
