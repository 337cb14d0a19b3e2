package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/executor"
	"github.com/nzcrisisline/safetypipeline/internal/resourceregistry"
	"github.com/nzcrisisline/safetypipeline/internal/toolcall"
)

type fakeRegistry struct {
	resources     []*resourceregistry.Resource
	fabrication   *resourceregistry.KnownFabrication
	fabricated    bool
	fabAlt        *resourceregistry.Resource
	containsValue string
}

func (f *fakeRegistry) Lookup(context.Context, domain.Region, domain.SituationType, domain.TopicalTag) []*resourceregistry.Resource {
	return f.resources
}

func (f *fakeRegistry) IsFabrication(context.Context, string, domain.ChannelKind, domain.Region) (bool, *resourceregistry.KnownFabrication, *resourceregistry.Resource) {
	return f.fabricated, f.fabrication, f.fabAlt
}

func (f *fakeRegistry) ContainsFabrication(_ context.Context, text string) (string, bool) {
	if f.containsValue != "" && contains(text, f.containsValue) {
		return f.containsValue, true
	}
	return "", false
}

func (f *fakeRegistry) IsKnownLiteral(context.Context, string) bool {
	return true
}

func contains(haystack, needle string) bool {
	return len(needle) > 0 && len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestResolveGetCrisisResourcesReturnsRenderedList(t *testing.T) {
	reg := &fakeRegistry{resources: []*resourceregistry.Resource{{
		ServiceName: "Lifeline",
		Channels:    []resourceregistry.Channel{{Kind: domain.ChannelPhone, Value: "0800 543 354"}},
	}}}
	exec := executor.New(reg)
	directive := toolcall.Directive{Name: toolcall.GetCrisisResources, Args: map[string]string{"region": "NZ", "situation_type": "crisis"}}

	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{Region: domain.RegionNZ, Situation: domain.SituationCrisis}, []toolcall.Directive{directive})
	require.Len(t, resolutions, 1)
	require.NoError(t, resolutions[0].Err)
	require.Contains(t, resolutions[0].Text, "Lifeline")
}

func TestResolveGetCrisisResourcesReportsResourceIDs(t *testing.T) {
	reg := &fakeRegistry{resources: []*resourceregistry.Resource{{
		ID:          "lifeline-nz",
		ServiceName: "Lifeline",
		Channels:    []resourceregistry.Channel{{Kind: domain.ChannelPhone, Value: "0800 543 354"}},
	}}}
	exec := executor.New(reg)
	directive := toolcall.Directive{Name: toolcall.GetCrisisResources, Args: map[string]string{"region": "NZ", "situation_type": "crisis"}}

	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{Region: domain.RegionNZ, Situation: domain.SituationCrisis}, []toolcall.Directive{directive})
	require.Equal(t, []string{"lifeline-nz"}, resolutions[0].ResourceIDs)
}

func TestResolveGetCrisisResourcesEmptyEmergencyFallsBackToNumber(t *testing.T) {
	reg := &fakeRegistry{}
	exec := executor.New(reg)
	directive := toolcall.Directive{Name: toolcall.GetCrisisResources, Args: map[string]string{"region": "NZ", "situation_type": "emergency"}}

	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{Region: domain.RegionNZ, Situation: domain.SituationEmergency}, []toolcall.Directive{directive})
	require.NoError(t, resolutions[0].Err)
	require.Contains(t, resolutions[0].Text, "111")
}

func TestResolveGetCrisisResourcesEmptyNonEmergencyIsError(t *testing.T) {
	reg := &fakeRegistry{}
	exec := executor.New(reg)
	directive := toolcall.Directive{Name: toolcall.GetCrisisResources, Args: map[string]string{"region": "NZ", "situation_type": "support"}}

	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{Region: domain.RegionNZ, Situation: domain.SituationSupport}, []toolcall.Directive{directive})
	require.ErrorIs(t, resolutions[0].Err, executor.ErrRegistryEmpty)
}

func TestResolveUnknownToolIsError(t *testing.T) {
	exec := executor.New(&fakeRegistry{})
	directive := toolcall.Directive{Name: "not_a_tool"}
	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{}, []toolcall.Directive{directive})
	require.ErrorIs(t, resolutions[0].Err, executor.ErrUnknownTool)
}

func TestResolveUnknownArgumentIsError(t *testing.T) {
	exec := executor.New(&fakeRegistry{})
	directive := toolcall.Directive{Name: toolcall.GetCrisisResources, Args: map[string]string{"region": "NZ", "bogus": "x"}}
	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{}, []toolcall.Directive{directive})
	require.ErrorIs(t, resolutions[0].Err, executor.ErrUnknownArgument)
}

func TestResolveLogIncidentValidatesSchema(t *testing.T) {
	exec := executor.New(&fakeRegistry{})
	directive := toolcall.Directive{Name: toolcall.LogIncident, Args: map[string]string{
		"incident_data": `{"category": "suicidal_ideation", "risk_level": "HIGH", "summary": "user disclosed a plan"}`,
	}}
	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{}, []toolcall.Directive{directive})
	require.NoError(t, resolutions[0].Err)
	require.NotNil(t, resolutions[0].Incident)
	require.Equal(t, "HIGH", resolutions[0].Incident.Data["risk_level"])
}

func TestResolveLogIncidentRejectsInvalidSchema(t *testing.T) {
	exec := executor.New(&fakeRegistry{})
	directive := toolcall.Directive{Name: toolcall.LogIncident, Args: map[string]string{
		"incident_data": `{"category": "suicidal_ideation"}`,
	}}
	resolutions := exec.Resolve(context.Background(), executor.ResolveContext{}, []toolcall.Directive{directive})
	require.ErrorIs(t, resolutions[0].Err, executor.ErrInvalidIncidentData)
}

func TestRenderSubstitutesFailureMarkerNeverDropsSilently(t *testing.T) {
	directive := toolcall.Directive{Name: toolcall.GetCrisisResources, Raw: "[TOOL_CALL: get_crisis_resources(region='NZ', situation_type='support')]"}
	segments := []toolcall.Segment{
		{Text: "Here is some help: "},
		{Directive: &directive},
	}
	resolutions := []executor.Resolution{{Directive: directive, Err: executor.ErrRegistryEmpty}}

	text, incidents, err := executor.Render(segments, resolutions)
	require.Error(t, err)
	require.Empty(t, incidents)
	require.Contains(t, text, "[unable to complete request:")
}

func TestRenderCollectsIncidents(t *testing.T) {
	directive := toolcall.Directive{Name: toolcall.LogIncident}
	segments := []toolcall.Segment{{Directive: &directive}}
	resolutions := []executor.Resolution{{
		Directive: directive,
		Text:      "Incident logged.",
		Incident:  &executor.Incident{Directive: directive, Data: map[string]any{"risk_level": "HIGH"}},
	}}

	text, incidents, err := executor.Render(segments, resolutions)
	require.NoError(t, err)
	require.Equal(t, "Incident logged.", text)
	require.Len(t, incidents, 1)
}
