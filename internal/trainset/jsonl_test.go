package trainset_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/trainset"
)

func TestWriteJSONLThenReadJSONLRoundTrips(t *testing.T) {
	examples := []trainset.TrainingExample{
		{Instruction: "Analyze this message:\nI feel hopeless", Output: "I'm here for you.", Metadata: map[string]any{"risk_level": "MEDIUM"}},
		{Instruction: "Analyze this message:\nWhat's the weather?", Output: "It's sunny.", Metadata: map[string]any{"risk_level": "LOW"}},
	}

	var buf bytes.Buffer
	require.NoError(t, trainset.WriteJSONL(&buf, examples))

	out, err := trainset.ReadJSONL(&buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, examples[0].Output, out[0].Output)
	require.Equal(t, "MEDIUM", out[0].Metadata["risk_level"])
}

func TestReadJSONLSkipsBlankLines(t *testing.T) {
	input := bytes.NewBufferString("{\"instruction\":\"a\",\"input\":\"\",\"output\":\"b\"}\n\n{\"instruction\":\"c\",\"input\":\"\",\"output\":\"d\"}\n")
	out, err := trainset.ReadJSONL(input)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestReadJSONLReportsDecodeError(t *testing.T) {
	input := bytes.NewBufferString("not valid json\n")
	_, err := trainset.ReadJSONL(input)
	require.Error(t, err)
}

func TestIngestExternalTagsRegionGlobalAndSourceExternal(t *testing.T) {
	records := []trainset.ExternalRecord{
		{ObservationText: "I feel hopeless", RiskLevel: domain.RiskMedium},
	}
	examples := trainset.IngestExternal(records, "You are a crisis support assistant.")
	require.Len(t, examples, 1)
	require.Equal(t, string(domain.RegionGlobal), examples[0].Metadata["region"])
	require.Equal(t, "external", examples[0].Metadata["source"])
}
