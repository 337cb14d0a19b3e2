package trainset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/trainset"
)

func exampleWithMeta(output string, risk domain.RiskLevel) trainset.TrainingExample {
	return trainset.TrainingExample{
		Output: output,
		Metadata: map[string]any{
			"role":        "You are a crisis support assistant.",
			"observation": "I feel hopeless",
			"risk_level":  string(risk),
		},
	}
}

func TestNormalizeAppendsToolCallForHighRiskMissingOne(t *testing.T) {
	examples, warnings := trainset.Normalize([]trainset.TrainingExample{
		exampleWithMeta("I'm sorry you're going through this.", domain.RiskHigh),
	})
	require.Empty(t, warnings)
	require.Contains(t, examples[0].Output, "get_crisis_resources")
	require.Contains(t, examples[0].Output, "crisis")
}

func TestNormalizeLeavesExistingToolCallAlone(t *testing.T) {
	original := "I'm here for you. [TOOL_CALL: get_crisis_resources(situation_type='support')]"
	examples, _ := trainset.Normalize([]trainset.TrainingExample{
		exampleWithMeta(original, domain.RiskMedium),
	})
	require.Equal(t, original, examples[0].Output)
}

func TestNormalizeStripsToolCallsFromLowRisk(t *testing.T) {
	original := "Here you go. [TOOL_CALL: get_crisis_resources(situation_type='support')] Take care."
	examples, _ := trainset.Normalize([]trainset.TrainingExample{
		exampleWithMeta(original, domain.RiskLow),
	})
	require.NotContains(t, examples[0].Output, "TOOL_CALL")
}

func TestNormalizeCanonicalizesInstruction(t *testing.T) {
	examples, _ := trainset.Normalize([]trainset.TrainingExample{
		exampleWithMeta("text", domain.RiskLow),
	})
	require.Contains(t, examples[0].Instruction, "Analyze this message:")
	require.Contains(t, examples[0].Instruction, "I feel hopeless")
}

func TestNormalizeWarnsWhenMetadataMissing(t *testing.T) {
	_, warnings := trainset.Normalize([]trainset.TrainingExample{
		{Output: "text", Metadata: map[string]any{}},
	})
	require.Len(t, warnings, 1)
}
