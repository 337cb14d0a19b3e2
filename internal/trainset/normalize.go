package trainset

import (
	"fmt"
	"strings"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/toolcall"
)

// Normalize enforces the risk-situation-tool-call mapping and canonicalizes
// instruction text (§4.D stage 2):
//
//   - CRITICAL|HIGH|MEDIUM outputs missing a get_crisis_resources directive
//     get one appended, parameterized with the risk's mapped situation type.
//   - LOW outputs have every tool-call directive stripped.
//   - every instruction is rewritten to "<role>\n\nAnalyze this message:\n
//     <observation>", dropping any legacy preamble that embedded resource
//     literals directly in the prompt text (those preambles taught
//     memorization rather than tool use, and are forbidden).
//
// Examples missing role/observation metadata (i.e. not produced by Compose)
// keep their instruction unchanged and are reported in the warnings, since
// Normalize cannot canonicalize an instruction it has no structured source
// for; their output still goes through the tool-call mapping.
func Normalize(examples []TrainingExample) ([]TrainingExample, []string) {
	out := make([]TrainingExample, len(examples))
	var warnings []string
	for i, ex := range examples {
		role, hasRole := ex.Metadata["role"].(string)
		observation, hasObs := ex.Metadata["observation"].(string)
		riskStr, _ := ex.Metadata["risk_level"].(string)
		risk := domain.RiskLevel(riskStr)

		normalized := ex
		if hasRole && hasObs {
			normalized.Instruction = canonicalInstruction(role, observation)
		} else {
			warnings = append(warnings, fmt.Sprintf("example %d: cannot canonicalize instruction, missing role/observation metadata", i))
		}
		normalized.Output = normalizeToolCalls(ex.Output, risk)
		out[i] = normalized
	}
	return out, warnings
}

func canonicalInstruction(role, observation string) string {
	return fmt.Sprintf("%s\n\nAnalyze this message:\n%s", strings.TrimSpace(role), strings.TrimSpace(observation))
}

func normalizeToolCalls(output string, risk domain.RiskLevel) string {
	segments, directives, _ := toolcall.Parse(output)

	if risk == domain.RiskLow {
		var b strings.Builder
		for _, seg := range segments {
			if seg.Directive == nil {
				b.WriteString(seg.Text)
			}
		}
		return strings.TrimSpace(b.String())
	}

	situation, ok := domain.MapRiskToSituation(risk)
	if !ok {
		return output
	}
	for _, d := range directives {
		if d.Name == toolcall.GetCrisisResources {
			return output
		}
	}
	directive := &toolcall.Directive{
		Name: toolcall.GetCrisisResources,
		Args: map[string]string{"situation_type": string(situation)},
	}
	return strings.TrimRight(output, " \n") + "\n" + directive.String()
}
