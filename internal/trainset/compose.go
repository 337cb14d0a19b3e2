package trainset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingReference is wrapped into the aggregate error Compose returns
// when a Prompt names a TemplateID or OutputID that does not exist in the
// corpus.
var ErrMissingReference = errors.New("trainset: missing referenced id")

const observationSlot = "Observation:"

// Compose joins Prompt -> InstructionTemplate and Prompt -> Output by id,
// substituting each prompt's observation text into the template's
// "Observation:" slot. It fails the build (returns a non-nil error) if any
// referenced id is missing; an output referenced by zero prompts is
// reported as a warning, not an error, since unused training material is
// not itself invalid.
func Compose(corpus Corpus) ([]TrainingExample, []string, error) {
	templates := make(map[string]InstructionTemplate, len(corpus.Templates))
	for _, t := range corpus.Templates {
		templates[t.ID] = t
	}
	outputs := make(map[string]Output, len(corpus.Outputs))
	for _, o := range corpus.Outputs {
		outputs[o.ID] = o
	}

	var (
		examples []TrainingExample
		errs     []error
		used     = make(map[string]struct{}, len(outputs))
	)
	for _, p := range corpus.Prompts {
		tmpl, ok := templates[p.TemplateID]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: prompt %q references template %q", ErrMissingReference, p.ID, p.TemplateID))
			continue
		}
		out, ok := outputs[p.OutputID]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: prompt %q references output %q", ErrMissingReference, p.ID, p.OutputID))
			continue
		}
		used[p.OutputID] = struct{}{}

		instruction := substituteObservation(tmpl.Body, p.ObservationText)
		examples = append(examples, TrainingExample{
			Instruction: instruction,
			Input:       "",
			Output:      out.Text,
			Metadata: map[string]any{
				"prompt_id":   p.ID,
				"output_id":   out.ID,
				"risk_level":  string(out.RiskLevel),
				"region":      string(p.Region),
				"role":        tmpl.Role,
				"observation": p.ObservationText,
			},
		})
	}

	var warnings []string
	for _, o := range corpus.Outputs {
		if _, ok := used[o.ID]; !ok {
			warnings = append(warnings, fmt.Sprintf("output %q is not referenced by any prompt", o.ID))
		}
	}

	if len(errs) > 0 {
		return examples, warnings, errors.Join(errs...)
	}
	return examples, warnings, nil
}

func substituteObservation(body, observation string) string {
	if strings.Contains(body, observationSlot) {
		return strings.Replace(body, observationSlot, observationSlot+" "+observation, 1)
	}
	return body + "\n" + observationSlot + " " + observation
}
