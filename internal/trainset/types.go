// Package trainset implements the three-stage fine-tuning data pipeline
// described in §4.D: Compose joins raw prompt/output/template records into
// TrainingExamples, Normalize enforces the risk-situation-tool-call
// mapping and canonicalizes instruction text, and Validate computes
// corpus coverage statistics and rejects any example carrying a known
// fabrication. Every stage is a pure function over slices so they compose
// and are independently testable.
package trainset

import "github.com/nzcrisisline/safetypipeline/internal/domain"

// InstructionTemplate is a role-description template with an
// "Observation:" slot the composer fills with a Prompt's observation
// text.
type InstructionTemplate struct {
	ID   string
	Role string
	Body string // contains the literal substring "Observation:" marking the slot.
}

// Prompt links an observation to an instruction template and, via
// OutputID, to the Output it should be trained against.
type Prompt struct {
	ID              string
	TemplateID      string
	OutputID        string
	ObservationText string
	Region          domain.Region
}

// Output is a target completion: the text a fine-tuned model should
// produce for the prompts that reference it, labeled with the risk level
// it was authored for so Normalize can enforce the tool-call mapping.
type Output struct {
	ID        string
	Text      string
	RiskLevel domain.RiskLevel
}

// TrainingExample is a single line-delimited training record.
type TrainingExample struct {
	Instruction string         `json:"instruction"`
	Input       string         `json:"input"`
	Output      string         `json:"output"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Corpus is the input to Compose: the raw linked records before they are
// joined into TrainingExamples.
type Corpus struct {
	Templates []InstructionTemplate
	Prompts   []Prompt
	Outputs   []Output
}
