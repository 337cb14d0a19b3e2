package trainset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// WriteJSONL writes examples as a line-delimited JSON record file, one
// TrainingExample per line, per §4.D/§6's external training file format.
func WriteJSONL(w io.Writer, examples []TrainingExample) error {
	enc := json.NewEncoder(w)
	for i, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("trainset: encode example %d: %w", i, err)
		}
	}
	return nil
}

// ReadJSONL reads a line-delimited training record file back into
// TrainingExamples.
func ReadJSONL(r io.Reader) ([]TrainingExample, error) {
	var out []TrainingExample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		var ex TrainingExample
		if err := json.Unmarshal([]byte(text), &ex); err != nil {
			return nil, fmt.Errorf("trainset: decode line %d: %w", line, err)
		}
		out = append(out, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trainset: scan training file: %w", err)
	}
	return out, nil
}

// ExternalRecord is a single record from an external crisis dataset: free
// text paired with a risk label, with no resource literals of its own.
type ExternalRecord struct {
	ObservationText string
	RiskLevel       domain.RiskLevel
}

// IngestExternal maps external dataset records into TrainingExamples with
// region=GLOBAL, routed through the same Normalize/Validate stages as
// locally authored material so external data never carries region-specific
// literals (§4.D "additional ingest path").
func IngestExternal(records []ExternalRecord, role string) []TrainingExample {
	out := make([]TrainingExample, 0, len(records))
	for _, rec := range records {
		out = append(out, TrainingExample{
			Instruction: canonicalInstruction(role, rec.ObservationText),
			Output:      "",
			Metadata: map[string]any{
				"risk_level":  string(rec.RiskLevel),
				"region":      string(domain.RegionGlobal),
				"role":        role,
				"observation": rec.ObservationText,
				"source":      "external",
			},
		})
	}
	return out
}
