package toolcall_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nzcrisisline/safetypipeline/internal/toolcall"
)

// TestDirectiveStringParseRoundTripProperty verifies that rendering a
// well-formed directive with String and parsing it back always yields an
// equivalent directive, for any combination of known tool name and
// alphanumeric argument values.
func TestDirectiveStringParseRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	names := []toolcall.Name{toolcall.GetCrisisResources, toolcall.CheckHallucination, toolcall.LogIncident}

	properties.Property("directive survives a String/Parse round trip", prop.ForAll(
		func(nameIdx int, region, situation string) bool {
			d := toolcall.Directive{
				Name: names[nameIdx%len(names)],
				Args: map[string]string{"region": region, "situation_type": situation},
			}
			_, directives, err := toolcall.Parse(d.String())
			if err != nil || len(directives) != 1 {
				return false
			}
			got := directives[0]
			if got.Name != d.Name {
				return false
			}
			return got.Args["region"] == region && got.Args["situation_type"] == situation
		},
		gen.IntRange(0, 100),
		gen.RegexMatch(`[a-zA-Z0-9 ]{1,12}`),
		gen.RegexMatch(`[a-zA-Z0-9 ]{1,12}`),
	))

	properties.TestingRun(t)
}

// TestParseNeverPanicsProperty verifies Parse tolerates arbitrary input
// text without panicking, always returning segments covering the input
// even when directives are malformed (the tolerate-and-continue contract).
func TestParseNeverPanicsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("parse never panics on arbitrary text", prop.ForAll(
		func(text string) bool {
			segments, _, _ := toolcall.Parse(text)
			return segments != nil || text == ""
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
