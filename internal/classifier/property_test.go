package classifier_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nzcrisisline/safetypipeline/internal/classifier"
	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// TestScanIsDeterministicProperty verifies Scan is a pure function of its
// input: scanning the same text twice with the same scanner always
// produces the same risk level and the same number of pattern matches,
// since the rule tier must never introduce nondeterminism into the hot
// path (§5).
func TestScanIsDeterministicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	scanner := classifier.New(domain.RegionNZ)

	properties.Property("scanning the same text twice yields the same risk", prop.ForAll(
		func(text string) bool {
			first := scanner.Scan(text)
			second := scanner.Scan(text)
			if first.Risk != second.Risk {
				return false
			}
			return len(first.Matches) == len(second.Matches)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestScanNeverReturnsBelowLowProperty verifies Risk is always one of the
// four declared levels regardless of input, never a zero value or an
// out-of-range level.
func TestScanNeverReturnsBelowLowProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	scanner := classifier.New(domain.RegionGlobal)

	properties.Property("risk is always one of the declared levels", prop.ForAll(
		func(text string) bool {
			scan := scanner.Scan(text)
			return scan.Risk.Valid()
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
