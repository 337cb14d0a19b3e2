// Package executor implements §4.B's tool-call resolution step: turning
// parsed toolcall.Directive values into literal substitutions sourced
// exclusively from the resource registry (plus the one hard-coded
// emergency-number exception), and rendering those substitutions back into
// the final response text.
package executor

import "errors"

var (
	// ErrUnknownTool is returned when a directive names a tool outside the
	// closed set in toolcall.Name.
	ErrUnknownTool = errors.New("executor: unknown tool")
	// ErrUnknownArgument is returned when a directive supplies an argument
	// key outside that tool's closed schema.
	ErrUnknownArgument = errors.New("executor: unknown argument")
	// ErrRegistryEmpty is returned by get_crisis_resources when the
	// registry has no match for the requested region/situation/tag and no
	// hard-coded emergency fallback applies.
	ErrRegistryEmpty = errors.New("executor: registry returned no resources")
	// ErrFabricationBlocked is returned when check_hallucination confirms
	// the resource under test is a known fabrication, or when a directive's
	// literal argument itself matches a known fabrication.
	ErrFabricationBlocked = errors.New("executor: fabrication blocked")
	// ErrInvalidIncidentData is returned when log_incident's incident_data
	// argument fails schema validation.
	ErrInvalidIncidentData = errors.New("executor: invalid incident_data")
)
