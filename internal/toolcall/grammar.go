// Package toolcall implements the textual tool-call grammar emitted by the
// language model inside its response:
//
//	[TOOL_CALL: <name>(<k>=<v>, ...)]
//
// The directive is text, not structured data, so parseability is itself part
// of the safety contract: Parse must tolerate the sloppy punctuation a model
// actually produces (mixed quote styles, trailing commas, extra whitespace)
// while still rejecting anything outside the closed tool/argument schema.
package toolcall

import (
	"fmt"
	"sort"
	"strings"
)

// Name is the closed set of tool identifiers a directive may name.
type Name string

const (
	// GetCrisisResources asks the executor to resolve verified resources for
	// a region and situation type.
	GetCrisisResources Name = "get_crisis_resources"
	// CheckHallucination asks whether a literal is a known fabrication.
	CheckHallucination Name = "check_hallucination"
	// LogIncident appends a crisis event to the audit log.
	LogIncident Name = "log_incident"
)

// argSchema lists the closed set of argument keys each tool accepts, in the
// canonical order used when re-serializing a Directive to text.
var argSchema = map[Name][]string{
	GetCrisisResources: {"region", "situation_type"},
	CheckHallucination: {"resource", "type"},
	LogIncident:        {"incident_data"},
}

// Valid reports whether name is one of the three closed tool identifiers.
func (n Name) Valid() bool {
	_, ok := argSchema[n]
	return ok
}

// Directive is a single parsed `[TOOL_CALL: ...]` occurrence.
type Directive struct {
	// Name is the tool identifier. Unknown names are preserved verbatim so
	// callers can report UnknownTool with the offending text.
	Name Name
	// Args holds the raw argument values keyed by argument name. Values are
	// unquoted strings for quoted_string arguments and the raw `{...}` text
	// (including braces) for dict_literal arguments.
	Args map[string]string
	// Raw is the exact source text of the directive, including the
	// surrounding "[TOOL_CALL: ...]" markers.
	Raw string
}

// Segment is either a literal text run or a parsed directive. A rendered
// response is reconstructed by walking Segments in order.
type Segment struct {
	Text      string
	Directive *Directive
}

// UnknownKeys returns the argument keys present on the directive that fall
// outside the closed schema for Name. Called only for known tool names;
// unknown tool names are reported separately as UnknownTool.
func (d *Directive) UnknownKeys() []string {
	allowed := argSchema[d.Name]
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = struct{}{}
	}
	var unknown []string
	for k := range d.Args {
		if _, ok := allowedSet[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// String renders the directive back into canonical grammar form. Argument
// order follows the tool's declared schema, with any keys outside the schema
// after it in sorted order, so serialization is deterministic regardless of
// map iteration order; this makes parse∘render round-trips stable.
func (d *Directive) String() string {
	order, known := argSchema[d.Name]
	if !known {
		order = sortedKeys(d.Args)
	} else {
		order = append(append([]string(nil), order...), d.UnknownKeys()...)
	}
	var b strings.Builder
	b.WriteString("[TOOL_CALL: ")
	b.WriteString(string(d.Name))
	b.WriteByte('(')
	first := true
	for _, key := range order {
		val, ok := d.Args[key]
		if !ok {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(key)
		b.WriteByte('=')
		if strings.HasPrefix(val, "{") {
			b.WriteString(val)
		} else {
			fmt.Fprintf(&b, "'%s'", strings.ReplaceAll(val, "'", "\\'"))
		}
	}
	b.WriteString(")]")
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
