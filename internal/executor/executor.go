package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/resourceregistry"
	"github.com/nzcrisisline/safetypipeline/internal/toolcall"
)

// Registry is the subset of *resourceregistry.Registry the executor
// depends on, kept as an interface so tests can substitute a fake without
// standing up a full Store/Cache pair.
type Registry interface {
	Lookup(ctx context.Context, region domain.Region, situation domain.SituationType, tag domain.TopicalTag) []*resourceregistry.Resource
	IsFabrication(ctx context.Context, value string, kind domain.ChannelKind, region domain.Region) (bool, *resourceregistry.KnownFabrication, *resourceregistry.Resource)
	ContainsFabrication(ctx context.Context, text string) (string, bool)
	IsKnownLiteral(ctx context.Context, value string) bool
}

// Executor resolves parsed tool-call directives into literal substitutions
// and renders them back into the final response text, implementing §4.B.
// It never fabricates a literal: every value it emits is either copied
// verbatim from the registry or is the one hard-coded emergency-number
// exception (resourceregistry.EmergencyNumber).
type Executor struct {
	registry Registry
}

// New constructs an Executor bound to registry.
func New(registry Registry) *Executor {
	return &Executor{registry: registry}
}

// Incident is the decoded, schema-validated payload of a log_incident
// directive, returned to the caller so the orchestrator can append it to
// the audit store; the executor itself never writes the audit log, keeping
// it a pure resolve/render step.
type Incident struct {
	Directive toolcall.Directive
	Data      map[string]any
}

// Resolution is the executor's per-directive outcome: either Text is set
// (the literal to substitute in place of the directive) or Err is set (the
// directive could not be resolved and must be rendered as a visible
// failure marker rather than silently dropped, per invariant §8: "a
// directive that fails to resolve never silently disappears from the
// final text").
type Resolution struct {
	Directive toolcall.Directive
	Text      string
	// ResourceIDs lists the registry resource ids substituted into Text by
	// a get_crisis_resources directive, so callers can record which
	// resources were offered (ids, not literals) without re-parsing Text.
	ResourceIDs []string
	Incident    *Incident
	Err         error
}

// ResolveContext carries the per-turn ambient values a directive's
// arguments may omit and fall back to (the caller's declared region, the
// risk-derived situation type).
type ResolveContext struct {
	Region    domain.Region
	Situation domain.SituationType
}

// Resolve resolves every directive independently; a failure on one
// directive does not prevent the others from resolving, matching the
// grammar layer's tolerate-and-continue behavior.
func (e *Executor) Resolve(ctx context.Context, rctx ResolveContext, directives []toolcall.Directive) []Resolution {
	out := make([]Resolution, 0, len(directives))
	for _, d := range directives {
		out = append(out, e.resolveOne(ctx, rctx, d))
	}
	return out
}

func (e *Executor) resolveOne(ctx context.Context, rctx ResolveContext, d toolcall.Directive) Resolution {
	if !d.Name.Valid() {
		return Resolution{Directive: d, Err: fmt.Errorf("%w: %q", ErrUnknownTool, d.Name)}
	}
	if unknown := d.UnknownKeys(); len(unknown) > 0 {
		sort.Strings(unknown)
		return Resolution{Directive: d, Err: fmt.Errorf("%w: %s", ErrUnknownArgument, strings.Join(unknown, ", "))}
	}

	switch d.Name {
	case toolcall.GetCrisisResources:
		return e.resolveGetCrisisResources(ctx, rctx, d)
	case toolcall.CheckHallucination:
		return e.resolveCheckHallucination(ctx, rctx, d)
	case toolcall.LogIncident:
		return e.resolveLogIncident(ctx, d)
	default:
		return Resolution{Directive: d, Err: fmt.Errorf("%w: %q", ErrUnknownTool, d.Name)}
	}
}

func (e *Executor) resolveGetCrisisResources(ctx context.Context, rctx ResolveContext, d toolcall.Directive) Resolution {
	region := rctx.Region
	if v, ok := d.Args["region"]; ok && v != "" {
		region = domain.ParseRegion(v)
	}
	situation := rctx.Situation
	if v, ok := d.Args["situation_type"]; ok && v != "" {
		situation = domain.SituationType(v)
	}

	resources := e.registry.Lookup(ctx, region, situation, "")
	if len(resources) == 0 {
		if situation == domain.SituationEmergency {
			text := fmt.Sprintf("No verified service on file for your region right now — please call %s immediately.",
				resourceregistry.EmergencyNumber(region))
			return Resolution{Directive: d, Text: text}
		}
		return Resolution{Directive: d, Err: fmt.Errorf("%w: region=%s situation=%s", ErrRegistryEmpty, region, situation)}
	}

	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	return Resolution{Directive: d, Text: renderResourceList(resources), ResourceIDs: ids}
}

func renderResourceList(resources []*resourceregistry.Resource) string {
	var b strings.Builder
	for i, r := range resources {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(r.ServiceName)
		if r.Status == domain.StatusDegraded {
			b.WriteString(" (verification pending, may be unreachable)")
		}
		for _, ch := range r.Channels {
			fmt.Fprintf(&b, " — %s: %s", ch.Kind, ch.Value)
		}
		if r.Hours != "" {
			fmt.Fprintf(&b, " (%s)", r.Hours)
		}
	}
	return b.String()
}

func (e *Executor) resolveCheckHallucination(ctx context.Context, rctx ResolveContext, d toolcall.Directive) Resolution {
	value, ok := d.Args["resource"]
	if !ok || value == "" {
		return Resolution{Directive: d, Err: fmt.Errorf("%w: resource", ErrUnknownArgument)}
	}
	kind := domain.ChannelKind(d.Args["type"])

	isFab, fab, alt := e.registry.IsFabrication(ctx, value, kind, rctx.Region)
	if !isFab {
		return Resolution{Directive: d, Text: "That resource is not a known fabrication."}
	}

	text := "That resource is a known fabrication and must not be offered."
	if alt != nil {
		text += " " + renderResourceList([]*resourceregistry.Resource{alt})
	}
	err := fmt.Errorf("%w: %q (%s)", ErrFabricationBlocked, value, fab.Notes)
	return Resolution{Directive: d, Text: text, Err: err}
}

func (e *Executor) resolveLogIncident(ctx context.Context, d toolcall.Directive) Resolution {
	raw, ok := d.Args["incident_data"]
	if !ok {
		return Resolution{Directive: d, Err: fmt.Errorf("%w: incident_data", ErrUnknownArgument)}
	}
	data, err := validateIncidentData(ctx, raw)
	if err != nil {
		return Resolution{Directive: d, Err: err}
	}
	return Resolution{
		Directive: d,
		Text:      "Incident logged.",
		Incident:  &Incident{Directive: d, Data: data},
	}
}

// Render walks segments, substituting each directive's resolved text (or a
// visible failure marker, never a silent drop) and returns the final
// response text plus the incidents collected from any log_incident
// directives. resolutions must be in the same order as the directives
// toolcall.Parse produced from the same segments.
func Render(segments []toolcall.Segment, resolutions []Resolution) (string, []Incident, error) {
	var (
		b         strings.Builder
		incidents []Incident
		errs      []error
		next      int
	)
	for _, seg := range segments {
		if seg.Directive == nil {
			b.WriteString(seg.Text)
			continue
		}
		if next >= len(resolutions) {
			errs = append(errs, fmt.Errorf("executor: directive %q has no resolution", seg.Directive.Raw))
			continue
		}
		res := resolutions[next]
		next++
		if res.Err != nil {
			errs = append(errs, res.Err)
			fmt.Fprintf(&b, "[unable to complete request: %s]", classify(res.Err))
			continue
		}
		b.WriteString(res.Text)
		if res.Incident != nil {
			incidents = append(incidents, *res.Incident)
		}
	}
	if len(errs) > 0 {
		return b.String(), incidents, errors.Join(errs...)
	}
	return b.String(), incidents, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrFabricationBlocked):
		return "that resource could not be verified"
	case errors.Is(err, ErrRegistryEmpty):
		return "no verified service is currently on file"
	case errors.Is(err, ErrInvalidIncidentData):
		return "incident could not be logged"
	case errors.Is(err, ErrUnknownTool), errors.Is(err, ErrUnknownArgument):
		return "request could not be processed"
	default:
		return "request could not be completed"
	}
}
