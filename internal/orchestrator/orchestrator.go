// Package orchestrator implements the per-turn inference flow described in
// §4.E: classify, optionally collaborate with the language model, scan its
// output, resolve and render any tool-call directives, and log an audit
// event when the turn warrants one. It is the only component that calls
// every other package in the pipeline.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nzcrisisline/safetypipeline/internal/audit"
	"github.com/nzcrisisline/safetypipeline/internal/classifier"
	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/executor"
	"github.com/nzcrisisline/safetypipeline/internal/model"
	"github.com/nzcrisisline/safetypipeline/internal/telemetry"
	"github.com/nzcrisisline/safetypipeline/internal/toolcall"
)

// TurnRequest is a single conversational turn submitted to the
// orchestrator.
type TurnRequest struct {
	UserText            string
	ConversationHistory []model.Message
	Region              domain.Region
	UserID              string
	ConversationID      string
	MessageID           string
}

// TurnResponse is the orchestrator's per-turn result.
type TurnResponse struct {
	FinalText                string
	Risk                     domain.RiskLevel
	EventID                  string
	MessageID                string
	Degraded                 bool
	AIFailureDetected        bool
	ModelDegradationDetected bool
}

// Options configures a new Orchestrator.
type Options struct {
	Model            model.Client
	Executor         *executor.Executor
	Registry         executor.Registry
	Audit            audit.Store
	Observability    telemetry.Observability
	SystemPromptRole string
}

// Orchestrator ties the classifier, model, executor, and audit log
// together, implementing §4.E's 8-step per-turn flow.
type Orchestrator struct {
	model    model.Client
	executor *executor.Executor
	registry executor.Registry
	audit    audit.Store
	obs      telemetry.Observability
	role     string
}

// New constructs an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("orchestrator: model client is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("orchestrator: executor is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("orchestrator: registry is required")
	}
	if opts.Audit == nil {
		return nil, fmt.Errorf("orchestrator: audit store is required")
	}
	obs := opts.Observability
	if obs.Logger == nil {
		obs = telemetry.Noop()
	}
	role := opts.SystemPromptRole
	if role == "" {
		role = defaultRole
	}
	return &Orchestrator{model: opts.Model, executor: opts.Executor, registry: opts.Registry, audit: opts.Audit, obs: obs, role: role}, nil
}

const defaultRole = "You are a crisis-aware support assistant. You help people in distress find real, verified help."

// HandleTurn runs the full per-turn flow (§4.E steps 1-8).
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}
	region := domain.ParseRegion(string(req.Region))
	scanner := classifier.New(region)

	preScan := scanner.Scan(req.UserText)
	risk := preScan.Risk

	// §3/§8 scenario 2: a user reporting that a resource the assistant just
	// gave them does not work is itself a crisis signal — the person was
	// sent back out with a dead contact. It is elevated to CRITICAL
	// regardless of what the pre-scan alone found.
	degradationID, degradationDetected := "", false
	if lastTurnWasAssistant(req.ConversationHistory) {
		degradationID, _, degradationDetected = classifier.ContainsModelDegradationSignal(req.UserText)
	}
	if degradationDetected {
		risk = domain.RiskCritical
	}

	if risk == domain.RiskCritical {
		return o.handleCritical(ctx, req, region, preScan, degradationDetected, degradationID)
	}

	return o.handleCollaborative(ctx, req, region, preScan)
}

func lastTurnWasAssistant(history []model.Message) bool {
	if len(history) == 0 {
		return false
	}
	return history[len(history)-1].Role == model.ConversationRoleAssistant
}

func (o *Orchestrator) handleCritical(ctx context.Context, req TurnRequest, region domain.Region, preScan classifier.Scan, modelDegradation bool, degradationPatternID string) (*TurnResponse, error) {
	category := "pre_scan_critical"
	summary := "Pre-scan classified CRITICAL risk; model bypassed per policy."
	if modelDegradation {
		category = "model_degradation_critical"
		summary = "User reported a previously offered resource does not work; elevated to CRITICAL and model bypassed per policy."
	}
	directives := []toolcall.Directive{
		{Name: toolcall.GetCrisisResources, Args: map[string]string{
			"region": string(region), "situation_type": string(domain.SituationEmergency),
		}},
		{Name: toolcall.LogIncident, Args: map[string]string{
			"incident_data": incidentDataLiteral(category, domain.RiskCritical, summary),
		}},
	}
	segments := []toolcall.Segment{
		{Text: "This appears to be an emergency. "},
		{Directive: &directives[0]},
		{Text: " "},
		{Directive: &directives[1]},
	}
	resolutions := o.executor.Resolve(ctx, executor.ResolveContext{Region: region, Situation: domain.SituationEmergency}, directives)
	text, incidents, renderErr := executor.Render(segments, resolutions)

	resp := &TurnResponse{FinalText: text, Risk: domain.RiskCritical, MessageID: req.MessageID, ModelDegradationDetected: modelDegradation}
	if renderErr != nil {
		resp.Degraded = true
	}
	var extraPatterns []string
	if modelDegradation {
		extraPatterns = append(extraPatterns, degradationPatternID)
	}
	eventID, err := o.appendEvent(ctx, eventParams{
		req: req, region: region, risk: domain.RiskCritical, scan: preScan,
		resolutions: resolutions, incidents: incidents, extraPatterns: extraPatterns,
		aiFailure: false, modelDegradation: modelDegradation, conversationStopped: true,
		degraded: resp.Degraded,
	})
	if err != nil {
		o.obs.Logger.Error(ctx, "failed to append crisis event", "error", err.Error())
	}
	resp.EventID = eventID
	return resp, nil
}

func (o *Orchestrator) handleCollaborative(ctx context.Context, req TurnRequest, region domain.Region, preScan classifier.Scan) (*TurnResponse, error) {
	risk := preScan.Risk
	systemPrompt := o.buildSystemPrompt(risk)

	messages := make([]model.Message, 0, len(req.ConversationHistory)+2)
	messages = append(messages, model.Message{Role: model.ConversationRoleSystem, Content: systemPrompt})
	messages = append(messages, req.ConversationHistory...)
	messages = append(messages, model.Message{Role: model.ConversationRoleUser, Content: req.UserText})

	completion, err := o.model.Complete(ctx, &model.Request{Messages: messages, MaxTokens: 1024})
	if err != nil {
		return o.ruleTierFallback(ctx, req, region, risk, preScan, true, err.Error())
	}

	return o.finishTurn(ctx, req, region, risk, preScan, completion.Text, false, "")
}

// finishTurn implements steps 5-8: post-scan, resolve, render, and audit.
func (o *Orchestrator) finishTurn(ctx context.Context, req TurnRequest, region domain.Region, risk domain.RiskLevel, preScan classifier.Scan, rawText string, priorFailure bool, priorReason string) (*TurnResponse, error) {
	segments, directives, parseErr := toolcall.Parse(rawText)
	victimBlameID, _, victimBlaming := classifier.ContainsVictimBlaming(rawText)

	aiFailure := priorFailure || parseErr != nil
	failureReason := priorReason
	if parseErr != nil && failureReason == "" {
		failureReason = parseErr.Error()
	}

	fabricated, fabLiteral := o.containsAnyFabricationSegment(ctx, segments)
	literalIssue, literalIssueFound := o.scanUnverifiedLiterals(ctx, region, segments)

	var extraPatterns []string
	if fabricated || victimBlaming || literalIssueFound {
		aiFailure = true
		if victimBlaming {
			extraPatterns = append(extraPatterns, victimBlameID)
		}
		if failureReason == "" {
			switch {
			case fabricated:
				failureReason = fmt.Sprintf("composed response contained fabricated literal %q", fabLiteral)
			case victimBlaming:
				failureReason = "composed response contained victim-blaming language"
			default:
				failureReason = literalIssue
			}
		}
		segments, directives = forceResourceDirective(region, risk)
	}

	resolutions := o.executor.Resolve(ctx, executor.ResolveContext{Region: region, Situation: situationForRisk(risk)}, directives)
	text, incidents, renderErr := executor.Render(segments, resolutions)
	degraded := renderErr != nil

	resp := &TurnResponse{FinalText: text, Risk: risk, MessageID: req.MessageID, Degraded: degraded, AIFailureDetected: aiFailure}

	if risk.AtLeast(domain.RiskMedium) || aiFailure {
		eventID, err := o.appendEvent(ctx, eventParams{
			req: req, region: region, risk: risk, scan: preScan,
			resolutions: resolutions, incidents: incidents, extraPatterns: extraPatterns,
			aiFailure: aiFailure, reason: failureReason, degraded: degraded,
		})
		if err != nil {
			o.obs.Logger.Error(ctx, "failed to append crisis event", "error", err.Error())
		}
		resp.EventID = eventID
	}
	return resp, nil
}

// ruleTierFallback implements the ModelUnreachable/ModelTimeout recovery
// path from §7: fall back to a rule-tier response for the pre-scan risk
// level without involving the model at all.
func (o *Orchestrator) ruleTierFallback(ctx context.Context, req TurnRequest, region domain.Region, risk domain.RiskLevel, preScan classifier.Scan, aiFailure bool, reason string) (*TurnResponse, error) {
	segments, directives := forceResourceDirective(region, risk)
	resolutions := o.executor.Resolve(ctx, executor.ResolveContext{Region: region, Situation: situationForRisk(risk)}, directives)
	text, incidents, renderErr := executor.Render(segments, resolutions)

	resp := &TurnResponse{FinalText: text, Risk: risk, MessageID: req.MessageID, Degraded: renderErr != nil, AIFailureDetected: aiFailure}
	eventID, err := o.appendEvent(ctx, eventParams{
		req: req, region: region, risk: risk, scan: preScan,
		resolutions: resolutions, incidents: incidents,
		aiFailure: aiFailure, reason: reason, degraded: resp.Degraded,
	})
	if err != nil {
		o.obs.Logger.Error(ctx, "failed to append crisis event", "error", err.Error())
	}
	resp.EventID = eventID
	return resp, nil
}

// scanUnverifiedLiterals implements the two remaining §4.C post-scan
// checks: (i) a phone/URL/email-shaped literal the model composed itself
// that is neither a known fabrication nor a registered channel, and (iv)
// region drift, a literal whose format is characteristic of a region other
// than the one asserted for this session. Fabrications and victim-blaming
// are checked separately since their failure text differs.
func (o *Orchestrator) scanUnverifiedLiterals(ctx context.Context, region domain.Region, segments []toolcall.Segment) (string, bool) {
	for _, seg := range segments {
		if seg.Directive != nil {
			continue
		}
		for _, lit := range classifier.ExtractLiterals(seg.Text) {
			if driftRegion, drift := classifier.DetectRegionDrift(region, lit); drift {
				return fmt.Sprintf("composed response contained a %s-formatted literal %q in a %s session", driftRegion, lit, region), true
			}
			if fab, _ := o.registry.ContainsFabrication(ctx, lit); fab != "" {
				continue // already reported by the fabrication check
			}
			if !o.registry.IsKnownLiteral(ctx, lit) {
				return fmt.Sprintf("composed response contained unregistered literal %q", lit), true
			}
		}
	}
	return "", false
}

// eventParams bundles the per-turn values appendEvent needs to build a
// CrisisEvent, since the growing number of §3 fields made a long positional
// argument list harder to read than to name.
type eventParams struct {
	req                 TurnRequest
	region              domain.Region
	risk                domain.RiskLevel
	scan                classifier.Scan
	resolutions         []executor.Resolution
	incidents           []executor.Incident
	extraPatterns       []string
	aiFailure           bool
	modelDegradation    bool
	conversationStopped bool
	reason              string
	degraded            bool
}

func (o *Orchestrator) appendEvent(ctx context.Context, p eventParams) (string, error) {
	patterns := make([]string, 0, len(p.scan.Matches)+len(p.extraPatterns))
	for _, m := range p.scan.Matches {
		patterns = append(patterns, m.Pattern.ID)
	}
	patterns = append(patterns, p.extraPatterns...)

	toolCalls := make([]string, 0, len(p.incidents))
	for _, inc := range p.incidents {
		toolCalls = append(toolCalls, string(inc.Directive.Name))
	}

	var resourcesOffered []string
	for _, res := range p.resolutions {
		if res.Err != nil {
			continue
		}
		resourcesOffered = append(resourcesOffered, res.ResourceIDs...)
	}

	event := &audit.CrisisEvent{
		ID:                       uuid.NewString(),
		ConversationID:           p.req.ConversationID,
		UserID:                   p.req.UserID,
		MessageID:                p.req.MessageID,
		Region:                   p.region,
		RiskLevel:                p.risk,
		Patterns:                 patterns,
		ToolCallsMade:            toolCalls,
		ResourcesOffered:         resourcesOffered,
		AIFailureDetected:        p.aiFailure,
		ModelDegradationDetected: p.modelDegradation,
		ConversationStopped:      p.conversationStopped,
		FailureReason:            p.reason,
		Degraded:                 p.degraded,
		ReviewerStatus:           audit.ReviewerStatusPending,
		CreatedAt:                time.Now(),
	}
	if err := o.audit.Append(ctx, event); err != nil {
		return "", fmt.Errorf("orchestrator: append crisis event: %w", err)
	}
	return event.ID, nil
}

func situationForRisk(risk domain.RiskLevel) domain.SituationType {
	situation, ok := domain.MapRiskToSituation(risk)
	if !ok {
		return domain.SituationSupport
	}
	return situation
}

// forceResourceDirective builds a single get_crisis_resources directive
// for region/risk, used by every fallback path so a failure never
// produces bare prose with no verified resource attached.
func forceResourceDirective(region domain.Region, risk domain.RiskLevel) ([]toolcall.Segment, []toolcall.Directive) {
	situation := situationForRisk(risk)
	directives := []toolcall.Directive{{
		Name: toolcall.GetCrisisResources,
		Args: map[string]string{"region": string(region), "situation_type": string(situation)},
	}}
	segments := []toolcall.Segment{
		{Text: "I want to make sure you have real support available. "},
		{Directive: &directives[0]},
	}
	return segments, directives
}

// containsAnyFabricationSegment scans only the literal text segments of a
// model-composed response (never a directive's own raw text, which is
// resolved through the registry separately) for a known-fabrication
// literal, per invariant §8: "no value listed in KnownFabrication appears
// anywhere in the output."
func (o *Orchestrator) containsAnyFabricationSegment(ctx context.Context, segments []toolcall.Segment) (bool, string) {
	for _, seg := range segments {
		if seg.Directive != nil {
			continue
		}
		if literal, found := o.registry.ContainsFabrication(ctx, seg.Text); found {
			return true, literal
		}
	}
	return false, ""
}

func (o *Orchestrator) buildSystemPrompt(risk domain.RiskLevel) string {
	prompt := o.role + "\n\n" +
		"You must never invent a phone number, URL, email address, or service name. " +
		"Only offer resources by calling get_crisis_resources; never write a literal contact detail yourself. " +
		"Never suggest the person is at fault for what has happened to them.\n"
	if risk.AtLeast(domain.RiskMedium) {
		prompt += fmt.Sprintf("\nThis message was pre-classified at risk level %s. "+
			"Emit exactly one [TOOL_CALL: get_crisis_resources(region='<region>', situation_type='%s')] directive in your response.",
			risk, situationForRisk(risk))
	}
	return prompt
}

func incidentDataLiteral(category string, risk domain.RiskLevel, summary string) string {
	data := map[string]any{"category": category, "risk_level": string(risk), "summary": summary}
	b, _ := json.Marshal(data)
	return string(b)
}
