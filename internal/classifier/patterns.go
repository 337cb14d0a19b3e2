// Package classifier implements the deterministic rule-tier pre-LLM and
// post-LLM scans described in §4.C: a pure, regex-driven pattern matcher
// that never calls the model and never blocks, so it can run in the hot
// path of every turn (§5).
package classifier

import (
	"regexp"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// Category groups pattern ids by the clinical/behavioral theme they detect.
type Category string

const (
	CategorySuicidalIdeation  Category = "suicidal_ideation"
	CategorySelfHarm          Category = "self_harm"
	CategoryDomesticViolence  Category = "domestic_violence"
	CategoryPsychosisViolence Category = "psychosis_with_violence"
	CategorySubstanceOverdose Category = "substance_overdose"
	CategoryEatingDisorder    Category = "eating_disorder"
	CategoryYouthSpecific     Category = "youth_specific"
	CategoryFalsePositive     Category = "false_positive_filter"
)

// Severity classifies how a matched pattern contributes to scoring.
type Severity string

const (
	SeverityImmediateDanger Severity = "immediate_danger"
	SeverityHopelessness    Severity = "hopelessness"
	SeverityPersistence     Severity = "persistence"
	SeveritySustainedAffect Severity = "sustained_affect"
	SeverityFalsePositive   Severity = "false_positive"
)

// Pattern is a single named, compiled rule.
type Pattern struct {
	ID       string
	Category Category
	Severity Severity
	re       *regexp.Regexp
}

// Match is a pattern that fired against a message, with the matched span.
type Match struct {
	Pattern Pattern
	Text    string
}

func p(id string, cat Category, sev Severity, expr string) Pattern {
	return Pattern{ID: id, Category: cat, Severity: sev, re: regexp.MustCompile(expr)}
}

// basePatterns are the region-independent core patterns. Region-specific
// vocabulary banks (VocabularyBank) extend this list without altering the
// scoring logic that consumes it (§4.C: "a region switch replaces the
// vocabulary bank, not the logic").
var basePatterns = []Pattern{
	// Suicidal ideation.
	p("suicide/direct", CategorySuicidalIdeation, SeverityImmediateDanger,
		`(?i)\b(kill myself|end my life|suicide|take my (own )?life)\b`),
	p("suicide/passive", CategorySuicidalIdeation, SeverityHopelessness,
		`(?i)\b(don'?t want to (be here|wake up|exist)|wish i (was|were) (dead|gone)|better off without me)\b`),
	p("suicide/plan_means", CategorySuicidalIdeation, SeverityImmediateDanger,
		`(?i)\b(i have (a gun|pills|rope)|planned how i'?d do it|wrote a (suicide )?note)\b`),
	p("suicide/timeline", CategorySuicidalIdeation, SeverityPersistence,
		`(?i)\b(tonight'?s? the night|by (tomorrow|friday|the end of (the )?(week|month))|can'?t (do this|make it) (another|one more) (day|night))\b`),
	p("suicide/burden", CategorySuicidalIdeation, SeverityHopelessness,
		`(?i)\b(everyone would be better off|i'?m (such )?a burden|they'?d be happier without me)\b`),
	p("suicide/reunion_with_deceased", CategorySuicidalIdeation, SeverityImmediateDanger,
		`(?i)\b(be with (my|him|her|them) again|join (my mum|my dad|him|her) (in heaven|up there))\b`),

	// Self-harm.
	p("self_harm/ongoing", CategorySelfHarm, SeverityHopelessness,
		`(?i)\b(cutting myself|hurting myself|self[- ]harm(ing)?)\b`),
	p("self_harm/loss_of_control", CategorySelfHarm, SeverityImmediateDanger,
		`(?i)\b(can'?t stop (cutting|hurting myself)|it'?s getting (worse|out of control))\b`),

	// Domestic / family violence.
	p("dv/direct", CategoryDomesticViolence, SeverityImmediateDanger,
		`(?i)\b(he|she|they) (hit|hits|hurt|hurts|strangled|choked) me\b`),
	p("dv/self_blame", CategoryDomesticViolence, SeverityHopelessness,
		`(?i)\b(it'?s my fault he|i made him (angry|do it)|i deserve it)\b`),
	p("dv/coercive_control", CategoryDomesticViolence, SeverityHopelessness,
		`(?i)\b(won'?t let me (leave|see my friends|have my own money)|tracks my phone|controls everything i do)\b`),
	p("dv/financial", CategoryDomesticViolence, SeverityHopelessness,
		`(?i)\b(took (all )?my money|won'?t give me access to (our|the) (money|bank account))\b`),

	// Psychosis with violence.
	p("psychosis/violence", CategoryPsychosisViolence, SeverityImmediateDanger,
		`(?i)\b(voices (are )?telling me to hurt|i'?m going to hurt (someone|them)|they'?re out to get me and i need to)\b`),

	// Substance overdose.
	p("substance/overdose", CategorySubstanceOverdose, SeverityImmediateDanger,
		`(?i)\b(took (too many|a whole bottle of) pills|overdos(e|ed|ing)|mixed (pills|drugs) with alcohol)\b`),

	// Eating disorder.
	p("eating_disorder/restriction", CategoryEatingDisorder, SeverityHopelessness,
		`(?i)\b(haven'?t eaten in days|purging|bingeing and purging|starving myself)\b`),

	// Youth-specific.
	p("youth/exam_failure", CategoryYouthSpecific, SeverityHopelessness,
		`(?i)\b(failed my (exam|exams|ncea)|parents will kill me (if|when) they see my (grades|results))\b`),
	p("youth/bullying", CategoryYouthSpecific, SeverityHopelessness,
		`(?i)\b(everyone at school hates me|being bullied|they won'?t stop bullying me)\b`),
	p("youth/lgbtq_rejection", CategoryYouthSpecific, SeverityHopelessness,
		`(?i)\b(kicked me out (for being|when they found out i'?m) gay|my family (disowned|rejected) me)\b`),

	// False-positive filters.
	p("false_positive/humor", CategoryFalsePositive, SeverityFalsePositive,
		`(?i)\blol\b|\blmao\b|\bjk\b|😂|🤣`),
	p("false_positive/hyperbole", CategoryFalsePositive, SeverityFalsePositive,
		`(?i)\b(this (traffic|homework|exam|meeting) is killing me|i could just die (of embarrassment|laughing))\b`),
	p("false_positive/media_reference", CategoryFalsePositive, SeverityFalsePositive,
		`(?i)\b(in the movie|the show|the game|the book) .*(suicide|overdose|kill)\b`),
}

// VictimBlamingPhrase is a single named, compiled response-side rejection
// rule.
type VictimBlamingPhrase struct {
	ID string
	re *regexp.Regexp
}

// victimBlamingPhrases is the closed list §4.C(iii) names: response-side
// phrases the post-scan rejects regardless of region, since a composed
// reply must never suggest the person in crisis caused or could easily
// have avoided what happened to them.
var victimBlamingPhrases = []VictimBlamingPhrase{
	{ID: "victim_blame/willingness_accept", re: regexp.MustCompile(`(?i)\byour willingness to accept\b`)},
	{ID: "victim_blame/you_allowed", re: regexp.MustCompile(`(?i)\byou allowed\b`)},
	{ID: "victim_blame/enabling", re: regexp.MustCompile(`(?i)\benabling\b`)},
	{ID: "victim_blame/your_fault", re: regexp.MustCompile(`(?i)\byour fault\b`)},
}

// ContainsVictimBlaming reports the stable pattern id and matched text of
// the first victim-blaming phrase found in text, if any.
func ContainsVictimBlaming(text string) (id string, phrase string, found bool) {
	for _, p := range victimBlamingPhrases {
		if loc := p.re.FindStringIndex(text); loc != nil {
			return p.ID, text[loc[0]:loc[1]], true
		}
	}
	return "", "", false
}

// DegradationPhrase is a single named, compiled rule recognizing a user
// reporting that the assistant's own prior output was wrong or unusable.
type DegradationPhrase struct {
	ID string
	re *regexp.Regexp
}

// degradationPhrases flags a user turn reporting that a resource the
// assistant just gave them does not work (§8 scenario: "Those numbers you
// gave me don't work"). On its own a broken link or number is not a crisis
// signal; paired with the assistant having just spoken, it means the
// person in crisis was sent back out with a dead contact and must be
// treated at the same severity as if no resource had been offered at all.
var degradationPhrases = []DegradationPhrase{
	{ID: "model_degradation/numbers_dont_work", re: regexp.MustCompile(`(?i)\b(those|the) numbers? (you (gave|sent|told) me )?(don'?t|doesn'?t|did ?n'?t) work\b`)},
	{ID: "model_degradation/number_not_working", re: regexp.MustCompile(`(?i)\bthat (number|link|website) (doesn'?t|does not|isn'?t) work(ing)?\b`)},
	{ID: "model_degradation/contradicts_prior", re: regexp.MustCompile(`(?i)\byou (already )?told me something (different|else)\b`)},
}

// ContainsModelDegradationSignal reports the stable pattern id and matched
// text of the first model-degradation phrase found in text, if any. Callers
// are expected to only treat a match as a signal when it follows an
// assistant turn.
func ContainsModelDegradationSignal(text string) (id string, phrase string, found bool) {
	for _, p := range degradationPhrases {
		if loc := p.re.FindStringIndex(text); loc != nil {
			return p.ID, text[loc[0]:loc[1]], true
		}
	}
	return "", "", false
}

// regionLiteralHints fingerprints the phone-numbering-plan shape typical of
// each region, used to flag region drift (§4.C(iv)): a literal shaped like
// another region's numbers appearing in a session asserted for a different
// region (e.g. a US-format number surfacing in an NZ session).
var regionLiteralHints = map[domain.Region]*regexp.Regexp{
	domain.RegionNZ: regexp.MustCompile(`^(?:\+?64|0800|0[2-9]\d)`),
	domain.RegionAU: regexp.MustCompile(`^(?:\+?61|1[38]00|0[2-9])`),
	domain.RegionUS: regexp.MustCompile(`^(?:\+?1[2-9]\d{2}[2-9]|1[-.\s]?8(00|33|44|55|66|77|88)|\(\d{3}\))`),
	domain.RegionCA: regexp.MustCompile(`^(?:\+?1[2-9]\d{2}[2-9])`),
	domain.RegionUK: regexp.MustCompile(`^(?:\+?44|0[1-9]\d{2,3})`),
	domain.RegionIE: regexp.MustCompile(`^(?:\+?353|0[1-9]\d)`),
}

// regionDriftOrder is the fixed order in which DetectRegionDrift tries the
// regionLiteralHints entries.
var regionDriftOrder = []domain.Region{
	domain.RegionUS, domain.RegionCA, domain.RegionAU, domain.RegionUK, domain.RegionIE, domain.RegionNZ,
}

// DetectRegionDrift reports the region a phone-shaped literal's format
// suggests, when that format is distinctive of a region other than
// asserted and does not also match asserted's own format (to avoid flagging
// ambiguous shared-format numbers). Regions are tried in regionDriftOrder
// and the first match is reported, so a literal that fits several formats
// (a North American toll-free number also fits the AU 1800 shape) always
// yields the same region.
func DetectRegionDrift(asserted domain.Region, literal string) (domain.Region, bool) {
	compact := stripLiteralPunctuation(literal)
	if compact == "" {
		return "", false
	}
	if assertedRe, ok := regionLiteralHints[asserted]; ok && assertedRe.MatchString(compact) {
		return "", false
	}
	for _, region := range regionDriftOrder {
		if region == asserted {
			continue
		}
		if re := regionLiteralHints[region]; re.MatchString(compact) {
			return region, true
		}
	}
	return "", false
}

func stripLiteralPunctuation(v string) string {
	var b []rune
	for _, r := range v {
		switch r {
		case ' ', '-', '(', ')':
			continue
		}
		b = append(b, r)
	}
	return string(b)
}

// VocabularyBank extends basePatterns with region-parameterized vocabulary
// (idiom sets, indigenous-language phrases). The scoring logic in score.go
// is identical across regions; only this data changes.
type VocabularyBank struct {
	Region   domain.Region
	Patterns []Pattern
}

var regionVocabulary = map[domain.Region]VocabularyBank{
	domain.RegionNZ: {
		Region: domain.RegionNZ,
		Patterns: []Pattern{
			p("nz/suicide_idiom_karakia", CategorySuicidalIdeation, SeverityHopelessness,
				`(?i)\b(kua hiamoe ahau|i'?m so tired of fighting)\b`),
			p("nz/dv_idiom_whanau", CategoryDomesticViolence, SeverityHopelessness,
				`(?i)\b(my whanau (don'?t|doesn'?t) believe me|it'?s just how he is)\b`),
		},
	},
}

// PatternsForRegion returns the base patterns plus the region's vocabulary
// bank extension, defaulting to GLOBAL (base only) for unrecognized
// regions.
func PatternsForRegion(region domain.Region) []Pattern {
	out := make([]Pattern, len(basePatterns))
	copy(out, basePatterns)
	if bank, ok := regionVocabulary[region]; ok {
		out = append(out, bank.Patterns...)
	}
	return out
}
