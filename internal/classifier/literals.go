package classifier

import "regexp"

// These mirror the literal-shape regexes internal/trainset/validate.go uses
// to police the training corpus, reused here so the live post-LLM scan and
// the offline corpus validator agree on what counts as a phone/URL/email
// literal (§4.C/§4.D.1).
var (
	literalPhoneRe = regexp.MustCompile(`\b(?:0800|0[1-9]\d{1,2}|\+?\d{1,3})[\d -]{5,}\d\b`)
	literalURLRe   = regexp.MustCompile(`\bhttps?://[^\s)\]]+`)
	literalEmailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

// ExtractLiterals returns every phone/URL/email-shaped literal found in
// text, grouped by kind: all phone literals first, then URLs, then emails,
// each group in order of appearance.
func ExtractLiterals(text string) []string {
	var out []string
	out = append(out, literalPhoneRe.FindAllString(text, -1)...)
	out = append(out, literalURLRe.FindAllString(text, -1)...)
	out = append(out, literalEmailRe.FindAllString(text, -1)...)
	return out
}
