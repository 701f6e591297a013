package extract

import (
	"regexp"
	"strings"
)

// Decision outcome labels stored in chunk metadata.
const (
	OutcomeApproved = "Approved/Sustained"
	OutcomeDenied   = "Denied/Dismissed"
	OutcomeRemanded = "Remanded"
)

// DefaultPetitionType is the generic label used when no marker phrase
// is present in the decision text.
const DefaultPetitionType = "I-140"

// Metadata holds the document-level fields attached to every chunk of a
// decision. Empty string means the field could not be derived.
type Metadata struct {
	DecisionDate    string
	PetitionType    string
	DecisionOutcome string
}

// Date patterns are tried against the filename in this order; the first
// match wins. A date that only appears in the body text is not found.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\d{2}\d{4}`),
	regexp.MustCompile(`\d{4}_\d{2}_\d{2}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
}

// Petition marker phrases in fixed priority order; first match wins.
var petitionRules = []struct {
	marker string
	label  string
}{
	{"Extraordinary Ability", "EB-1A Extraordinary Ability"},
	{"Outstanding Professor", "EB-1B Outstanding Professor"},
	{"Multinational Manager", "EB-1C Multinational Manager"},
}

// Outcome keyword groups in fixed priority order. The order is a
// deliberate, visible artifact: a text matching several groups always
// yields the first one listed here.
var outcomeRules = []struct {
	label    string
	keywords []string
}{
	{OutcomeApproved, []string{"appeal is sustained", "petition is approved", "motion is granted", "request is granted"}},
	{OutcomeDenied, []string{"appeal is dismissed", "petition is denied", "motion is denied", "request is denied"}},
	{OutcomeRemanded, []string{"remand", "remanded", "return to", "additional evidence"}},
}

var orderPattern = regexp.MustCompile(`(?is)ORDER:(.*?)(?:\n\n|\z)`)

// The outcome scan only considers this many characters from the head
// and tail of the document.
const outcomeScanWindow = 2000

// Classify derives decision metadata from a document's filename and
// full text.
func Classify(filename, text string) Metadata {
	return Metadata{
		DecisionDate:    classifyDate(filename),
		PetitionType:    classifyPetitionType(text),
		DecisionOutcome: classifyOutcome(text),
	}
}

func classifyDate(filename string) string {
	for _, p := range datePatterns {
		if m := p.FindString(filename); m != "" {
			return m
		}
	}

	return ""
}

func classifyPetitionType(text string) string {
	for _, r := range petitionRules {
		if strings.Contains(text, r.marker) {
			return r.label
		}
	}

	return DefaultPetitionType
}

// classifyOutcome prefers the ORDER: section near the end of the
// decision, falling back to a head+tail scan when that section is
// missing or inconclusive.
func classifyOutcome(text string) string {
	tail := lastChars(text, outcomeScanWindow)
	if m := orderPattern.FindStringSubmatch(tail); m != nil {
		if outcome := matchOutcome(m[1]); outcome != "" {
			return outcome
		}
	}

	combined := firstChars(text, outcomeScanWindow) + " " + tail
	return matchOutcome(combined)
}

func matchOutcome(text string) string {
	lower := strings.ToLower(text)
	for _, r := range outcomeRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.label
			}
		}
	}

	return ""
}

func firstChars(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

func lastChars(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[len(s)-n:]
}
