package main

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huseyinardaarslan/LawRagBot/docstore"
	"github.com/huseyinardaarslan/LawRagBot/llm"
)

const (
	minAnalysisChars = 1000
	maxAnalysisChars = 1750
)

const sourcesHeading = "Sources:"

const degradedNotice = "Note: the analysis below did not meet the expected length or formatting " +
	"constraints and may be incomplete."

// inlineCitation flags page references inside the analysis body.
// Citations belong to the sources section only.
var inlineCitation = regexp.MustCompile(`(?i)\bp\.\s*\d+`)

// Composer turns retrieved chunks into the final answer: a generated
// analysis body followed by a deterministic sources section built from
// chunk metadata. The model never writes citations.
type Composer struct {
	log     *slog.Logger
	llm     llm.Completer
	timeout time.Duration
}

func NewComposer(log *slog.Logger, completer llm.Completer, cfg *Config) *Composer {
	return &Composer{
		log:     log,
		llm:     completer,
		timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}
}

// Compose generates the analysis body, validates it against the length
// and citation constraints and appends the sources section. A body that
// fails validation gets one corrective retry; if the retry fails too,
// the answer is returned with a degradation notice rather than dropped.
func (c *Composer) Compose(ctx context.Context, query string, hits []docstore.SearchHit) (string, error) {
	body, err := c.generate(ctx, analysisPrompt(query, hits))
	if err != nil {
		return "", err
	}

	if vErr := validateAnalysis(body); vErr != nil {
		c.log.Warn("analysis rejected, retrying", "reason", vErr)

		retry, err := c.generate(ctx, correctionPrompt(query, hits, vErr))
		if err != nil {
			return "", err
		}

		if vErr := validateAnalysis(retry); vErr != nil {
			c.log.Warn("retried analysis rejected, returning degraded answer", "reason", vErr)
			return degradedNotice + "\n\n" + retry + "\n\n" + sourcesSection(hits), nil
		}

		body = retry
	}

	return body + "\n\n" + sourcesSection(hits), nil
}

func (c *Composer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("analysis generation failed: %w", err)
	}

	return stripSources(strings.TrimSpace(out)), nil
}

// stripSources drops any sources section the model emitted on its own,
// in whatever markup it chose. The canonical section is appended later.
func stripSources(body string) string {
	idx := strings.Index(strings.ToLower(body), "sources:")
	if idx < 0 {
		return body
	}

	return strings.TrimSpace(strings.TrimRight(body[:idx], "*# \t\n"))
}

func validateAnalysis(body string) error {
	length := utf8.RuneCountInString(body)
	if length < minAnalysisChars {
		return fmt.Errorf("analysis too short: %d characters, need at least %d", length, minAnalysisChars)
	}
	if length > maxAnalysisChars {
		return fmt.Errorf("analysis too long: %d characters, limit is %d", length, maxAnalysisChars)
	}
	if inlineCitation.MatchString(body) {
		return fmt.Errorf("analysis contains inline page citations")
	}

	return nil
}

func analysisPrompt(query string, hits []docstore.SearchHit) string {
	var sb strings.Builder

	sb.WriteString("You are a legal writing specialist analyzing USCIS AAO decisions.\n\n")
	fmt.Fprintf(&sb, "Answer the following question using ONLY the excerpts below as your evidence:\n\nQuestion: %s\n\nExcerpts:\n", query)

	for i, hit := range hits {
		fmt.Fprintf(&sb, "[%d] (source: %s, relevance: %.2f)\n%s\n\n", i+1, hit.SourceFile, hit.Score, hit.Text)
	}

	fmt.Fprintf(&sb, `Requirements:
- Write between %d and %d characters of flowing analytical prose.
- Explain the legal principles and the AAO's reasoning in the excerpts.
- Do NOT include in-text citations, page numbers, parenthetical references or regulatory citations such as CFR or USC sections.
- Do NOT include a sources or references section; one is appended separately.`, minAnalysisChars, maxAnalysisChars)

	return sb.String()
}

func correctionPrompt(query string, hits []docstore.SearchHit, violation error) string {
	return analysisPrompt(query, hits) +
		fmt.Sprintf("\n\nYour previous attempt was rejected: %s. Follow every requirement exactly this time.", violation)
}

// sourcesSection renders one citation entry per retrieved chunk, in
// retrieval order. Entries degrade gracefully when metadata is missing.
func sourcesSection(hits []docstore.SearchHit) string {
	entries := make([]string, 0, len(hits))
	for _, hit := range hits {
		entries = append(entries, citationEntry(hit))
	}

	return sourcesHeading + "\n" + strings.Join(entries, ", ")
}

func citationEntry(hit docstore.SearchHit) string {
	label := hit.PetitionType
	if label == "" {
		label = hit.SourceFile
	}

	entry := label
	if hit.PageNumber >= 1 {
		entry += fmt.Sprintf(" (p. %d)", int(hit.PageNumber))
	}
	if date, ok := formatDecisionDate(hit.DecisionDate); ok {
		entry += " - " + date
	}

	return entry
}

var rawDatePattern = regexp.MustCompile(`^([A-Z]{3})(\d{2})(\d{4})$`)

var monthNames = map[string]string{
	"JAN": "Jan", "FEB": "Feb", "MAR": "Mar", "APR": "Apr",
	"MAY": "May", "JUN": "Jun", "JUL": "Jul", "AUG": "Aug",
	"SEP": "Sep", "OCT": "Oct", "NOV": "Nov", "DEC": "Dec",
}

// formatDecisionDate renders a raw MMMDDYYYY token as "Feb 03, 2025".
// Unparseable dates are omitted from the citation rather than guessed.
func formatDecisionDate(raw string) (string, bool) {
	m := rawDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}

	month, ok := monthNames[m[1]]
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%s %s, %s", month, m[2], m[3]), true
}
