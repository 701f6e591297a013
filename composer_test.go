package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/huseyinardaarslan/LawRagBot/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validBody() string {
	return strings.Repeat("The AAO examined the record in detail. ", 30)
}

func newTestComposer(completer *mockCompleter) *Composer {
	return &Composer{
		log:     discardLogger(),
		llm:     completer,
		timeout: time.Second,
	}
}

func Test_FormatDecisionDate(t *testing.T) {
	var cases = []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "FEB032025", want: "Feb 03, 2025", ok: true},
		{raw: "DEC252024", want: "Dec 25, 2024", ok: true},
		{raw: "JAN012023", want: "Jan 01, 2023", ok: true},
		{raw: "XXX032025", ok: false},
		{raw: "2025-02-03", ok: false},
		{raw: "", ok: false},
		{raw: "FEB32025", ok: false},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			got, ok := formatDecisionDate(c.raw)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func Test_CitationEntry(t *testing.T) {
	var cases = []struct {
		hit  docstore.SearchHit
		want string
	}{
		{
			hit: docstore.SearchHit{
				SourceFile:   "FEB032025_01B2203.pdf",
				PageNumber:   4,
				DecisionDate: "FEB032025",
				PetitionType: "EB-1A Extraordinary Ability",
			},
			want: "EB-1A Extraordinary Ability (p. 4) - Feb 03, 2025",
		},
		{
			hit: docstore.SearchHit{
				SourceFile:   "decision.pdf",
				PageNumber:   2,
				DecisionDate: "MAR152024",
			},
			want: "decision.pdf (p. 2) - Mar 15, 2024",
		},
		{
			hit: docstore.SearchHit{
				SourceFile:   "decision.pdf",
				PetitionType: "I-140",
				DecisionDate: "not-a-date",
			},
			want: "I-140",
		},
		{
			hit: docstore.SearchHit{
				SourceFile:   "decision.pdf",
				PetitionType: "EB-1B Outstanding Researcher",
				PageNumber:   1,
			},
			want: "EB-1B Outstanding Researcher (p. 1)",
		},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			assert.Equal(t, c.want, citationEntry(c.hit))
		})
	}
}

func Test_SourcesSection(t *testing.T) {
	hits := []docstore.SearchHit{
		{PetitionType: "EB-1A Extraordinary Ability", PageNumber: 4, DecisionDate: "FEB032025"},
		{PetitionType: "I-140", PageNumber: 1, DecisionDate: "JUL042024"},
	}

	section := sourcesSection(hits)

	assert.Equal(t, "Sources:\nEB-1A Extraordinary Ability (p. 4) - Feb 03, 2025, I-140 (p. 1) - Jul 04, 2024", section)
}

func Test_StripSources(t *testing.T) {
	var cases = []struct {
		body string
		want string
	}{
		{
			body: "The analysis.\n\nSources:\nEB-1A (p. 2)",
			want: "The analysis.",
		},
		{
			body: "The analysis.\n\n**Sources:** EB-1A",
			want: "The analysis.",
		},
		{
			body: "The analysis without a tail.",
			want: "The analysis without a tail.",
		},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			assert.Equal(t, c.want, stripSources(c.body))
		})
	}
}

func Test_ValidateAnalysis(t *testing.T) {
	assert.NoError(t, validateAnalysis(validBody()))
	assert.ErrorContains(t, validateAnalysis("too short"), "too short")
	assert.ErrorContains(t, validateAnalysis(strings.Repeat("x", maxAnalysisChars+1)), "too long")
	assert.ErrorContains(t, validateAnalysis(validBody()+" (p. 4)"), "citation")
}

func Test_Compose_AppendsSources(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return(validBody(), nil).Once()

	c := newTestComposer(completer)
	hits := []docstore.SearchHit{{PetitionType: "EB-1A Extraordinary Ability", PageNumber: 3, DecisionDate: "FEB032025"}}
	answer, err := c.Compose(context.Background(), "question", hits)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, strings.TrimSpace(validBody())))
	assert.True(t, strings.HasSuffix(answer, "Sources:\nEB-1A Extraordinary Ability (p. 3) - Feb 03, 2025"))
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func Test_Compose_RetriesInvalidAnalysis(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("way too short", nil).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return(validBody(), nil).Once()

	c := newTestComposer(completer)
	answer, err := c.Compose(context.Background(), "question", nil)

	require.NoError(t, err)
	assert.NotContains(t, answer, degradedNotice)
	assert.Contains(t, answer, "Sources:")
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func Test_Compose_DegradedAfterFailedRetry(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("still too short", nil)

	c := newTestComposer(completer)
	answer, err := c.Compose(context.Background(), "question", nil)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer, degradedNotice))
	assert.Contains(t, answer, "still too short")
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func Test_Compose_GenerationError(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

	c := newTestComposer(completer)
	_, err := c.Compose(context.Background(), "question", nil)

	assert.ErrorContains(t, err, "model unavailable")
}

func Test_Compose_StripsModelEmittedSources(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).
		Return(validBody()+"\n\nSources:\nmade-up citation", nil).Once()

	c := newTestComposer(completer)
	hits := []docstore.SearchHit{{SourceFile: "decision.pdf", PageNumber: 1}}
	answer, err := c.Compose(context.Background(), "question", hits)

	require.NoError(t, err)
	assert.NotContains(t, answer, "made-up citation")
	assert.True(t, strings.HasSuffix(answer, "Sources:\ndecision.pdf (p. 1)"))
}
