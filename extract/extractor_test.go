package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_Extract_RoundTrip(t *testing.T) {
	e := NewExtractor(testLogger(), 2000, 300)

	pages := []Page{{
		Number: 1,
		Text: "The petitioner seeks classification as an Outstanding Professor " +
			"at a research university. The director denied the petition.\n\n" +
			"ORDER: The appeal is dismissed.",
	}}

	chunks := e.Extract("FEB132025_02B2203.pdf", pages)
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, "EB-1B Outstanding Professor", chunk.PetitionType)
	assert.Equal(t, OutcomeDenied, chunk.DecisionOutcome)
	assert.Equal(t, "FEB132025", chunk.DecisionDate)
	assert.Equal(t, "FEB132025_02B2203.pdf", chunk.SourceFile)
	assert.Equal(t, 1.0, chunk.PageNumber)
	assert.Equal(t, 0, chunk.ChunkIndex)
	assert.NotEmpty(t, chunk.ID)
}

func Test_Extract_EmptyDocument(t *testing.T) {
	e := NewExtractor(testLogger(), 2000, 300)

	assert.Nil(t, e.Extract("empty.pdf", nil))
	assert.Nil(t, e.Extract("blank.pdf", []Page{{Number: 1, Text: "   \n  "}}))
}

func Test_Extract_ChunkIndexAndOffsets(t *testing.T) {
	e := NewExtractor(testLogger(), 80, 20)

	text := strings.Repeat("The record contains letters of support from experts in the field. ", 10)
	chunks := e.Extract("JAN012025_01B2203.pdf", []Page{{Number: 1, Text: text}})
	require.Greater(t, len(chunks), 1)

	fullText := "\n--- Page 1 ---\n" + text
	seen := make(map[string]struct{})
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, len(chunk.Text), chunk.EndChar-chunk.StartChar)
		assert.Equal(t, strings.Index(fullText, chunk.Text), chunk.StartChar)

		_, dup := seen[chunk.ID]
		assert.False(t, dup)
		seen[chunk.ID] = struct{}{}
	}
}

func Test_Extract_MetadataSharedAcrossChunks(t *testing.T) {
	e := NewExtractor(testLogger(), 60, 10)

	text := "Extraordinary Ability petition. " +
		strings.Repeat("Evidence of sustained national acclaim was submitted. ", 8) +
		"ORDER: The appeal is sustained."
	chunks := e.Extract("MAR102025_01B2203.pdf", []Page{{Number: 1, Text: text}})
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.Equal(t, "EB-1A Extraordinary Ability", chunk.PetitionType)
		assert.Equal(t, OutcomeApproved, chunk.DecisionOutcome)
		assert.Equal(t, "MAR102025", chunk.DecisionDate)
	}
}

func Test_AssignPage_StrictlyGreaterOverlapWins(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "alpha beta gamma"},
		{Number: 2, Text: "alpha beta gamma"},
	}

	// Identical overlap keeps the lowest-numbered page.
	assert.Equal(t, 1, assignPage("alpha beta", pages))

	pages[1].Text = "alpha beta gamma delta"
	assert.Equal(t, 2, assignPage("alpha beta gamma delta", pages))
}

func Test_AssignPage_DefaultsToFirstPage(t *testing.T) {
	pages := []Page{
		{Number: 3, Text: "nothing shared here"},
		{Number: 4, Text: "still nothing"},
	}

	assert.Equal(t, 1, assignPage("unrelated words entirely", pages))
}
