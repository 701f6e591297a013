package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Page is one page of a source document as produced by the PDF text
// extraction layer.
type Page struct {
	Number int
	Text   string
}

// Chunk is the atomic unit of retrievable text: a bounded span of a
// decision plus its provenance metadata. Chunks are created once per
// ingestion run and never mutated afterwards.
type Chunk struct {
	ID         string
	Text       string
	SourceFile string
	// PageNumber is a whole page stored as a float for payload
	// compatibility with the vector store.
	PageNumber      float64
	ChunkIndex      int
	StartChar       int
	EndChar         int
	DecisionDate    string
	PetitionType    string
	DecisionOutcome string
}

// Extractor turns a document's page texts into metadata-tagged chunks.
type Extractor struct {
	log     *slog.Logger
	chunker *Chunker
}

func NewExtractor(log *slog.Logger, chunkSize, chunkOverlap int) *Extractor {
	return &Extractor{
		log:     log,
		chunker: NewChunker(chunkSize, chunkOverlap),
	}
}

// Extract concatenates the pages in order, classifies document-level
// metadata once, splits the text into overlapping chunks and assigns
// each chunk the page it overlaps most with. An empty document yields
// no chunks and is logged as a skip, not an error.
func (e *Extractor) Extract(filename string, pages []Page) []Chunk {
	var sb strings.Builder
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n--- Page %d ---\n", p.Number))
		sb.WriteString(p.Text)
	}
	fullText := sb.String()

	if fullText == "" {
		e.log.Warn("no extractable text, skipping document", "file", filename)
		return nil
	}

	meta := Classify(filename, fullText)

	var chunks []Chunk
	for _, split := range e.chunker.Split(fullText) {
		text := strings.TrimSpace(split)
		if text == "" {
			continue
		}

		// First occurrence only; recurring chunk text points at its
		// earliest span.
		start := strings.Index(fullText, text)

		chunks = append(chunks, Chunk{
			ID:              uuid.NewString(),
			Text:            text,
			SourceFile:      filename,
			PageNumber:      float64(assignPage(text, pages)),
			ChunkIndex:      len(chunks),
			StartChar:       start,
			EndChar:         start + len(text),
			DecisionDate:    meta.DecisionDate,
			PetitionType:    meta.PetitionType,
			DecisionOutcome: meta.DecisionOutcome,
		})
	}

	e.log.Info("document extracted",
		"file", filename,
		"pages", len(pages),
		"chunks", len(chunks),
		"petition_type", meta.PetitionType,
		"decision_outcome", meta.DecisionOutcome)

	return chunks
}

// assignPage picks the page whose text shares the most words with the
// chunk. A later page only wins on strictly greater overlap, so equal
// scores keep the earliest page. Defaults to page 1.
func assignPage(chunk string, pages []Page) int {
	chunkWords := wordSet(chunk)

	best := 1
	maxOverlap := 0
	for _, p := range pages {
		overlap := 0
		for w := range wordSet(p.Text) {
			if _, ok := chunkWords[w]; ok {
				overlap++
			}
		}

		if overlap > maxOverlap {
			maxOverlap = overlap
			best = p.Number
		}
	}

	return best
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}
