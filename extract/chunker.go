package extract

import "strings"

// Separator priority for recursive splitting: paragraphs, lines,
// sentence ends, words, then a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split breaks text into overlapping chunks of at most chunkSize
// characters. Separators are kept attached to the piece that follows
// them, so every produced chunk is a substring of the input (modulo
// whitespace trimming).
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return windowChunks(text, c.chunkSize, c.chunkOverlap)
	}

	var final []string
	var good []string
	for _, piece := range splitKeep(text, sep) {
		if len(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}

		// Piece too large for this separator, recurse with finer ones.
		final = append(final, c.split(piece, rest)...)
	}

	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}

	return final
}

// merge greedily combines consecutive pieces into chunks of at most
// chunkSize characters, carrying at least chunkOverlap characters of
// tail pieces into the next chunk when a chunk is emitted.
func (c *Chunker) merge(pieces []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, p := range pieces {
		if total+len(p) > c.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}

			for total > c.chunkOverlap || (total+len(p) > c.chunkSize && total > 0) {
				total -= len(current[0])
				current = current[1:]
			}
		}

		current = append(current, p)
		total += len(p)
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

// splitKeep splits text by sep, prepending the separator to each piece
// after the first so the concatenation of pieces reproduces text.
func splitKeep(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// windowChunks is the last-resort hard cut: fixed windows of size
// characters advancing by size-overlap.
func windowChunks(text string, size, overlap int) []string {
	l := len(text)
	if l == 0 {
		return []string{}
	}

	step := size - overlap
	pos := 0
	res := make([]string, 0, l/step+1)

	for {
		end := min(pos+size, l)
		res = append(res, strings.TrimSpace(text[pos:end]))
		if end >= l {
			break
		}

		pos += step
	}

	return res
}
