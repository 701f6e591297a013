package readers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/huseyinardaarslan/LawRagBot/extract"
)

type TxtFileReader struct{}

func (r *TxtFileReader) CanRead(path string) bool {
	return filepath.Ext(path) == ".txt"
}

// ReadPages returns the whole file as a single page; plain text carries
// no page structure.
func (r *TxtFileReader) ReadPages(path string) ([]extract.Page, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	return []extract.Page{{Number: 1, Text: string(buf)}}, nil
}
