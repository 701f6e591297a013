package readers

import (
	"fmt"
	"path/filepath"

	"github.com/huseyinardaarslan/LawRagBot/extract"
	"github.com/ledongthuc/pdf"
)

// PdfFileReader extracts text page by page so downstream chunks can be
// anchored to the page they came from.
type PdfFileReader struct {
}

func (r *PdfFileReader) CanRead(path string) bool {
	return filepath.Ext(path) == ".pdf"
}

func (r *PdfFileReader) ReadPages(path string) ([]extract.Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf document: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]extract.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		pages = append(pages, extract.Page{Number: i, Text: text})
	}

	return pages, nil
}
