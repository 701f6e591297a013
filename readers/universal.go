package readers

import (
	"fmt"
	"path/filepath"

	"code.sajari.com/docconv/v2"
	"github.com/huseyinardaarslan/LawRagBot/extract"
)

// UniversalFileReader handles the document formats docconv can convert.
// Conversion flattens the document, so everything lands on page 1.
type UniversalFileReader struct {
}

func (r *UniversalFileReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".docx" || ext == ".odt" || ext == ".xml"
}

func (r *UniversalFileReader) ReadPages(path string) ([]extract.Page, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return []extract.Page{{Number: 1, Text: res.Body}}, nil
}
