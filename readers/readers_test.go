package readers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PdfFileReader_CanRead(t *testing.T) {
	r := PdfFileReader{}
	assert.True(t, r.CanRead("some/file.pdf"))
	assert.False(t, r.CanRead("some/file.txt"))
}

func Test_TxtFileReader_CanRead(t *testing.T) {
	r := TxtFileReader{}
	assert.True(t, r.CanRead("some/file.txt"))
	assert.False(t, r.CanRead("some/file.pdf"))
}

func Test_UniversalFileReader_CanRead(t *testing.T) {
	r := UniversalFileReader{}
	assert.True(t, r.CanRead("some/file.docx"))
	assert.True(t, r.CanRead("some/file.odt"))
	assert.True(t, r.CanRead("some/file.xml"))
	assert.False(t, r.CanRead("some/file.pdf"))
}

func Test_TxtFileReader_ReadPages(t *testing.T) {
	r := TxtFileReader{}

	pages, err := r.ReadPages("testdata/test.txt")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "hello world", pages[0].Text)
}
