package formatter

import (
	"bytes"
	"os"
	"testing"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
)

func sampleAnswer() *entity.AnswerDocument {
	return &entity.AnswerDocument{
		Question: "How did revenue change?",
		Corpus:   "projects/p/locations/us-central1/ragCorpora/42",
		Answer: entity.QueryResult{
			Text: "Revenue grew by 12 percent.",
			Citations: []entity.Citation{
				{Text: "Revenue grew\nby 12 percent", Source: "gs://b/rag-documents/1.txt", Score: 0.75},
				{Text: "", Source: ""},
			},
		},
	}
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		format      entity.ExportFormat
		contentType string
		extension   string
	}{
		{entity.ExportFormatMarkdown, "text/markdown; charset=utf-8", ".md"},
		{entity.ExportFormatPDF, "application/pdf", ".pdf"},
		{entity.ExportFormatDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := f.Create(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, got.ContentType())
			assert.Equal(t, tt.extension, got.FileExtension())
		})
	}

	_, err := f.Create("html")
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdownFormatter().Format(sampleAnswer())
	require.NoError(t, err)

	want := "# Answer\n\n" +
		"**Question:** How did revenue change?\n\n" +
		"**Corpus:** `projects/p/locations/us-central1/ragCorpora/42`\n\n" +
		"Revenue grew by 12 percent.\n\n" +
		"## Sources\n\n" +
		"- [1] gs://b/rag-documents/1.txt (score 0.75)\n" +
		"   > Revenue grew by 12 percent\n" +
		"- [2] unknown source\n"
	assert.Equal(t, want, string(out))
}

func TestMarkdownFormatter_NoCitations(t *testing.T) {
	doc := &entity.AnswerDocument{Question: "q", Answer: entity.QueryResult{Text: "a"}}
	out, err := NewMarkdownFormatter().Format(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "No sources were cited.")
	assert.NotContains(t, string(out), "Corpus")
}

func TestPDFFormatter(t *testing.T) {
	doc := sampleAnswer()
	doc.Answer.Text = "Umsatz stieg um 12 % – laut Bericht."

	out, err := NewPDFFormatter().Format(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "%%EOF")
}

func TestDOCXFormatter(t *testing.T) {
	key := os.Getenv("UNIDOC_LICENSE_API_KEY")
	if key == "" {
		t.Skip("UNIDOC_LICENSE_API_KEY not set")
	}
	require.NoError(t, license.SetMeteredKey(key))

	out, err := NewDOCXFormatter().Format(sampleAnswer())
	require.NoError(t, err)

	doc, err := document.Read(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	defer doc.Close()

	var texts []string
	for _, p := range doc.Paragraphs() {
		var s string
		for _, r := range p.Runs() {
			s += r.Text()
		}
		if s != "" {
			texts = append(texts, s)
		}
	}
	assert.Contains(t, texts, "Answer")
	assert.Contains(t, texts, "Question: How did revenue change?")
	assert.Contains(t, texts, "Revenue grew by 12 percent.")
	assert.Contains(t, texts, "[1] gs://b/rag-documents/1.txt (score 0.75)")
}
