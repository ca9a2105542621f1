package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/doc-chat/internal/entity"
)

const (
	baseTitle      = "Answer"
	questionTitle  = "Question"
	sourcesTitle   = "Sources"
	corpusLabel    = "Corpus"
	noSourcesLabel = "No sources were cited."
)

type Formatter interface {
	Format(doc *entity.AnswerDocument) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.ExportFormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.ExportFormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.ExportFormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format: %s", entity.ErrInvalidParameter, format)
	}
}

// citationLine renders one source as "[n] source (score 0.75)"
func citationLine(n int, c entity.Citation) string {
	source := c.Source
	if source == "" {
		source = "unknown source"
	}
	if c.Score > 0 {
		return fmt.Sprintf("[%d] %s (score %.2f)", n, source, c.Score)
	}
	return fmt.Sprintf("[%d] %s", n, source)
}

func citationExcerpt(c entity.Citation) string {
	return strings.Join(strings.Fields(c.Text), " ")
}
