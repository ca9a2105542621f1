package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/doc-chat/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(doc *entity.AnswerDocument) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)
	fmt.Fprintf(&buf, "**%s:** %s\n\n", questionTitle, doc.Question)
	if doc.Corpus != "" {
		fmt.Fprintf(&buf, "**%s:** `%s`\n\n", corpusLabel, doc.Corpus)
	}
	fmt.Fprintf(&buf, "%s\n\n## %s\n\n", doc.Answer.Text, sourcesTitle)

	if len(doc.Answer.Citations) == 0 {
		fmt.Fprintf(&buf, "%s\n", noSourcesLabel)
	}
	for i, c := range doc.Answer.Citations {
		fmt.Fprintf(&buf, "- %s\n", citationLine(i+1, c))
		if excerpt := citationExcerpt(c); excerpt != "" {
			fmt.Fprintf(&buf, "   > %s\n", excerpt)
		}
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
