package formatter

import (
	"bytes"
	"strings"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(doc *entity.AnswerDocument) ([]byte, error) {
	out := document.New()
	defer out.Close()

	heading(out, "Heading1", baseTitle)

	q := out.AddParagraph()
	label := q.AddRun()
	label.Properties().SetBold(true)
	label.AddText(questionTitle + ": ")
	q.AddRun().AddText(doc.Question)

	if doc.Corpus != "" {
		c := out.AddParagraph()
		run := c.AddRun()
		run.Properties().SetItalic(true)
		run.AddText(corpusLabel + ": " + doc.Corpus)
	}

	out.AddParagraph()

	// One paragraph per answer paragraph, Word does not honour embedded newlines
	for _, para := range strings.Split(doc.Answer.Text, "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		out.AddParagraph().AddRun().AddText(para)
	}

	heading(out, "Heading2", sourcesTitle)

	if len(doc.Answer.Citations) == 0 {
		out.AddParagraph().AddRun().AddText(noSourcesLabel)
	}
	for i, c := range doc.Answer.Citations {
		src := out.AddParagraph().AddRun()
		src.Properties().SetBold(true)
		src.AddText(citationLine(i+1, c))

		if excerpt := citationExcerpt(c); excerpt != "" {
			ex := out.AddParagraph().AddRun()
			ex.Properties().SetItalic(true)
			ex.AddText(excerpt)
		}
	}

	var buf bytes.Buffer
	if err := out.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func heading(doc *document.Document, style, text string) {
	p := doc.AddParagraph()
	p.SetStyle(style)
	p.AddRun().AddText(text)
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
