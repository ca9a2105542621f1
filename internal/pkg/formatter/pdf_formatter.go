package formatter

import (
	"bytes"
	"os"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName = "DejaVuSans"

	// Font next to the binary, as laid out in the container image.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"

	// Source-relative path, useful when running from repo root with `go run`.
	pdfFontSourcePath = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

// resolveFontPath tries to find the DejaVuSans font in
// runtime layout (next to the binary) or source layout.
func resolveFontPath() string {
	if _, err := os.Stat(pdfFontRuntimePath); err == nil {
		return pdfFontRuntimePath
	}
	if _, err := os.Stat(pdfFontSourcePath); err == nil {
		return pdfFontSourcePath
	}
	return ""
}

func (pf *PDFFormatter) Format(doc *entity.AnswerDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Core fonts only cover cp1252, text is translated when no UTF-8 font is available
	fontName := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath := resolveFontPath(); fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 20)
	pdf.Cell(0, 10, tr(baseTitle))
	pdf.Ln(14)

	pdf.SetFont(fontName, "B", 12)
	_, lineHeight := pdf.GetFontSize()
	pdf.MultiCell(0, lineHeight*1.5, tr(questionTitle+": "+doc.Question), "", "", false)
	if doc.Corpus != "" {
		pdf.SetFont(fontName, "", 9)
		_, small := pdf.GetFontSize()
		pdf.MultiCell(0, small*1.5, tr(corpusLabel+": "+doc.Corpus), "", "", false)
	}
	pdf.Ln(4)

	pdf.SetFont(fontName, "", 12)
	pdf.MultiCell(0, lineHeight*1.5, tr(doc.Answer.Text), "", "", false)
	pdf.Ln(6)

	pdf.SetFont(fontName, "B", 14)
	pdf.Cell(0, 8, tr(sourcesTitle))
	pdf.Ln(10)

	pdf.SetFont(fontName, "", 10)
	_, small := pdf.GetFontSize()
	if len(doc.Answer.Citations) == 0 {
		pdf.MultiCell(0, small*1.5, tr(noSourcesLabel), "", "", false)
	}
	for i, c := range doc.Answer.Citations {
		pdf.MultiCell(0, small*1.5, tr(citationLine(i+1, c)), "", "", false)
		if excerpt := citationExcerpt(c); excerpt != "" {
			pdf.SetX(pdf.GetX() + 6)
			pdf.MultiCell(0, small*1.5, tr(excerpt), "", "", false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (pf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (pf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
