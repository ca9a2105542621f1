package entity

import "fmt"

type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "md"
	ExportFormatPDF      ExportFormat = "pdf"
	ExportFormatDOCX     ExportFormat = "docx"
)

func (f ExportFormat) Validate() error {
	switch f {
	case ExportFormatMarkdown, ExportFormatPDF, ExportFormatDOCX:
		return nil
	default:
		return fmt.Errorf("%w: unknown export format %q", ErrInvalidParameter, string(f))
	}
}

// ExportRequest asks for a grounded answer rendered as a downloadable document.
type ExportRequest struct {
	QueryRequest
	Format ExportFormat `json:"format" validate:"required"`
}

// AnswerDocument is a grounded answer together with what it was asked of.
type AnswerDocument struct {
	Question string
	Corpus   string
	Answer   QueryResult
}

// ExportedFile is a rendered document ready to be sent to the client.
type ExportedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
