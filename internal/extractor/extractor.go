package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Format is the document family a file is parsed as
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatPPTX     Format = "pptx"
	FormatLegacy   Format = "ole"
	FormatEmail    Format = "eml"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatText     Format = "txt"
	FormatImage    Format = "image"
)

// Mime types that identify a format by content alone
var mimeFormats = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXLSX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/msword":            FormatLegacy,
	"application/vnd.ms-excel":      FormatLegacy,
	"application/vnd.ms-powerpoint": FormatLegacy,
	"application/vnd.ms-outlook":    FormatLegacy,
	"message/rfc822":                FormatEmail,
	"image/png":                     FormatImage,
	"image/jpeg":                    FormatImage,
	"image/tiff":                    FormatImage,
	"image/bmp":                     FormatImage,
}

var extensionFormats = map[string]Format{
	"pdf":  FormatPDF,
	"docx": FormatDOCX,
	"xlsx": FormatXLSX,
	"pptx": FormatPPTX,
	"doc":  FormatLegacy,
	"xls":  FormatLegacy,
	"ppt":  FormatLegacy,
	"msg":  FormatLegacy,
	"eml":  FormatEmail,
	"md":   FormatMarkdown,
	"json": FormatJSON,
	"yaml": FormatYAML,
	"yml":  FormatYAML,
	"txt":  FormatText,
	"rst":  FormatText,
	"png":  FormatImage,
	"jpg":  FormatImage,
	"jpeg": FormatImage,
	"tiff": FormatImage,
	"bmp":  FormatImage,
}

// OCR transcribes the text visible in an image
type OCR interface {
	Transcribe(ctx context.Context, mimeType string, image []byte) (string, error)
}

type partitionFunc func(ctx context.Context, path string) ([]string, error)

// Extractor turns a document on disk into cleaned text chunks
type Extractor struct {
	ocr        OCR
	partitions map[Format]partitionFunc
	logger     *zap.Logger
}

func New(ocr OCR, logger *zap.Logger) *Extractor {
	e := &Extractor{
		ocr:    ocr,
		logger: logger,
	}

	e.partitions = map[Format]partitionFunc{
		FormatPDF:      partitionPDF,
		FormatDOCX:     partitionDOCX,
		FormatXLSX:     partitionXLSX,
		FormatPPTX:     partitionPPTX,
		FormatLegacy:   partitionLegacy,
		FormatEmail:    partitionEmail,
		FormatMarkdown: partitionMarkdown,
		FormatJSON:     partitionJSON,
		FormatYAML:     partitionYAML,
		FormatText:     partitionText,
		FormatImage:    e.partitionImage,
	}

	return e
}

// Extract returns one cleaned chunk per structural element of the document.
// A document that parses but has no text yields an empty slice and nil error.
func (e *Extractor) Extract(ctx context.Context, path string) ([]string, error) {
	ctx = logger.AddFields(ctx, zap.String("file", filepath.Base(path)))

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	partition, ok := e.partitions[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, format)
	}

	ctxzap.Debug(ctx, "Partitioning document", zap.String("format", string(format)))

	elements, err := partition(ctx, path)
	if err != nil {
		ctxzap.Error(ctx, "Failed to partition document",
			zap.String("format", string(format)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrExtractionFailed, format, err)
	}

	chunks := cleanElements(elements)

	ctxzap.Info(ctx, "Document extracted",
		zap.String("format", string(format)),
		zap.Int("elements", len(elements)),
		zap.Int("chunks", len(chunks)),
	)

	return chunks, nil
}

// DetectFormat sniffs the file content and falls back to the extension for
// text-like or container types that content alone cannot tell apart.
func DetectFormat(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: detect content type: %v", entity.ErrExtractionFailed, err)
	}

	for m := mtype; m != nil; m = m.Parent() {
		base, _, _ := strings.Cut(m.String(), ";")
		if format, ok := mimeFormats[base]; ok {
			return format, nil
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}

	if mtype.Is("application/json") {
		return FormatJSON, nil
	}
	if strings.HasPrefix(mtype.String(), "text/") {
		return FormatText, nil
	}

	return "", fmt.Errorf("%w: %s (%s)", entity.ErrUnsupportedFormat, ext, mtype.String())
}
