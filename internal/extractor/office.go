package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/presentation"
	"github.com/unidoc/unioffice/spreadsheet"
)

// partitionDOCX yields one element per paragraph, table cell paragraphs included
func partitionDOCX(ctx context.Context, path string) ([]string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	var elements []string
	for _, para := range doc.Paragraphs() {
		var b strings.Builder
		for _, run := range para.Runs() {
			b.WriteString(run.Text())
		}
		elements = append(elements, b.String())
	}

	return elements, nil
}

// partitionXLSX yields one element per non-empty row, cells joined by a space
func partitionXLSX(ctx context.Context, path string) ([]string, error) {
	wb, err := spreadsheet.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	var elements []string
	for _, sheet := range wb.Sheets() {
		for _, row := range sheet.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				if v := strings.TrimSpace(cell.GetFormattedValue()); v != "" {
					cells = append(cells, v)
				}
			}
			if len(cells) > 0 {
				elements = append(elements, strings.Join(cells, " "))
			}
		}
	}

	return elements, nil
}

// partitionPPTX yields one element per text item of every slide
func partitionPPTX(ctx context.Context, path string) ([]string, error) {
	ppt, err := presentation.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}

	var elements []string
	for _, slide := range ppt.Slides() {
		text := slide.ExtractText()
		if text == nil {
			continue
		}
		for _, item := range text.Items {
			elements = append(elements, item.Text)
		}
	}

	return elements, nil
}
