package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const htmlBlockSelector = "p, h1, h2, h3, h4, h5, h6, li, td, th, pre, blockquote"

// partitionEmail yields the subject followed by the paragraphs of every inline
// text part. Attachments are skipped.
func partitionEmail(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	mr, err := mail.CreateReader(f)
	if err != nil {
		return nil, fmt.Errorf("create mail reader: %w", err)
	}
	defer mr.Close()

	var elements []string
	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		elements = append(elements, subject)
	}

	var htmlParts []string
	sawPlain := false
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read next part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("read part body: %w", err)
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			sawPlain = true
			elements = append(elements, splitParagraphs(string(body))...)
		case strings.HasPrefix(contentType, "text/html"):
			htmlParts = append(htmlParts, string(body))
		}
	}

	// HTML alternatives duplicate the plain body, use them only when it is missing
	if !sawPlain {
		for _, part := range htmlParts {
			blocks, err := htmlBlocks(part)
			if err != nil {
				return nil, err
			}
			elements = append(elements, blocks...)
		}
	}

	return elements, nil
}

// htmlBlocks renders an HTML document to text, one element per innermost block
func htmlBlocks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, head").Remove()

	var blocks []string
	doc.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(htmlBlockSelector).Length() > 0 {
			return
		}
		blocks = append(blocks, s.Text())
	})

	if len(blocks) == 0 {
		blocks = splitParagraphs(doc.Find("body").Text())
	}

	return blocks, nil
}
