package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// partitionMarkdown yields headings, paragraphs, list items, table rows and
// code blocks in document order
func partitionMarkdown(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	source := []byte(decodeText(data))
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	doc := md.Parser().Parse(text.NewReader(source))

	w := &markdownWalker{source: source}
	if err := ast.Walk(doc, w.walk); err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}

	return w.elements, nil
}

type markdownWalker struct {
	source   []byte
	elements []string
}

func (w *markdownWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	switch n.Kind() {
	case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
		w.elements = append(w.elements, w.inlineText(n))
		return ast.WalkSkipChildren, nil
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		w.elements = append(w.elements, w.lines(n))
		return ast.WalkSkipChildren, nil
	case extast.KindTableHeader, extast.KindTableRow:
		var cells []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if cell := strings.TrimSpace(w.inlineText(c)); cell != "" {
				cells = append(cells, cell)
			}
		}
		w.elements = append(w.elements, strings.Join(cells, " "))
		return ast.WalkSkipChildren, nil
	case ast.KindHTMLBlock:
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

// inlineText concatenates the text segments below n, soft breaks become spaces
func (w *markdownWalker) inlineText(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(w.source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			for gc := t.FirstChild(); gc != nil; gc = gc.NextSibling() {
				if txt, ok := gc.(*ast.Text); ok {
					b.Write(txt.Segment.Value(w.source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func (w *markdownWalker) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.source))
	}
	return b.String()
}
