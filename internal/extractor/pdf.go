package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pageNumberRe = regexp.MustCompile(`page_(\d+)`)

// partitionPDF yields one element per text object (BT ... ET) of every page
func partitionPDF(ctx context.Context, path string) ([]string, error) {
	outDir, err := os.MkdirTemp("", "pdf-content-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract pdf content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read extracted content: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return pageNumber(files[i]) < pageNumber(files[j])
	})

	var elements []string
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return nil, fmt.Errorf("read page content %s: %w", name, err)
		}
		elements = append(elements, textObjects(content)...)
	}

	return elements, nil
}

func pageNumber(name string) int {
	m := pageNumberRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// textObjects scans a decoded page content stream and returns the text shown
// inside each BT/ET pair. Line moves within an object become spaces.
func textObjects(stream []byte) []string {
	var (
		objects []string
		current strings.Builder
		inText  bool
		operand []string
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			objects = append(objects, s)
		}
		current.Reset()
	}

	sc := &contentScanner{data: stream}
	for {
		tok, kind, ok := sc.next()
		if !ok {
			break
		}

		switch kind {
		case tokenString:
			operand = append(operand, tok)
			continue
		case tokenArrayGap:
			operand = append(operand, " ")
			continue
		}

		switch tok {
		case "BT":
			inText = true
			current.Reset()
		case "ET":
			if inText {
				flush()
			}
			inText = false
		case "Tj", "TJ":
			if inText {
				current.WriteString(strings.Join(operand, ""))
			}
		case "'", "\"":
			if inText {
				current.WriteString(" ")
				current.WriteString(strings.Join(operand, ""))
			}
		case "Td", "TD", "T*", "Tm":
			if inText && current.Len() > 0 {
				current.WriteString(" ")
			}
		}
		operand = operand[:0]
	}

	return objects
}

type tokenKind int

const (
	tokenOperator tokenKind = iota
	tokenString
	tokenArrayGap
)

// contentScanner is a minimal tokenizer for PDF content streams. It understands
// literal and hex strings, TJ arrays and operators, and skips everything else.
type contentScanner struct {
	data    []byte
	pos     int
	inArray bool
}

func (s *contentScanner) next() (string, tokenKind, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isPDFSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			return s.literalString(), tokenString, true
		case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
			s.pos += 2
		case c == '>' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '>':
			s.pos += 2
		case c == '<':
			return s.hexString(), tokenString, true
		case c == '[':
			s.inArray = true
			s.pos++
		case c == ']':
			s.inArray = false
			s.pos++
		case c == '/':
			s.pos++
			s.skipRegular()
		case isNumberStart(c):
			start := s.pos
			s.skipRegular()
			if s.inArray {
				// Large negative kerning inside TJ is a word gap
				if v, err := strconv.ParseFloat(string(s.data[start:s.pos]), 64); err == nil && v < -200 {
					return " ", tokenArrayGap, true
				}
			}
		default:
			start := s.pos
			s.skipRegular()
			if s.pos == start {
				s.pos++
				continue
			}
			return string(s.data[start:s.pos]), tokenOperator, true
		}
	}
	return "", tokenOperator, false
}

func (s *contentScanner) skipRegular() {
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
}

func (s *contentScanner) literalString() string {
	var b strings.Builder
	depth := 0
	s.pos++ // opening paren

	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++

		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return b.String()
			}
			esc := s.data[s.pos]
			s.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						val = val*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					writeLatin1(&b, byte(val))
				} else {
					b.WriteByte(esc)
				}
			}
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			if depth == 0 {
				return b.String()
			}
			depth--
			b.WriteByte(c)
		default:
			writeLatin1(&b, c)
		}
	}

	return b.String()
}

func (s *contentScanner) hexString() string {
	s.pos++ // opening angle bracket
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; isHexDigit(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++ // closing angle bracket

	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	var b strings.Builder
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		// Two-byte glyph ids without a ToUnicode map are not text
		if v >= 0x20 {
			writeLatin1(&b, byte(v))
		}
	}
	return b.String()
}

// writeLatin1 maps a single-byte font code onto its Latin-1 rune
func writeLatin1(b *strings.Builder, c byte) {
	if c < 0x80 {
		b.WriteByte(c)
		return
	}
	b.WriteRune(rune(c))
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumberStart(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
