package extractor

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

const minLegacyRunLen = 6

// Stream names of the compound file directory, not document text
var oleDirectoryNames = map[string]bool{
	"Root Entry":                 true,
	"WordDocument":               true,
	"SummaryInformation":         true,
	"DocumentSummaryInformation": true,
	"CompObj":                    true,
	"Workbook":                   true,
	"PowerPoint Document":        true,
	"Current User":               true,
	"Pictures":                   true,
}

// partitionLegacy recovers readable text from binary Office formats (doc, xls,
// ppt, msg) by collecting printable UTF-16LE and Windows-1252 runs.
func partitionLegacy(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	seen := make(map[string]bool)
	var elements []string
	add := func(runs []string) {
		for _, run := range runs {
			run = strings.TrimSpace(run)
			if len([]rune(run)) < minLegacyRunLen || seen[run] || oleDirectoryNames[run] || !hasLetters(run) {
				continue
			}
			seen[run] = true
			elements = append(elements, run)
		}
	}

	add(utf16Runs(data, 0))
	add(utf16Runs(data, 1))
	add(ansiRuns(data))

	return elements, nil
}

func utf16Runs(data []byte, offset int) []string {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if len(current) >= minLegacyRunLen {
			runs = append(runs, string(current))
		}
		current = current[:0]
	}

	for i := offset; i+1 < len(data); i += 2 {
		r := rune(binary.LittleEndian.Uint16(data[i : i+2]))
		switch {
		case r == '\r' || r == '\n' || r == 0x0b:
			flush()
		case (r >= 0x20 && r < 0x7f) || (r >= 0xa0 && r < 0x2500 && isLegacyText(r)):
			current = append(current, r)
		default:
			flush()
		}
	}
	flush()

	return runs
}

func ansiRuns(data []byte) []string {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if len(current) >= minLegacyRunLen {
			runs = append(runs, string(current))
		}
		current = current[:0]
	}

	for _, b := range data {
		if b == '\r' || b == '\n' {
			flush()
			continue
		}
		r := charmap.Windows1252.DecodeByte(b)
		if b >= 0x20 && isLegacyText(r) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()

	return runs
}

func isLegacyText(r rune) bool {
	return r != unicode.ReplacementChar && (unicode.IsPrint(r) || r == '\t')
}

// hasLetters rejects runs that are mostly binary noise
func hasLetters(s string) bool {
	letters, total := 0, 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			letters++
		}
	}
	return total > 0 && letters*2 >= total
}
