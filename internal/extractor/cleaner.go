package extractor

import (
	"regexp"
	"strings"
)

const bulletChars = "\u0095•‣⁃ㅤ⁌⁍∙○●◘◦☙❥❧⦾⦿▪■□·*-"

var (
	bulletRe          = regexp.MustCompile(`^[` + regexp.QuoteMeta(bulletChars) + `]`)
	dashRe            = regexp.MustCompile("[-–]")
	nbspNewlineRe     = regexp.MustCompile("[\u00a0\n]")
	repeatedSpacesRe  = regexp.MustCompile(`[ ]{2,}`)
	controlCharsRe    = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f�]")
	unicodeQuoteFixes = strings.NewReplacer(
		"\u0091", "‘",
		"\u0092", "’",
		"\u0093", "“",
		"\u0094", "”",
		"&apos;", "'",
		"â\u0080\u0099", "'",
		"â\u0080\u009c", "“",
		"â\u0080\u009d", "”",
		"â\u0080\u0098", "‘",
		"â\u0080\u0094", "—",
		"â\u0080\u0093", "–",
		"â\u0080¦", "…",
		"â\u0080™", "’",
		"â\u0080œ", "“",
		"â\u0080˜", "‘",
	)
)

// Clean normalizes one extracted element. The steps run in a fixed order:
// trailing punctuation, dashes, extra whitespace, bullets, then quote repair.
func Clean(text string) string {
	text = controlCharsRe.ReplaceAllString(text, " ")
	text = cleanTrailingPunctuation(text)
	text = cleanDashes(text)
	text = cleanExtraWhitespace(text)
	text = cleanBullets(text)
	text = strings.TrimSpace(text)
	return strings.TrimSpace(replaceUnicodeQuotes(text))
}

func cleanTrailingPunctuation(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), ".,:;")
}

func cleanDashes(text string) string {
	return strings.TrimSpace(dashRe.ReplaceAllString(text, " "))
}

func cleanExtraWhitespace(text string) string {
	text = strings.NewReplacer("\r\n", " ", "\r", " ", "\t", " ").Replace(text)
	text = nbspNewlineRe.ReplaceAllString(text, " ")
	text = repeatedSpacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func cleanBullets(text string) string {
	if !bulletRe.MatchString(text) {
		return text
	}
	loc := bulletRe.FindStringIndex(text)
	return strings.TrimSpace(text[loc[1]:])
}

func replaceUnicodeQuotes(text string) string {
	return unicodeQuoteFixes.Replace(text)
}

// cleanElements applies Clean to every element and drops the blank ones.
func cleanElements(elements []string) []string {
	chunks := make([]string, 0, len(elements))
	for _, el := range elements {
		if strings.TrimSpace(el) == "" {
			continue
		}
		if text := Clean(el); text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks
}
