package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	scriptPattern    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	stylePattern     = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	bracketPattern   = regexp.MustCompile(`\[.*?\]`)
	timestampPattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
)

// Each pass peels one level of entity escaping, so "&amp;lt;b&amp;gt;" needs several.
const maxNormalizePasses = 64

// Normalize converts transcript markup into plain text: script and style blocks
// are removed, remaining tags stripped, entities decoded and whitespace collapsed.
// The result is a fixpoint, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(rawHTML string) string {
	text := rawHTML
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizePass(text)
		if next == text {
			return next
		}
		text = next
	}
	return text
}

func normalizePass(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	stripped := scriptPattern.ReplaceAllString(raw, "")
	stripped = stylePattern.ReplaceAllString(stripped, "")

	text := stripped
	if strings.ContainsAny(stripped, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(stripped))
		if err == nil {
			text = doc.Text()
		}
	}

	return collapseWhitespace(norm.NFC.String(text))
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// WordCount returns the number of whitespace-delimited tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharacterCount returns the number of Unicode code points in text.
func CharacterCount(text string) int {
	return utf8.RuneCountInString(text)
}

// CleanForExtraction drops bracketed stage directions and hh:mm:ss timestamps
// that carry no discussion content.
func CleanForExtraction(text string) string {
	text = bracketPattern.ReplaceAllString(text, "")
	text = timestampPattern.ReplaceAllString(text, "")
	return collapseWhitespace(text)
}
