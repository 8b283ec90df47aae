package transcript

import (
	"maps"
	"strings"
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
)

const UnknownType = "Unknown"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"2.1.2006",
}

// ParseDate accepts the date formats seen in archive responses. Unparseable
// or empty values yield nil.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}

	return nil
}

// MergeMetadata overlays layers left to right onto a copy of the first. Keys
// from later layers win; earlier keys survive unless overwritten.
func MergeMetadata(layers ...map[string]any) map[string]any {
	merged := make(map[string]any)
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}
	return merged
}

// HasContent reports whether a stored transcript already carries markup.
func HasContent(t *database.Transcript) bool {
	return t != nil && strings.TrimSpace(t.ContentHTML) != ""
}

// Derive refreshes the fields computed from date and content. contentChanged
// forces content_text to be rebuilt from content_html.
func Derive(t *database.Transcript, contentChanged bool) {
	if t.TranscriptDate != nil {
		t.Year = t.TranscriptDate.Year()
		t.Month = int(t.TranscriptDate.Month())
	}

	if t.ContentHTML != "" && (contentChanged || t.ContentText == "") {
		t.ContentText = Normalize(t.ContentHTML)
	}

	t.WordCount = WordCount(t.ContentText)
	t.CharacterCount = CharacterCount(t.ContentText)
}
