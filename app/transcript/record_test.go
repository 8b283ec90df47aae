package transcript

import (
	"testing"
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2024-05-10", "2024-05-10"},
		{"2024-05-10 14:30:00", "2024-05-10"},
		{"10.05.2024", "2024-05-10"},
		{"2024-05-10T14:30:00+03:00", "2024-05-10"},
	}

	for _, tt := range tests {
		got := ParseDate(tt.input)
		if got == nil {
			t.Errorf("Expected %s for '%s', got nil", tt.expected, tt.input)
			continue
		}
		if got.Format("2006-01-02") != tt.expected {
			t.Errorf("Expected %s for '%s', got %s", tt.expected, tt.input, got.Format("2006-01-02"))
		}
	}

	if ParseDate("") != nil {
		t.Error("Expected nil for empty date")
	}
	if ParseDate("не е дата") != nil {
		t.Error("Expected nil for unparseable date")
	}
}

func TestMergeMetadata(t *testing.T) {
	existing := map[string]any{"t_label": "стар", "note": "пази"}
	listing := map[string]any{"t_label": "Пълен протокол", "t_time": "10:00"}
	content := map[string]any{"steno_id": "77"}

	merged := MergeMetadata(existing, listing, content)

	if merged["note"] != "пази" {
		t.Error("Expected existing key to be preserved")
	}
	if merged["t_label"] != "Пълен протокол" {
		t.Errorf("Expected listing to overwrite t_label, got %v", merged["t_label"])
	}
	if merged["steno_id"] != "77" || merged["t_time"] != "10:00" {
		t.Errorf("Expected new keys to be added, got %v", merged)
	}
	if existing["t_label"] != "стар" {
		t.Error("Expected input maps to be left untouched")
	}
}

func TestDerive(t *testing.T) {
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	tr := &database.Transcript{
		TranscriptDate: &date,
		ContentHTML:    "<p>Обсъждане на <b>ПЗ №123</b>...</p>",
	}

	Derive(tr, false)

	if tr.ContentText != "Обсъждане на ПЗ №123..." {
		t.Errorf("Expected derived text, got '%s'", tr.ContentText)
	}
	if tr.Year != 2024 || tr.Month != 5 {
		t.Errorf("Expected 2024/5, got %d/%d", tr.Year, tr.Month)
	}
	if tr.WordCount != 4 || tr.CharacterCount != 23 {
		t.Errorf("Expected 4 words and 23 characters, got %d and %d", tr.WordCount, tr.CharacterCount)
	}

	tr.ContentHTML = "<p>Нов текст</p>"
	Derive(tr, false)
	if tr.ContentText != "Обсъждане на ПЗ №123..." {
		t.Error("Expected existing text to be kept when content is unchanged")
	}

	Derive(tr, true)
	if tr.ContentText != "Нов текст" || tr.WordCount != 2 {
		t.Errorf("Expected recomputed text, got '%s' (%d words)", tr.ContentText, tr.WordCount)
	}
}

func TestDeriveEmptyContent(t *testing.T) {
	tr := &database.Transcript{WordCount: 10, CharacterCount: 50}

	Derive(tr, true)

	if tr.WordCount != 0 || tr.CharacterCount != 0 {
		t.Errorf("Expected zero counts for empty content, got %d and %d", tr.WordCount, tr.CharacterCount)
	}
	if HasContent(tr) {
		t.Error("Expected HasContent to be false")
	}
	if HasContent(nil) {
		t.Error("Expected HasContent(nil) to be false")
	}
}
