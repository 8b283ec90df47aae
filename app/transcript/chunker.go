package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the largest chunk, in code points, sent to the extraction backend.
const DefaultChunkSize = 8000

// Split breaks text into chunks of at most maxChunkSize code points at sentence
// boundaries. Sentences are packed greedily and joined by a single space. A
// sentence longer than the limit is emitted whole as its own chunk.
// A non-positive maxChunkSize disables splitting.
func Split(text string, maxChunkSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if maxChunkSize <= 0 || utf8.RuneCountInString(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range splitSentences(text) {
		sentenceLen := utf8.RuneCountInString(sentence)

		if currentLen > 0 && currentLen+1+sentenceLen > maxChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences cuts text after '.', '!' or '?' when followed by whitespace.
// The whitespace between sentences is dropped; sentences are never empty.
func splitSentences(text string) []string {
	var sentences []string

	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			sentences = append(sentences, sentence)
		}

		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if start < len(runes) {
		if sentence := strings.TrimSpace(string(runes[start:])); sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
