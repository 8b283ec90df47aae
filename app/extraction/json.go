package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanModelJSON strips markdown fences and any prose around the outermost
// JSON object or array the model returned.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = strings.TrimSpace(s[start : end+1])
	}

	return s
}

// decodePayload parses a backend response into a Payload. A top-level array
// is wrapped under "extractions".
func decodePayload(raw string) (Payload, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var parsed any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch v := parsed.(type) {
	case map[string]any:
		return Payload(v), nil
	case []any:
		return Payload{"extractions": v}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected JSON %T", ErrMalformedResponse, parsed)
	}
}
