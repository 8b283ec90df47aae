package discussion

import (
	"math"
	"strconv"
	"strings"

	"github.com/lysyi3m/steno-comb/app/extraction"
)

// FromPayload collects the discussion items of one payload. Items are looked
// up under "discussions", the type's own key, "bill_discussions" and finally
// the LangExtract-style "extractions" list.
func FromPayload(t extraction.Type, payload extraction.Payload, chunkIndex int) []Discussion {
	items := payloadItems(t, payload)

	discussions := make([]Discussion, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok || len(item) == 0 {
			continue
		}
		discussions = append(discussions, fromItem(item, chunkIndex))
	}
	return discussions
}

func payloadItems(t extraction.Type, payload extraction.Payload) []any {
	for _, key := range []string{"discussions", string(t), "bill_discussions", "extractions"} {
		if items, ok := payload[key].([]any); ok {
			return items
		}
	}
	return nil
}

func fromItem(item map[string]any, chunkIndex int) Discussion {
	fields := itemFields(item)

	d := Discussion{
		BillIdentifier:       stringField(fields, "bill_identifier", "bill_number"),
		ProposerName:         stringField(fields, "proposer_name", "proposer", "speaker_name"),
		AmendmentType:        ParseAmendmentType(stringField(fields, "amendment_type")),
		AmendmentDescription: stringField(fields, "amendment_description", "description", "extraction_text"),
		Status:               ParseStatus(stringField(fields, "status")),
		Votes:                voteResults(fields["vote_results"]),
		Confidence:           confidence(fields["confidence"]),
		RawContext:           stringField(fields, "raw_context", "extraction_text"),
		ChunkIndex:           chunkIndex,
		Raw:                  item,
	}

	if d.BillIdentifier == "" {
		switch stringField(fields, "extraction_class") {
		case "bill_number", "bill_identifier", "bill":
			d.BillIdentifier = stringField(fields, "extraction_text")
		}
	}

	return d
}

// itemFields overlays an item's own keys on its "attributes" object.
func itemFields(item map[string]any) map[string]any {
	attributes, ok := item["attributes"].(map[string]any)
	if !ok {
		return item
	}

	fields := make(map[string]any, len(item)+len(attributes))
	for k, v := range attributes {
		fields[k] = v
	}
	for k, v := range item {
		if v != nil {
			fields[k] = v
		}
	}
	return fields
}

func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func voteResults(value any) *VoteResults {
	votes, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	results := &VoteResults{
		For:       count(votes["for"]),
		Against:   count(votes["against"]),
		Abstained: count(votes["abstained"]),
	}
	if results.For == nil && results.Against == nil && results.Abstained == nil {
		return nil
	}
	return results
}

func count(value any) *int {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		n = float64(parsed)
	default:
		return nil
	}

	if n < 0 || n != math.Trunc(n) {
		return nil
	}
	result := int(n)
	return &result
}

// confidence keeps scores within [0,1] and drops anything else.
func confidence(value any) *float64 {
	var c float64
	switch v := value.(type) {
	case float64:
		c = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		c = parsed
	default:
		return nil
	}

	if math.IsNaN(c) || c < 0 || c > 1 {
		return nil
	}
	return &c
}
