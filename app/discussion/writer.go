package discussion

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/extraction"
)

// OptionsFunc reports the backend options used for an extraction type.
type OptionsFunc func(t extraction.Type) map[string]any

type Writer struct {
	discussions database.DiscussionRepository
	matcher     *Matcher
	model       string
	options     OptionsFunc
	now         func() time.Time
}

func NewWriter(discussions database.DiscussionRepository, matcher *Matcher, model string, options OptionsFunc) *Writer {
	if options == nil {
		options = func(extraction.Type) map[string]any { return map[string]any{} }
	}

	return &Writer{
		discussions: discussions,
		matcher:     matcher,
		model:       model,
		options:     options,
		now:         time.Now,
	}
}

func (w *Writer) Persist(ctx context.Context, transcript *database.Transcript, extractionType extraction.Type, discussions []Discussion, force bool) (int, error) {
	return w.PersistAll(ctx, transcript, map[extraction.Type][]Discussion{extractionType: discussions}, force)
}

// PersistAll writes the discussions of every type in one transaction. With
// force, existing rows of each listed type are replaced, even when the new list
// is empty.
func (w *Writer) PersistAll(ctx context.Context, transcript *database.Transcript, batches map[extraction.Type][]Discussion, force bool) (int, error) {
	if transcript == nil {
		return 0, fmt.Errorf("transcript is nil")
	}

	types := make([]string, 0, len(batches))
	for t := range batches {
		types = append(types, string(t))
	}
	slices.Sort(types)

	analyzedAt := w.now().UTC().Format(time.RFC3339)

	// Bill lookups run before the write transaction opens.
	var records []database.DiscussionRecord
	linked := 0
	for _, typ := range types {
		t := extraction.Type(typ)
		for _, d := range batches[t] {
			billID, err := w.matcher.Match(ctx, d.BillIdentifier)
			if err != nil {
				return 0, err
			}
			if billID != nil {
				linked++
			}
			records = append(records, w.record(transcript, t, d, billID, analyzedAt))
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	written, err := w.discussions.SaveDiscussions(transcript.ID, types, records, force)
	if err != nil {
		return 0, fmt.Errorf("failed to persist discussions for transcript %s: %w", transcript.TranscriptID, err)
	}

	slog.Debug("Discussions persisted",
		"transcript_id", transcript.TranscriptID,
		"types", types,
		"written", written,
		"linked", linked,
		"replaced", force)

	return written, nil
}

func (w *Writer) record(transcript *database.Transcript, t extraction.Type, d Discussion, billID *int64, analyzedAt string) database.DiscussionRecord {
	var transcriptDate any
	if transcript.TranscriptDate != nil {
		transcriptDate = transcript.TranscriptDate.Format("2006-01-02")
	}

	record := database.DiscussionRecord{
		TranscriptID:         transcript.ID,
		BillID:               billID,
		ExtractionType:       string(t),
		BillIdentifier:       d.BillIdentifier,
		ProposerName:         d.ProposerName,
		AmendmentType:        string(cmp.Or(d.AmendmentType, AmendmentUnknown)),
		AmendmentDescription: d.AmendmentDescription,
		Status:               string(cmp.Or(d.Status, StatusPending)),
		Confidence:           d.Confidence,
		RawContext:           d.RawContext,
		Metadata: map[string]any{
			"extractor_version":  extraction.ExtractorVersion,
			"model":              w.model,
			"extraction_options": w.options(t),
			"analyzed_at":        analyzedAt,
			"transcript_date":    transcriptDate,
			"chunk_index":        d.ChunkIndex,
			"raw":                d.Raw,
		},
	}

	if d.Votes != nil {
		record.VoteFor = d.Votes.For
		record.VoteAgainst = d.Votes.Against
		record.VoteAbstained = d.Votes.Abstained
	}

	return record
}
