package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/discussion"
	"github.com/lysyi3m/steno-comb/app/extraction"
	"github.com/lysyi3m/steno-comb/app/transcript"
)

type ExtractRequest struct {
	Filter database.TranscriptFilter
	Type   extraction.Type
	Force  bool
	DryRun bool
}

// Extractor runs stored transcripts through chunking, the extraction invoker
// and the record writer.
type Extractor struct {
	transcripts database.TranscriptRepository
	invoker     *extraction.Invoker
	writer      *discussion.Writer
	profiles    *extraction.Profiles
	workers     int
}

func NewExtractor(transcripts database.TranscriptRepository, invoker *extraction.Invoker, writer *discussion.Writer, profiles *extraction.Profiles, workers int) *Extractor {
	return &Extractor{
		transcripts: transcripts,
		invoker:     invoker,
		writer:      writer,
		profiles:    profiles,
		workers:     max(workers, 1),
	}
}

// Candidates lists the transcripts a request would process.
func (e *Extractor) Candidates(req ExtractRequest) ([]database.Transcript, error) {
	filter := req.Filter
	filter.ExtractionType = string(req.Type)
	filter.IncludeExtracted = filter.IncludeExtracted || req.Force

	candidates, err := e.transcripts.GetTranscriptsForExtraction(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcripts for extraction: %w", err)
	}
	return candidates, nil
}

func (e *Extractor) Run(ctx context.Context, req ExtractRequest) (*Report, error) {
	report := NewReport()
	defer report.Finish()

	candidates, err := e.Candidates(req)
	if err != nil {
		return nil, err
	}
	report.AddFound(len(candidates))

	if req.DryRun {
		for _, t := range candidates {
			slog.Info("Would extract transcript",
				"transcript_id", t.TranscriptID,
				"committee_id", t.CommitteeID,
				"date", formatDate(t.TranscriptDate),
				"words", t.WordCount,
				"type", string(req.Type))
			report.Record(OutcomeSkipped, 0)
		}
		return report, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	for _, t := range candidates {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			written, err := e.ExtractTranscript(ctx, &t, req.Type, req.Force)
			if err != nil {
				slog.Error("Failed to extract transcript", "transcript_id", t.TranscriptID, "committee_id", t.CommitteeID, "error", err)
				report.Record(OutcomeFailed, 0)
				return nil
			}
			report.Record(OutcomeExtracted, written)
			return nil
		})
	}

	g.Wait()
	return report, ctx.Err()
}

// ExtractTranscript extracts every chunk of one transcript and persists the
// discussions found. Any fatal chunk abandons the transcript before anything
// is written.
func (e *Extractor) ExtractTranscript(ctx context.Context, t *database.Transcript, extractionType extraction.Type, force bool) (int, error) {
	text := transcript.CleanForExtraction(t.ContentText)
	chunks := transcript.Split(text, e.profiles.ChunkSize)

	batches := make(map[extraction.Type][]discussion.Discussion)
	for _, typ := range e.profiles.Expand(extractionType) {
		batches[typ] = nil
	}

	for index, chunk := range chunks {
		ec := extraction.Context{
			TranscriptID: t.TranscriptID,
			CommitteeID:  t.CommitteeID,
			ChunkIndex:   index,
			ChunkCount:   len(chunks),
		}

		slog.Debug("Extracting chunk", "transcript_id", t.TranscriptID, "chunk", index, "chunks", len(chunks), "chars", len([]rune(chunk)))

		result, err := e.invoker.Extract(ctx, chunk, extractionType, ec)
		if err != nil {
			return 0, fmt.Errorf("chunk %d/%d: %w", index+1, len(chunks), err)
		}

		for _, batch := range result.Batches() {
			batches[batch.Type] = append(batches[batch.Type], discussion.FromPayload(batch.Type, batch.Payload, index)...)
		}
	}

	written, err := e.writer.PersistAll(ctx, t, batches, force)
	if err != nil {
		return 0, err
	}

	slog.Info("Transcript extracted",
		"transcript_id", t.TranscriptID,
		"committee_id", t.CommitteeID,
		"type", string(extractionType),
		"chunks", len(chunks),
		"discussions", written)

	return written, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
