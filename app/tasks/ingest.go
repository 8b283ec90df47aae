package tasks

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/parliament"
	"github.com/lysyi3m/steno-comb/app/transcript"
)

// Period is one archive month.
type Period struct {
	Year  int
	Month int
}

// RecentPeriods returns the last months periods ending with the month of now,
// newest first. months below 1 is treated as 1.
func RecentPeriods(now time.Time, months int) []Period {
	months = max(months, 1)

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	periods := make([]Period, 0, months)
	for i := range months {
		d := first.AddDate(0, -i, 0)
		periods = append(periods, Period{Year: d.Year(), Month: int(d.Month())})
	}
	return periods
}

type ScrapeRequest struct {
	CommitteeIDs []int64
	Periods      []Period
	Force        bool
}

// Ingester discovers transcripts in the archive and stores new or stale ones.
type Ingester struct {
	client      ArchiveClient
	transcripts database.TranscriptRepository
	workers     int
}

func NewIngester(client ArchiveClient, transcripts database.TranscriptRepository, workers int) *Ingester {
	return &Ingester{
		client:      client,
		transcripts: transcripts,
		workers:     max(workers, 1),
	}
}

// Run scans every (committee, period) pair. Failures are counted per
// transcript and never stop the batch.
func (i *Ingester) Run(ctx context.Context, req ScrapeRequest) *Report {
	report := NewReport()
	defer report.Finish()

	g := new(errgroup.Group)
	g.SetLimit(i.workers)

	var seenMu sync.Mutex
	seen := make(map[string]struct{})

scan:
	for _, committeeID := range req.CommitteeIDs {
		for _, period := range req.Periods {
			if ctx.Err() != nil {
				break scan
			}

			entries := i.client.ListTranscripts(ctx, committeeID, period.Year, period.Month)
			report.AddFound(len(entries))

			slog.Debug("Archive period listed",
				"committee_id", committeeID,
				"year", period.Year,
				"month", period.Month,
				"entries", len(entries))

			for _, entry := range entries {
				if ctx.Err() != nil {
					break scan
				}

				id := entry.ID.String()
				seenMu.Lock()
				_, duplicate := seen[id]
				seen[id] = struct{}{}
				seenMu.Unlock()
				if duplicate {
					report.Record(OutcomeSkipped, 0)
					continue
				}

				g.Go(func() error {
					outcome, err := i.ProcessEntry(ctx, committeeID, entry, req.Force)
					if err != nil {
						slog.Error("Failed to ingest transcript", "transcript_id", id, "committee_id", committeeID, "error", err)
						outcome = OutcomeFailed
					}
					report.Record(outcome, 0)
					return nil
				})
			}
		}
	}

	g.Wait()
	return report
}

// ProcessEntry runs one listing entry through the dedup gate and stores it.
func (i *Ingester) ProcessEntry(ctx context.Context, committeeID int64, entry parliament.ListingEntry, force bool) (Outcome, error) {
	id := entry.ID.String()
	if id == "" {
		slog.Warn("Listing entry without transcript id, skipping", "committee_id", committeeID)
		return OutcomeSkipped, nil
	}

	stored, err := i.transcripts.GetTranscript(id)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to look up transcript: %w", err)
	}

	decision := transcript.Decide(stored != nil, transcript.HasContent(stored), force)
	if decision == transcript.DecisionSkip {
		slog.Debug("Transcript already stored, skipping", "transcript_id", id)
		return OutcomeSkipped, nil
	}

	content, ok := i.client.FetchContent(ctx, id)
	if !ok {
		slog.Warn("Transcript content not available, skipping", "transcript_id", id, "committee_id", committeeID)
		return OutcomeSkipped, nil
	}

	listingDate := transcript.ParseDate(entry.Date)
	contentDate := transcript.ParseDate(content.Date)

	if decision == transcript.DecisionUpdate {
		stored.ContentHTML = content.HTML
		stored.Metadata = transcript.MergeMetadata(stored.Metadata, entry.Metadata, content.Metadata)
		if stored.TranscriptDate == nil {
			stored.TranscriptDate = cmp.Or(contentDate, listingDate)
		}
		transcript.Derive(stored, true)

		if err := i.transcripts.UpdateTranscriptContent(stored); err != nil {
			return OutcomeFailed, err
		}

		slog.Info("Transcript updated", "transcript_id", id, "committee_id", committeeID, "words", stored.WordCount)
		return OutcomeUpdated, nil
	}

	created := &database.Transcript{
		TranscriptID:   id,
		CommitteeID:    committeeID,
		Type:           cmp.Or(content.Type, entry.Label, transcript.UnknownType),
		TranscriptDate: cmp.Or(contentDate, listingDate),
		ContentHTML:    content.HTML,
		Metadata:       transcript.MergeMetadata(entry.Metadata, content.Metadata),
	}
	transcript.Derive(created, true)

	if err := i.transcripts.CreateTranscript(created); err != nil {
		return OutcomeFailed, err
	}

	slog.Info("Transcript created", "transcript_id", id, "committee_id", committeeID, "words", created.WordCount)
	return OutcomeCreated, nil
}
