package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
)

type ScrapeTranscriptsTask struct {
	Task
	ingester   *Ingester
	committees database.CommitteeRepository
	months     int
	next       TaskInterface
}

// NewScrapeTranscriptsTask scans the last months for every stored committee.
// next, if set, is queued after a successful scan.
func NewScrapeTranscriptsTask(ingester *Ingester, committees database.CommitteeRepository, months int, next TaskInterface) *ScrapeTranscriptsTask {
	return &ScrapeTranscriptsTask{
		Task:       NewTask(TaskTypeScrapeTranscripts, fmt.Sprintf("last %d month(s)", max(months, 1))),
		ingester:   ingester,
		committees: committees,
		months:     months,
		next:       next,
	}
}

func (t *ScrapeTranscriptsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	committees, err := t.committees.GetCommittees()
	if err != nil {
		return fmt.Errorf("failed to get committees: %w", err)
	}
	if len(committees) == 0 {
		slog.Debug("No committees stored, skipping scrape")
		return nil
	}

	ids := make([]int64, 0, len(committees))
	for _, c := range committees {
		ids = append(ids, c.CommitteeID)
	}

	report := t.ingester.Run(ctx, ScrapeRequest{
		CommitteeIDs: ids,
		Periods:      RecentPeriods(time.Now(), t.months),
	})

	slog.Info("Task completed", append([]any{
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"committees", len(ids),
	}, report.LogAttrs()...)...)

	return ctx.Err()
}

func (t *ScrapeTranscriptsTask) NextTask() TaskInterface {
	return t.next
}
