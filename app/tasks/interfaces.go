package tasks

import (
	"context"

	"github.com/lysyi3m/steno-comb/app/parliament"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by serve mode to run periodic scrapes and extractions, and by the API to
// queue on-demand extractions.
//
//	scheduler := NewScheduler(ingester, extractor, syncer, committees, config)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewExtractTranscriptsTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	QueueLength() int
}

// ArchiveClient is the part of the parliament.bg client the pipeline reads from.
type ArchiveClient interface {
	ListTranscripts(ctx context.Context, committeeID int64, year, month int) []parliament.ListingEntry
	FetchContent(ctx context.Context, transcriptID string) (*parliament.RawContent, bool)
	ListCommittees(ctx context.Context) []parliament.CommitteeEntry
	ListBills(ctx context.Context, committeeID int64) []parliament.BillEntry
	FetchBillSignature(ctx context.Context, billID string) (string, bool)
}

var _ ArchiveClient = (*parliament.Client)(nil)
