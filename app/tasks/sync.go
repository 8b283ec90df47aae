package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/parliament"
	"github.com/lysyi3m/steno-comb/app/transcript"
)

// Syncer refreshes the committee list and the bill registry the matcher reads.
type Syncer struct {
	client     ArchiveClient
	committees database.CommitteeRepository
	bills      database.BillRepository
	workers    int
}

func NewSyncer(client ArchiveClient, committees database.CommitteeRepository, bills database.BillRepository, workers int) *Syncer {
	return &Syncer{
		client:     client,
		committees: committees,
		bills:      bills,
		workers:    max(workers, 1),
	}
}

func (s *Syncer) SyncCommittees(ctx context.Context) (int, error) {
	entries := s.client.ListCommittees(ctx)

	synced := 0
	for _, entry := range entries {
		committee, err := committeeFromEntry(entry)
		if err != nil {
			slog.Warn("Skipping committee", "committee_id", entry.ID.String(), "error", err)
			continue
		}

		if err := s.committees.UpsertCommittee(committee); err != nil {
			return synced, err
		}
		synced++
	}

	return synced, nil
}

// SyncBills stores the acts of each committee. With signatures set, every bill
// is also looked up on the detail endpoint for its registry signature.
func (s *Syncer) SyncBills(ctx context.Context, committeeIDs []int64, signatures bool) (int, error) {
	var synced atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, committeeID := range committeeIDs {
		for _, entry := range s.client.ListBills(ctx, committeeID) {
			if gctx.Err() != nil {
				break
			}

			g.Go(func() error {
				bill, err := billFromEntry(entry, committeeID)
				if err != nil {
					slog.Warn("Skipping bill", "bill_id", entry.ID.String(), "committee_id", committeeID, "error", err)
					return nil
				}

				if signatures {
					if signature, ok := s.client.FetchBillSignature(gctx, entry.ID.String()); ok {
						bill.Signature = signature
					}
				}

				if err := s.bills.UpsertBill(bill); err != nil {
					return err
				}
				synced.Add(1)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return int(synced.Load()), fmt.Errorf("failed to sync bills: %w", err)
	}
	return int(synced.Load()), nil
}

func committeeFromEntry(entry parliament.CommitteeEntry) (database.Committee, error) {
	id, err := entry.ID.Int64()
	if err != nil {
		return database.Committee{}, fmt.Errorf("invalid committee id: %w", err)
	}

	committee := database.Committee{
		CommitteeID: id,
		Name:        entry.Name,
		DateFrom:    entry.DateFrom,
		DateTo:      entry.DateTo,
	}
	if typeID, err := entry.TypeID.Int64(); err == nil {
		committee.CommitteeTypeID = &typeID
	}

	return committee, nil
}

func billFromEntry(entry parliament.BillEntry, committeeID int64) (database.Bill, error) {
	id, err := entry.ID.Int64()
	if err != nil {
		return database.Bill{}, fmt.Errorf("invalid bill id: %w", err)
	}

	return database.Bill{
		BillID:      id,
		CommitteeID: &committeeID,
		Title:       entry.Title,
		Sign:        entry.Sign,
		BillDate:    transcript.ParseDate(entry.Date),
		Path:        entry.Path,
	}, nil
}
