package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/steno-comb/app/database"
)

type SyncBillsTask struct {
	Task
	syncer     *Syncer
	committees database.CommitteeRepository
	signatures bool
	next       TaskInterface
}

func NewSyncBillsTask(syncer *Syncer, committees database.CommitteeRepository, signatures bool, next TaskInterface) *SyncBillsTask {
	return &SyncBillsTask{
		Task:       NewTask(TaskTypeSyncBills, "bills"),
		syncer:     syncer,
		committees: committees,
		signatures: signatures,
		next:       next,
	}
}

func (t *SyncBillsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	committees, err := t.committees.GetCommittees()
	if err != nil {
		return fmt.Errorf("failed to get committees: %w", err)
	}

	ids := make([]int64, 0, len(committees))
	for _, c := range committees {
		ids = append(ids, c.CommitteeID)
	}

	synced, err := t.syncer.SyncBills(ctx, ids, t.signatures)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"committees", len(ids),
		"bills", synced)

	return nil
}

func (t *SyncBillsTask) NextTask() TaskInterface {
	return t.next
}
