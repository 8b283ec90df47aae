package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type SyncCommitteesTask struct {
	Task
	syncer *Syncer
	next   TaskInterface
}

func NewSyncCommitteesTask(syncer *Syncer, next TaskInterface) *SyncCommitteesTask {
	return &SyncCommitteesTask{
		Task:   NewTask(TaskTypeSyncCommittees, "committees"),
		syncer: syncer,
		next:   next,
	}
}

func (t *SyncCommitteesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	synced, err := t.syncer.SyncCommittees(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync committees: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"committees", synced)

	return nil
}

func (t *SyncCommitteesTask) NextTask() TaskInterface {
	return t.next
}
