package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/extraction"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerConfig struct {
	Interval       time.Duration
	WorkerCount    int
	LookbackMonths int
	ExtractionType extraction.Type
	ExtractLimit   int
	TaskTimeout    time.Duration
}

type Scheduler struct {
	ingester    *Ingester
	extractor   *Extractor
	syncer      *Syncer
	committees  database.CommitteeRepository
	interval    time.Duration
	workerCount int
	months      int
	extractType extraction.Type
	limit       int
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(ingester *Ingester, extractor *Extractor, syncer *Syncer,
	committees database.CommitteeRepository, config SchedulerConfig) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 30 * time.Minute
	}
	if config.ExtractionType == "" {
		config.ExtractionType = extraction.TypeBillDiscussions
	}

	return &Scheduler{
		ingester:    ingester,
		extractor:   extractor,
		syncer:      syncer,
		committees:  committees,
		interval:    config.Interval,
		workerCount: max(config.WorkerCount, 1),
		months:      max(config.LookbackMonths, 1),
		extractType: config.ExtractionType,
		limit:       config.ExtractLimit,
		taskTimeout: config.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) QueueLength() int {
	return len(s.taskQueue)
}

// scrapeCycle scrapes recent months, then extracts whatever is still
// unextracted.
func (s *Scheduler) scrapeCycle() TaskInterface {
	extract := NewExtractTranscriptsTask(s.extractor, ExtractRequest{
		Filter: database.TranscriptFilter{Limit: s.limit},
		Type:   s.extractType,
	})
	return NewScrapeTranscriptsTask(s.ingester, s.committees, s.months, extract)
}

func (s *Scheduler) enqueueStartupTasks() {
	bills := NewSyncBillsTask(s.syncer, s.committees, false, s.scrapeCycle())
	committees := NewSyncCommitteesTask(s.syncer, bills)

	if err := s.EnqueueTask(committees); err != nil {
		slog.Warn("Failed to enqueue SyncCommitteesTask", "error", err)
	}
}

func (s *Scheduler) enqueueTasks() {
	if err := s.EnqueueTask(s.scrapeCycle()); err != nil {
		slog.Warn("Failed to enqueue ScrapeTranscriptsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err == nil {
		if chained, ok := task.(ChainedTask); ok {
			if next := chained.NextTask(); next != nil {
				if err := s.EnqueueTask(next); err != nil {
					slog.Warn("Failed to enqueue follow-up task", "type", string(next.GetType()), "after", task.GetID(), "error", err)
				}
			}
		}
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, 30*time.Second)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		time.Sleep(retryDelay)
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		default:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
