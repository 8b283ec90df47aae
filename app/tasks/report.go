package tasks

import (
	"sync"
	"time"
)

type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	OutcomeExtracted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeExtracted:
		return "extracted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Report tallies a batch run. It is safe for concurrent use.
type Report struct {
	Found       int
	Created     int
	Updated     int
	Extracted   int
	Skipped     int
	Failed      int
	Discussions int
	Elapsed     time.Duration

	startedAt time.Time
	mu        sync.Mutex
}

func NewReport() *Report {
	return &Report{startedAt: time.Now()}
}

func (r *Report) AddFound(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Found += n
}

func (r *Report) Record(outcome Outcome, discussions int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch outcome {
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeExtracted:
		r.Extracted++
	case OutcomeFailed:
		r.Failed++
	}
	r.Discussions += discussions
}

func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Elapsed = time.Since(r.startedAt)
}

// LogAttrs renders the tallies as slog key/value pairs.
func (r *Report) LogAttrs() []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return []any{
		"found", r.Found,
		"created", r.Created,
		"updated", r.Updated,
		"extracted", r.Extracted,
		"skipped", r.Skipped,
		"failed", r.Failed,
		"discussions", r.Discussions,
		"elapsed", r.Elapsed.Round(time.Millisecond).String(),
	}
}
