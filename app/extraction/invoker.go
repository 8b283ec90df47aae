package extraction

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 60 * time.Second
)

type State int

const (
	StateIdle State = iota
	StatePacedWait
	StateCalling
	StateBackoffWait
	StateSuccess
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePacedWait:
		return "paced_wait"
	case StateCalling:
		return "calling"
	case StateBackoffWait:
		return "backoff_wait"
	case StateSuccess:
		return "success"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type InvokerConfig struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	Sleep        SleepFunc
	OnTransition func(from, to State)
}

// Invoker calls a Backend for one chunk at a time, honouring the shared pacer
// and backing off exponentially on quota errors.
type Invoker struct {
	backend      Backend
	pacer        Pacer
	maxAttempts  int
	baseDelay    time.Duration
	sleep        SleepFunc
	onTransition func(from, to State)
}

func NewInvoker(backend Backend, pacer Pacer, config InvokerConfig) *Invoker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.Sleep == nil {
		config.Sleep = Sleep
	}
	if pacer == nil {
		pacer = NewRatePacer(0)
	}

	return &Invoker{
		backend:      backend,
		pacer:        pacer,
		maxAttempts:  config.MaxAttempts,
		baseDelay:    config.BaseDelay,
		sleep:        config.Sleep,
		onTransition: config.OnTransition,
	}
}

func (inv *Invoker) Backend() Backend {
	return inv.backend
}

// RetryDelay is the wait before retry n (1-based).
func (inv *Invoker) RetryDelay(n int) time.Duration {
	return inv.baseDelay << uint(n-1)
}

// Extract runs one chunk through the backend. When the backend splits TypeAll
// into per-type calls, each call is paced and retried separately and the
// payloads are merged into a Grouped result.
func (inv *Invoker) Extract(ctx context.Context, chunk string, extractionType Type, ec Context) (Result, error) {
	splitter, ok := inv.backend.(TypeSplitter)
	if !ok || extractionType != TypeAll {
		return inv.extractOnce(ctx, chunk, extractionType, ec)
	}

	grouped := make(map[Type]Payload)
	for _, t := range splitter.SplitTypes(extractionType) {
		result, err := inv.extractOnce(ctx, chunk, t, ec)
		if err != nil {
			return Result{}, err
		}
		for _, batch := range result.Batches() {
			grouped[batch.Type] = batch.Payload
		}
	}
	return Grouped(grouped), nil
}

func (inv *Invoker) extractOnce(ctx context.Context, chunk string, extractionType Type, ec Context) (Result, error) {
	state := StateIdle
	move := func(next State) {
		if inv.onTransition != nil {
			inv.onTransition(state, next)
		}
		state = next
	}

	reservation := inv.pacer.Reserve()
	if wait := reservation.Delay(); wait > 0 {
		move(StatePacedWait)
		if err := inv.sleep(ctx, wait); err != nil {
			reservation.Cancel()
			move(StateFatal)
			return Result{}, err
		}
	}

	for attempt := 1; ; attempt++ {
		move(StateCalling)

		result, err := inv.backend.Extract(ctx, chunk, extractionType, ec)
		if err == nil {
			move(StateSuccess)
			return result, nil
		}

		if ctx.Err() != nil {
			move(StateFatal)
			return Result{}, ctx.Err()
		}

		if IsQuotaError(err) && attempt < inv.maxAttempts {
			delay := inv.RetryDelay(attempt)
			slog.Warn("Rate limit hit, backing off",
				"transcript_id", ec.TranscriptID,
				"chunk", ec.ChunkIndex,
				"type", extractionType,
				"attempt", attempt,
				"max_attempts", inv.maxAttempts,
				"delay", delay.String())

			move(StateBackoffWait)
			if err := inv.sleep(ctx, delay); err != nil {
				move(StateFatal)
				return Result{}, err
			}
			continue
		}

		move(StateFatal)
		return Result{}, &Error{Kind: classify(err), Attempts: attempt, Err: err}
	}
}
