package extraction

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between backend calls across the process.
const DefaultMinInterval = 2 * time.Second

type Reservation interface {
	Delay() time.Duration
	Cancel()
}

// Pacer hands out call slots. One Pacer is shared by every worker.
type Pacer interface {
	Reserve() Reservation
}

type RatePacer struct {
	limiter *rate.Limiter
}

func NewRatePacer(minInterval time.Duration) *RatePacer {
	if minInterval <= 0 {
		return &RatePacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

func (p *RatePacer) Reserve() Reservation {
	return p.limiter.Reserve()
}

type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
