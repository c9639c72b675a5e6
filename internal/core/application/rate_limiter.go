package application

import (
	"context"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const rateWindow = time.Hour

// rateLimiter bounds the number of outbound initiations in any trailing
// hour. The ceiling is passed on every call so that updates apply to the
// next admission.
type rateLimiter struct {
	store ports.RateWindowStore
	clock ports.Clock
}

// admit records a new initiation and returns its admission time, to be
// passed to release if the initiation doesn't go through.
func (r rateLimiter) admit(ctx context.Context, limit uint64) (time.Time, error) {
	now := r.clock.Now()
	ok, err := r.store.Admit(ctx, now, rateWindow, limit)
	if err != nil {
		return time.Time{}, internalError("failed to check rate limit: %w", err)
	}
	if !ok {
		return time.Time{}, errors.RATE_LIMIT_EXCEEDED.New(
			"more than %d transactions initiated in the last hour", limit,
		).WithMetadata(errors.RateLimitMetadata{
			Limit:         limit,
			WindowSeconds: int64(rateWindow.Seconds()),
		})
	}
	return now, nil
}

func (r rateLimiter) release(ctx context.Context, admittedAt time.Time) {
	if err := r.store.Release(ctx, admittedAt); err != nil {
		log.WithError(err).Warn("failed to release rate window admission")
	}
}

func (r rateLimiter) count(ctx context.Context) (uint64, error) {
	return r.store.Count(ctx, r.clock.Now(), rateWindow)
}
