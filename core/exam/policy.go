package exam

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examhall/core"
)

var ErrTimeOver = core.NewValidationError(errors.New("the test time is over"))

// ExpiryFor returns when a sheet started at createdAt on a set lasting duration minutes expires.
// Untimed sets (duration <= 0) never expire.
func ExpiryFor(duration int, createdAt time.Time) null.Time {
	if duration <= 0 {
		return null.Time{}
	}
	return null.TimeFrom(createdAt.Add(time.Duration(duration) * time.Minute))
}

// IsExpired reports whether no more answers are accepted at now.
// A sheet is still open at the exact expiry instant.
func (s AnswerSheet) IsExpired(now time.Time) bool {
	return s.ExpireAt.Valid && s.ExpireAt.Time.Before(now)
}

// CheckSubmission returns ErrTimeOver if an answer cannot be added at now.
func (s AnswerSheet) CheckSubmission(now time.Time) error {
	if s.IsExpired(now) {
		return ErrTimeOver
	}
	return nil
}

// Remaining returns the time left at now, clamped at 0. Untimed sheets have 0 remaining.
func (s AnswerSheet) Remaining(now time.Time) time.Duration {
	if !s.ExpireAt.Valid {
		return 0
	}
	if d := s.ExpireAt.Time.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Countdown emits the remaining time of a timed sheet now and then every tick,
// until it reaches 0 or ctx is done. The channel is closed afterwards.
// Untimed sheets get a closed channel.
func Countdown(ctx context.Context, sheet AnswerSheet, tick time.Duration) <-chan time.Duration {
	ch := make(chan time.Duration)
	if !sheet.ExpireAt.Valid {
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			remaining := sheet.Remaining(NowFunc())
			select {
			case ch <- remaining:
			case <-ctx.Done():
				return
			}
			if remaining == 0 {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
