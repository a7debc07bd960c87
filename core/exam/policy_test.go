package exam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestExpiryFor(t *testing.T) {
	createdAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, null.TimeFrom(createdAt.Add(30*time.Minute)), ExpiryFor(30, createdAt))
	assert.Equal(t, null.TimeFrom(createdAt.Add(1*time.Minute)), ExpiryFor(1, createdAt))
	assert.False(t, ExpiryFor(0, createdAt).Valid, "untimed")
	assert.False(t, ExpiryFor(-5, createdAt).Valid, "untimed")
}

func TestAnswerSheet_CheckSubmission(t *testing.T) {
	createdAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	timed := AnswerSheet{CreatedAt: createdAt, ExpireAt: ExpiryFor(30, createdAt)}
	untimed := AnswerSheet{CreatedAt: createdAt, ExpireAt: ExpiryFor(0, createdAt)}
	expireAt := timed.ExpireAt.Time

	tests := []struct {
		name    string
		sheet   AnswerSheet
		at      time.Time
		wantErr error
	}{
		{name: "right after start", sheet: timed, at: createdAt},
		{name: "1s before expiry", sheet: timed, at: expireAt.Add(-time.Second)},
		{name: "at expiry", sheet: timed, at: expireAt},
		{name: "1s after expiry", sheet: timed, at: expireAt.Add(time.Second), wantErr: ErrTimeOver},
		{name: "a day after expiry", sheet: timed, at: expireAt.AddDate(0, 0, 1), wantErr: ErrTimeOver},
		{name: "untimed, a year later", sheet: untimed, at: createdAt.AddDate(1, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.sheet.CheckSubmission(tt.at))
			assert.Equal(t, tt.wantErr != nil, tt.sheet.IsExpired(tt.at))
		})
	}
	assert.Equal(t, "the test time is over", ErrTimeOver.Error())
}

func TestAnswerSheet_Remaining(t *testing.T) {
	createdAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	sheet := AnswerSheet{CreatedAt: createdAt, ExpireAt: ExpiryFor(30, createdAt)}

	assert.Equal(t, 30*time.Minute, sheet.Remaining(createdAt))
	assert.Equal(t, 90*time.Second, sheet.Remaining(createdAt.Add(28*time.Minute+30*time.Second)))
	assert.Zero(t, sheet.Remaining(createdAt.Add(30*time.Minute)))
	assert.Zero(t, sheet.Remaining(createdAt.Add(time.Hour)), "clamped")
	assert.Zero(t, AnswerSheet{CreatedAt: createdAt}.Remaining(createdAt), "untimed")
}

func TestCountdown(t *testing.T) {
	t.Run("ticks down to zero", func(t *testing.T) {
		now := time.Now()
		sheet := AnswerSheet{CreatedAt: now, ExpireAt: null.TimeFrom(now.Add(50 * time.Millisecond))}

		var got []time.Duration
		for d := range Countdown(context.Background(), sheet, 10*time.Millisecond) {
			got = append(got, d)
		}
		require.GreaterOrEqual(t, len(got), 2)
		assert.Zero(t, got[len(got)-1])
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i], got[i-1])
		}
	})

	t.Run("untimed sheets are closed", func(t *testing.T) {
		_, open := <-Countdown(context.Background(), AnswerSheet{CreatedAt: time.Now()}, time.Millisecond)
		assert.False(t, open)
	})

	t.Run("expired sheets emit zero once", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		sheet := AnswerSheet{CreatedAt: past, ExpireAt: null.TimeFrom(past.Add(time.Minute))}

		var got []time.Duration
		for d := range Countdown(context.Background(), sheet, time.Millisecond) {
			got = append(got, d)
		}
		assert.Equal(t, []time.Duration{0}, got)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		now := time.Now()
		sheet := AnswerSheet{CreatedAt: now, ExpireAt: null.TimeFrom(now.Add(time.Hour))}
		ctx, cancel := context.WithCancel(context.Background())

		ch := Countdown(ctx, sheet, time.Millisecond)
		first := <-ch
		assert.Greater(t, first, 59*time.Minute)
		cancel()

		timeout := time.After(time.Second)
		for {
			select {
			case _, open := <-ch:
				if !open {
					return
				}
			case <-timeout:
				t.Fatal("countdown not closed after cancel")
			}
		}
	})
}
