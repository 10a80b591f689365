package background

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rmfernandez/acadguard/internal/services"
	"github.com/stretchr/testify/assert"
)

type fakeIPPurger struct {
	deleted int64
	calls   int
	err     error
}

func (f *fakeIPPurger) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

func TestCleanerSweep(t *testing.T) {
	var purgedBefore time.Time
	sessionRepo := &services.MockSessionRepository{
		DeleteStaleFunc: func(ctx context.Context, before time.Time) (int64, error) {
			purgedBefore = before
			return 3, nil
		},
	}
	sessions := services.NewSessionService(sessionRepo, 30*time.Minute)
	purger := &fakeIPPurger{deleted: 2}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cleaner := NewCleaner(sessions, purger, time.Hour, 24*time.Hour, logger)

	cleaner.sweep(context.Background())

	assert.Equal(t, 1, purger.calls)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), purgedBefore, 2*time.Second)
}

func TestCleanerRun_StopsOnContextCancel(t *testing.T) {
	sessions := services.NewSessionService(&services.MockSessionRepository{}, 30*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cleaner := NewCleaner(sessions, &fakeIPPurger{}, 10*time.Millisecond, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after context cancellation")
	}
}
