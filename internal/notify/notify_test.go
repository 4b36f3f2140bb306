package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/scheduler"
)

func TestPublisher_Events(t *testing.T) {
	var got []Event
	var names []string
	p := newPublisher("", func(name string, e Event) {
		names = append(names, name)
		got = append(got, e)
	})
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	p.StageStarted(ctx, "r1", "proj", "build")
	p.StageFinished(ctx, "r1", "proj", scheduler.StageResult{
		Stage: "build", Outcome: scheduler.Failed, Err: errors.New("boom"), Duration: 1500 * time.Millisecond,
	})
	p.RunFinished(ctx, &scheduler.Report{RunID: "r1", Project: "proj", Outcome: scheduler.AllSucceeded, Duration: time.Second})

	require.Len(t, got, 3)
	assert.Equal(t, []string{DefaultEvent, DefaultEvent, DefaultEvent}, names)
	assert.Equal(t, Event{Type: EventStageStarted, RunID: "r1", Project: "proj", Stage: "build", Time: "2025-01-02T03:04:05Z"}, got[0])
	assert.Equal(t, "failed", got[1].Outcome)
	assert.Equal(t, "boom", got[1].Error)
	assert.Equal(t, int64(1500), got[1].DurationMS)
	assert.Equal(t, EventRunFinished, got[2].Type)
	assert.Empty(t, got[2].Error)
}

func TestDial_InvalidURL(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	_, err := Dial(ctx, Config{URL: "not-a-url"})
	assert.Error(t, err)
}

func TestDial_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(ctxlog.Discard(context.Background()), 200*time.Millisecond)
	defer cancel()
	_, err := Dial(ctx, Config{URL: "http://127.0.0.1:1/socket.io/"})
	assert.Error(t, err)
}
