package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/testutil"
)

func boolp(b bool) *bool { return &b }

func intp(n int) *int { return &n }

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		resp *api.SyncResponse
		want health.SyncOutcome
	}{
		{"success flag only", &api.SyncResponse{Success: boolp(true), EventsCreated: intp(0)}, health.SyncOutcome{Success: true}},
		{"events only", &api.SyncResponse{Success: boolp(false), EventsCreated: intp(3)}, health.SyncOutcome{Success: true, EventsCreated: 3}},
		{"events without flag", &api.SyncResponse{EventsCreated: intp(2)}, health.SyncOutcome{Success: true, EventsCreated: 2}},
		{"both falsy", &api.SyncResponse{Success: boolp(false), EventsCreated: intp(0), Error: "no events"}, health.SyncOutcome{Error: "no events"}},
		{"absent fields", &api.SyncResponse{}, health.SyncOutcome{}},
		{"nil", nil, health.SyncOutcome{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.resp))
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Successfully created 4 calendar events!", SuccessMessage(health.SyncOutcome{Success: true, EventsCreated: 4}))
	assert.Equal(t, "Error syncing calendar: no events", FailureMessage(health.SyncOutcome{Error: "no events"}, nil))
	assert.Equal(t, "Error syncing calendar: Unknown error", FailureMessage(health.SyncOutcome{}, nil))
}

func TestSyncAgainstBackend(t *testing.T) {
	b := testutil.NewBackend(t)
	snap := health.Empty()
	snap.Medications = []health.Medication{{Name: "a"}, {Name: "b"}}
	b.SetData(snap)
	c := NewCoordinator(api.NewClient(api.Options{BaseURL: b.URL()}), zerolog.Nop())

	outcome, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.EventsCreated)
	assert.False(t, c.Syncing())
}

func TestSyncReportedFailure(t *testing.T) {
	b := testutil.NewBackend(t)
	b.SetSyncReply(map[string]any{"success": false, "events_created": 0, "error": "no events"})
	c := NewCoordinator(api.NewClient(api.Options{BaseURL: b.URL()}), zerolog.Nop())

	outcome, err := c.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyncFailed))
	assert.False(t, outcome.Success)
	assert.Contains(t, FailureMessage(outcome, err), "no events")
}

func TestSyncTransportFailure(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Fail(api.PathSyncCalendar, testutil.Failure{Status: 500, Body: `{"error":"Google Calendar unavailable"}`})
	c := NewCoordinator(api.NewClient(api.Options{BaseURL: b.URL()}), zerolog.Nop())

	outcome, err := c.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Error syncing calendar: Google Calendar unavailable", FailureMessage(outcome, err))
}

type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSyncer) SyncCalendar(ctx context.Context) (*api.SyncResponse, error) {
	close(b.started)
	<-b.release
	return &api.SyncResponse{EventsCreated: intp(1)}, nil
}

func TestSyncRejectsOverlap(t *testing.T) {
	s := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator(s, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := c.Sync(context.Background())
		done <- err
	}()
	<-s.started

	assert.True(t, c.Syncing())
	_, err := c.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(s.release)
	require.NoError(t, <-done)
}
