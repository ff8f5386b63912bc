// Package calendar interprets calendar sync results from the backend.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/health"
)

// ErrSyncInProgress is returned when Sync is called while another sync is outstanding
var ErrSyncInProgress = errors.New("calendar sync already in progress")

// ErrSyncFailed is wrapped by failures the backend reported in a 2xx body
var ErrSyncFailed = errors.New("calendar sync failed")

// Syncer issues the sync request
type Syncer interface {
	SyncCalendar(ctx context.Context) (*api.SyncResponse, error)
}

// Interpret normalizes a sync response. Either success==true or a positive
// events_created count is enough.
func Interpret(resp *api.SyncResponse) health.SyncOutcome {
	var out health.SyncOutcome
	if resp == nil {
		return out
	}
	if resp.EventsCreated != nil {
		out.EventsCreated = *resp.EventsCreated
	}
	out.Success = (resp.Success != nil && *resp.Success) || out.EventsCreated > 0
	if !out.Success {
		out.Error = resp.Error
	}
	return out
}

// SuccessMessage is the status line for a successful sync
func SuccessMessage(o health.SyncOutcome) string {
	return fmt.Sprintf("Successfully created %d calendar events!", o.EventsCreated)
}

// FailureMessage is the status line for a failed sync. err is the transport
// failure, if any; otherwise the outcome's reported error is used.
func FailureMessage(o health.SyncOutcome, err error) string {
	reason := o.Error
	if err != nil {
		var syncErr *Error
		if !errors.As(err, &syncErr) {
			reason = errs.UserMessage(err)
		}
	}
	if reason == "" {
		reason = "Unknown error"
	}
	return "Error syncing calendar: " + reason
}

// Error is an unsuccessful outcome reported by the backend in a 2xx response
type Error struct {
	Outcome health.SyncOutcome
}

func (e *Error) Error() string {
	if e.Outcome.Error == "" {
		return ErrSyncFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSyncFailed, e.Outcome.Error)
}

func (e *Error) Unwrap() error {
	return ErrSyncFailed
}

// Coordinator runs at most one sync at a time
type Coordinator struct {
	syncer  Syncer
	syncing atomic.Bool
	log     zerolog.Logger
}

// NewCoordinator creates a coordinator
func NewCoordinator(syncer Syncer, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		syncer: syncer,
		log:    logger.With().Str("component", "calendar").Logger(),
	}
}

// Syncing reports whether a sync is outstanding
func (c *Coordinator) Syncing() bool {
	return c.syncing.Load()
}

// Sync requests a sync and interprets the result. An unsuccessful outcome is
// returned together with an *Error.
func (c *Coordinator) Sync(ctx context.Context) (health.SyncOutcome, error) {
	if !c.syncing.CompareAndSwap(false, true) {
		return health.SyncOutcome{}, ErrSyncInProgress
	}
	defer c.syncing.Store(false)

	resp, err := c.syncer.SyncCalendar(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("calendar sync request failed")
		return health.SyncOutcome{Error: errs.UserMessage(err)}, err
	}

	outcome := Interpret(resp)
	if !outcome.Success {
		c.log.Warn().Str("error", outcome.Error).Msg("calendar sync reported failure")
		return outcome, &Error{Outcome: outcome}
	}

	c.log.Info().Int("events_created", outcome.EventsCreated).Msg("calendar synced")
	return outcome, nil
}
