// Package insights decides when AI insights should be generated and keeps the
// last good report.
package insights

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/health"
)

// State of the orchestrator
type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorBanner is shown next to the previous report after a failed generation
const ErrorBanner = "Failed to generate insights. Please try again."

// Fetcher generates a report over the server-side data
type Fetcher interface {
	HealthInsights(ctx context.Context) (*health.InsightReport, error)
}

// Warranted reports whether automatic generation should run for snap
func Warranted(snap health.Snapshot) bool {
	return len(snap.Medications) > 0 || len(snap.HealthMetrics) > 0
}

// Ticket identifies one generation. Finish ignores tickets that were
// superseded by a reset or by the data going out of scope.
type Ticket uint64

// Orchestrator holds the insight state machine
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	report  *health.InsightReport
	banner  string
	current Ticket
	log     zerolog.Logger
}

// New creates an idle orchestrator
func New(logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{log: logger.With().Str("component", "insights").Logger()}
}

// Observe reacts to a new snapshot. When it returns true a fetch should be
// issued now with the returned ticket; the orchestrator is then Loading.
// Data without medications or metrics drops back to Idle with no report.
func (o *Orchestrator) Observe(snap health.Snapshot) (Ticket, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !Warranted(snap) {
		o.resetLocked()
		return 0, false
	}
	return o.beginLocked()
}

// Begin starts a generation. Manual refreshes skip the warranted check; an
// automatic Begin never starts anything on its own. While a generation is
// outstanding the request is dropped, not queued.
func (o *Orchestrator) Begin(manual bool) (Ticket, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !manual {
		return 0, false
	}
	return o.beginLocked()
}

func (o *Orchestrator) beginLocked() (Ticket, bool) {
	if o.state == Loading {
		return 0, false
	}
	o.current++
	o.state = Loading
	return o.current, true
}

// Finish records the outcome of the generation identified by t
func (o *Orchestrator) Finish(t Ticket, report *health.InsightReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if t != o.current || o.state != Loading {
		o.log.Debug().Uint64("ticket", uint64(t)).Msg("discarding superseded insight result")
		return
	}

	if err != nil {
		o.log.Error().Err(err).Msg("insight generation failed")
		o.state = Error
		o.banner = ErrorBanner
		return
	}

	cp := health.InsightReport{}
	if report != nil {
		cp = *report
	}
	o.report = &cp
	o.state = Ready
	o.banner = ""
}

// Run performs one generation synchronously when Begin allows it
func (o *Orchestrator) Run(ctx context.Context, fetcher Fetcher) error {
	ticket, ok := o.Begin(true)
	if !ok {
		return nil
	}
	report, err := fetcher.HealthInsights(ctx)
	o.Finish(ticket, report, err)
	return err
}

// State returns the current state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Report returns the last good report, or nil
func (o *Orchestrator) Report() *health.InsightReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.report == nil {
		return nil
	}
	cp := *o.report
	return &cp
}

// Banner returns the error banner, empty unless the last generation failed
func (o *Orchestrator) Banner() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.banner
}

// Reset returns to Idle with no report (sign-out)
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

func (o *Orchestrator) resetLocked() {
	o.current++
	o.state = Idle
	o.report = nil
	o.banner = ""
}
