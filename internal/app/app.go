// Package app wires the components together and runs every user action the
// same way: perform the mutation, turn any failure into a Status, and on
// success reload the whole snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/config"
	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/archive"
	"github.com/healthsync-ai/cli/internal/calendar"
	"github.com/healthsync-ai/cli/internal/chat"
	"github.com/healthsync-ai/cli/internal/documents"
	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/ingest"
	"github.com/healthsync-ai/cli/internal/insights"
	"github.com/healthsync-ai/cli/internal/report"
	"github.com/healthsync-ai/cli/internal/session"
	"github.com/healthsync-ai/cli/internal/store"
)

// App holds the client-side components for one signed-in user
type App struct {
	Config    *config.Config
	Client    *api.Client
	Store     *store.Store
	Ingest    *ingest.Pipeline
	Documents *documents.Processor
	Chat      *chat.Manager
	Insights  *insights.Orchestrator
	Calendar  *calendar.Coordinator

	sessions *session.Store
	session  *session.Session
	log      zerolog.Logger
}

// New creates the app with the session database under cfg.Session.Dir
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	sessions, err := session.Open(cfg.Session.Dir)
	if err != nil {
		return nil, err
	}
	a, err := NewWithSessions(cfg, sessions, logger)
	if err != nil {
		sessions.Close()
		return nil, err
	}
	return a, nil
}

// NewWithSessions creates the app over an already opened session store. A nil
// store runs without persistence.
func NewWithSessions(cfg *config.Config, sessions *session.Store, logger zerolog.Logger) (*App, error) {
	client := api.NewClient(api.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            logger,
	})

	a := &App{
		Config:   cfg,
		Client:   client,
		Store:    store.New(client, logger),
		Insights: insights.New(logger),
		Calendar: calendar.NewCoordinator(client, logger),
		sessions: sessions,
		log:      logger.With().Str("component", "app").Logger(),
	}
	a.Ingest = ingest.New(client, logger)
	a.Chat = chat.NewManager(chat.NewConversation(), client, logger)

	var ledger documents.Ledger
	if sessions != nil {
		ledger = sessions
		sess, err := sessions.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		a.setSession(sess)
	}
	a.Documents = documents.NewProcessor(a.Ingest, ledger, logger)

	a.Store.Subscribe(func(snap health.Snapshot) {
		a.Chat.Conversation().Reconcile(snap.ChatHistory)
	})

	return a, nil
}

// Close releases the session database
func (a *App) Close() error {
	if a.sessions == nil {
		return nil
	}
	return a.sessions.Close()
}

// Session returns the current session, or nil when signed out
func (a *App) Session() *session.Session {
	return a.session
}

func (a *App) setSession(sess *session.Session) {
	a.session = sess
	if sess == nil {
		a.Client.SetSession(nil)
		return
	}
	a.Client.SetSession(sess)
}

// SignIn stores the access token and attaches it to every following request
func (a *App) SignIn(token string) (*session.Session, error) {
	sess, err := session.FromToken(token)
	if err != nil {
		return nil, err
	}
	if a.sessions != nil {
		if err := a.sessions.Save(sess); err != nil {
			return nil, err
		}
	}
	a.setSession(sess)
	a.log.Info().Str("user", sess.Label()).Msg("signed in")
	return sess, nil
}

// SignOut tears the session down and discards every piece of client state
func (a *App) SignOut() error {
	a.setSession(nil)
	a.Store.Reset()
	a.Chat.Conversation().Reset()
	a.Insights.Reset()
	a.log.Info().Msg("signed out")

	if a.sessions != nil {
		return a.sessions.Clear()
	}
	return nil
}

// Refresh reloads the snapshot and asks the insight orchestrator whether the
// new data warrants a generation. A refresh overtaken by a newer one reports
// nothing: the newer call owns the status and the insight decision.
func (a *App) Refresh(ctx context.Context) Outcome {
	out := Outcome{Refreshed: true}
	err := a.Store.Refresh(ctx)
	if errors.Is(err, store.ErrStale) {
		return out
	}
	if err != nil {
		out.RefreshErr = err
		out.Status = Failure("Failed to load health data: " + errs.UserMessage(err))
	}

	if ticket, ok := a.Insights.Observe(a.Store.Snapshot()); ok {
		out.Insights = &ticket
	}
	return out
}

func (a *App) afterSuccess(ctx context.Context, status Status) Outcome {
	out := a.Refresh(ctx)
	out.Status = status
	return out
}

// AnalyzeText submits pasted text
func (a *App) AnalyzeText(ctx context.Context, text string) Outcome {
	res, err := a.Ingest.AnalyzeText(ctx, text)
	return a.analyzed(ctx, ingest.SourceText, res, err)
}

// AnalyzeFile submits a file from disk
func (a *App) AnalyzeFile(ctx context.Context, path string, opts documents.Options) Outcome {
	res, err := a.Documents.ProcessDocument(ctx, path, opts)
	var dup *documents.DuplicateError
	if errors.As(err, &dup) {
		return Outcome{Status: Failure(dup.Error() + " (use force to resubmit)")}
	}
	return a.analyzed(ctx, ingest.SourceFile, res, err)
}

func (a *App) analyzed(ctx context.Context, src ingest.Source, res *ingest.Result, err error) Outcome {
	switch {
	case err == nil:
		return a.afterSuccess(ctx, Success(ingest.SuccessMessage(res)))
	case ingest.IsSoft(err):
		return Outcome{Status: Success(ingest.SuccessMessage(res))}
	default:
		a.log.Error().Err(err).Msg("document analysis failed")
		return Outcome{Status: Failure(ingest.FailureMessage(src, err))}
	}
}

// BeginChat shows the optimistic user entry; follow with DeliverChat
func (a *App) BeginChat(text string) (*chat.Turn, error) {
	return a.Chat.Begin(text)
}

// DeliverChat sends a begun turn. The apology entry replaces the reply on
// failure; the status stays empty because the conversation shows the result.
func (a *App) DeliverChat(ctx context.Context, turn *chat.Turn) (chat.Message, Outcome) {
	reply, err := a.Chat.Deliver(ctx, turn)
	if err != nil {
		return reply, Outcome{}
	}
	return reply, a.afterSuccess(ctx, Status{})
}

// SendChat runs a whole chat turn
func (a *App) SendChat(ctx context.Context, text string) (chat.Message, Outcome) {
	turn, err := a.BeginChat(text)
	if err != nil {
		return chat.Message{}, Outcome{Status: Failure(err.Error())}
	}
	return a.DeliverChat(ctx, turn)
}

// SyncCalendar pushes the medication schedule to the calendar
func (a *App) SyncCalendar(ctx context.Context) Outcome {
	outcome, err := a.Calendar.Sync(ctx)
	if errors.Is(err, calendar.ErrSyncInProgress) {
		return Outcome{}
	}
	if err != nil {
		return Outcome{Status: Failure(calendar.FailureMessage(outcome, err))}
	}
	return a.afterSuccess(ctx, Success(calendar.SuccessMessage(outcome)))
}

// GenerateInsights runs the generation a refresh made due
func (a *App) GenerateInsights(ctx context.Context, ticket insights.Ticket) Status {
	report, err := a.Client.HealthInsights(ctx)
	a.Insights.Finish(ticket, report, err)
	if err != nil {
		return Failure(insights.ErrorBanner)
	}
	return Status{}
}

// RefreshInsights is the manual insight refresh. It is dropped while a
// generation is already running.
func (a *App) RefreshInsights(ctx context.Context) Status {
	ticket, ok := a.Insights.Begin(true)
	if !ok {
		return Status{}
	}
	return a.GenerateInsights(ctx, ticket)
}

// Settle runs any follow-up an outcome asks for, for surfaces that block
func (a *App) Settle(ctx context.Context, out Outcome) Outcome {
	if out.Insights != nil {
		if st := a.GenerateInsights(ctx, *out.Insights); st.IsError() && !out.Status.IsError() {
			a.log.Warn().Msg(st.Message)
		}
		out.Insights = nil
	}
	return out
}

// Mirror receives snapshots for archiving
type Mirror interface {
	Mirror(ctx context.Context, owner string, snap health.Snapshot) (archive.Counts, error)
}

// ArchiveSnapshot reloads the snapshot and mirrors it. Nothing is mirrored
// when the reload fails, so an outage never overwrites the archive with an
// empty snapshot.
func (a *App) ArchiveSnapshot(ctx context.Context, m Mirror) (archive.Counts, Status) {
	err := a.Store.Refresh(ctx)
	if errors.Is(err, store.ErrStale) {
		err = a.Store.Err()
	}
	if err != nil {
		return archive.Counts{}, Failure("Failed to load health data: " + errs.UserMessage(err))
	}

	owner := archive.Owner("", "")
	if sess := a.session; sess != nil {
		owner = archive.Owner(sess.Subject, sess.Email)
	}

	counts, err := m.Mirror(ctx, owner, a.Store.Snapshot())
	if err != nil {
		a.log.Error().Err(err).Msg("archive mirror failed")
		return counts, Failure("Error archiving health data: " + err.Error())
	}
	return counts, Success(fmt.Sprintf("Archived %d documents and %d chat messages.", counts.Documents, counts.ChatRecords))
}

// Report assembles the printable summary of the current snapshot and insights
func (a *App) Report(now time.Time) report.Document {
	return report.Build(a.Store.Snapshot(), a.Insights.Report(), a.session.Label(), now)
}
