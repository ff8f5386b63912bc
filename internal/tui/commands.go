package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/chat"
	"github.com/healthsync-ai/cli/internal/documents"
	"github.com/healthsync-ai/cli/internal/insights"
)

// action names the operation an outcomeMsg finishes, so the matching
// in-flight flag can be cleared.
type action int

const (
	actionRefresh action = iota
	actionUpload
	actionSync
	actionChat
)

// outcomeMsg carries the result of an app action back into the update loop
type outcomeMsg struct {
	action action
	out    app.Outcome
	reply  chat.Message
}

// insightsMsg reports a finished insight generation
type insightsMsg struct {
	status app.Status
}

func refreshCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{action: actionRefresh, out: a.Refresh(ctx)}
	}
}

func analyzeTextCmd(ctx context.Context, a *app.App, text string) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{action: actionUpload, out: a.AnalyzeText(ctx, text)}
	}
}

func analyzeFileCmd(ctx context.Context, a *app.App, path string, opts documents.Options) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{action: actionUpload, out: a.AnalyzeFile(ctx, path, opts)}
	}
}

func syncCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{action: actionSync, out: a.SyncCalendar(ctx)}
	}
}

func deliverCmd(ctx context.Context, a *app.App, turn *chat.Turn) tea.Cmd {
	return func() tea.Msg {
		reply, out := a.DeliverChat(ctx, turn)
		return outcomeMsg{action: actionChat, out: out, reply: reply}
	}
}

func generateInsightsCmd(ctx context.Context, a *app.App, ticket insights.Ticket) tea.Cmd {
	return func() tea.Msg {
		return insightsMsg{status: a.GenerateInsights(ctx, ticket)}
	}
}
