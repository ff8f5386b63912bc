package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync-ai/cli/config"
	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/chat"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/testutil"
)

func newTestModel(t *testing.T) (*Model, *testutil.Backend) {
	t.Helper()
	b := testutil.NewBackend(t)
	cfg := config.Default()
	cfg.API.BaseURL = b.URL()
	cfg.API.RequestsPerSecond = 0

	a, err := app.NewWithSessions(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	return New(context.Background(), a, zerolog.Nop()), b
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back, the way the program loop would
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestViewCycle(t *testing.T) {
	assert.Equal(t, ViewUpload, ViewDashboard.Next())
	assert.Equal(t, ViewDashboard, ViewChat.Next())
	assert.Equal(t, ViewChat, ViewDashboard.Prev())
	assert.Equal(t, "Upload", ViewUpload.String())
	assert.Panics(t, func() { _ = View(9).String() })
}

func TestUnknownViewPanics(t *testing.T) {
	m, _ := newTestModel(t)
	m.view = View(5)
	assert.Panics(t, func() { m.View() })
}

func TestRenderMarkdownConsumesMarkup(t *testing.T) {
	out := ansi.Strip(renderMarkdown("Take **Metformin** with *food* and ***never*** skip"))
	assert.Equal(t, "Take Metformin with food and never skip", out)

	out = ansi.Strip(renderMarkdown("a ** b"))
	assert.Equal(t, "a ** b", out)
}

func TestTabAndDigitSwitchViews(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ViewUpload, m.view)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.Update(keyRunes("3"))
	assert.Equal(t, ViewChat, m.view)

	// The chat input has focus, so digits are text.
	m.Update(keyRunes("1"))
	assert.Equal(t, ViewChat, m.view)
	assert.Equal(t, "1", m.chat.input.Value())

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, ViewUpload, m.view)
}

func TestInitRefreshes(t *testing.T) {
	m, b := newTestModel(t)
	b.SetData(func() health.Snapshot {
		snap := health.Empty()
		snap.Medications = []health.Medication{{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily"}}
		return snap
	}())

	require.NotNil(t, m.Init())
	assert.True(t, m.refreshing)
	assert.Contains(t, ansi.Strip(m.View()), "Loading health data")

	run(t, m, refreshCmd(m.ctx, m.app))
	assert.False(t, m.refreshing)
	assert.Contains(t, ansi.Strip(m.View()), "Lisinopril")
}

func TestUploadTextFlow(t *testing.T) {
	m, b := newTestModel(t)
	b.SetAnalysis(health.AnalysisResult{Medications: []health.Medication{{Name: "Metformin"}}})

	m.Update(keyRunes("2"))
	require.Equal(t, ViewUpload, m.view)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Equal(t, app.Failure("Please enter document text for analysis."), m.status)

	m.upload.text.SetValue("Metformin 500mg")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, m.upload.uploading)
	run(t, m, cmd)

	assert.False(t, m.upload.uploading)
	assert.Equal(t, app.Success("Document analyzed successfully! Found 1 medications."), m.status)
	assert.Equal(t, "", m.upload.text.Value())
	assert.Len(t, m.app.Store.Snapshot().Documents, 1)
}

func TestUploadFailureKeepsText(t *testing.T) {
	m, b := newTestModel(t)
	b.Fail(api.PathUpload, testutil.Failure{Status: 500, Body: `{"error":"model unavailable"}`})

	m.Update(keyRunes("2"))
	m.upload.text.SetValue("notes")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	run(t, m, cmd)

	assert.Equal(t, app.Failure("Error analyzing document: model unavailable"), m.status)
	assert.Equal(t, "notes", m.upload.text.Value())
}

func TestChatSendDisablesInput(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(keyRunes("3"))
	require.Equal(t, ViewChat, m.view)

	m.chat.input.SetValue("What are my medications?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.app.Chat.Conversation().Sending())
	assert.False(t, m.chat.typing())
	assert.Contains(t, ansi.Strip(m.View()), "thinking")

	run(t, m, cmd)
	assert.False(t, m.app.Chat.Conversation().Sending())
	assert.True(t, m.chat.typing())

	msgs := m.app.Chat.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.KindAI, msgs[1].Kind)
	assert.Contains(t, ansi.Strip(m.View()), "You asked: What are my medications?")
}

func TestChatSuggestions(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(keyRunes("3"))

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, chat.Suggestions[0], m.chat.input.Value())
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, chat.Suggestions[len(chat.Suggestions)-1], m.chat.input.Value())
}

func TestDashboardSyncAndSignOut(t *testing.T) {
	m, b := newTestModel(t)
	b.SetSyncReply(map[string]any{"success": true, "events_created": 2})

	_, cmd := m.Update(keyRunes("s"))
	run(t, m, cmd)
	assert.Equal(t, app.Success("Successfully created 2 calendar events!"), m.status)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, app.Success("Signed out."), m.status)
	assert.True(t, m.app.Store.Snapshot().IsEmpty())
}

func TestTranscriptKinds(t *testing.T) {
	out := ansi.Strip(renderTranscript([]chat.Message{
		{ID: "1", Kind: chat.KindUser, Content: "hi"},
		{ID: "ai-1", Kind: chat.KindAI, Content: "**hello**"},
		{ID: "x", Kind: chat.KindError, Content: chat.ApologyText},
	}, 80))

	assert.Contains(t, out, "You")
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "**")
	assert.Contains(t, out, chat.ApologyText)
}

func TestDashboardStripsServerEscapes(t *testing.T) {
	const hostile = "\x1b]52;c;ZXZpbA==\x07\x1b[2J"
	assertClean := func(t *testing.T, out string) {
		t.Helper()
		assert.NotContains(t, out, "\x1b]52")
		assert.NotContains(t, out, "\x1b[2J")
		assert.NotContains(t, out, "\x07")
	}

	out := renderList("Recommendations", []string{"Take with food" + hostile}, "")
	assertClean(t, out)
	assert.Contains(t, ansi.Strip(out), "Take with food")

	out = renderMedications([]health.Medication{{Name: "Metformin" + hostile, Dosage: "500mg", Frequency: "daily", RefillDate: "2024-07-01" + hostile}})
	assertClean(t, out)
	assert.Contains(t, ansi.Strip(out), "Metformin 500mg, daily")

	assertClean(t, renderAppointments([]health.Appointment{{Type: "Follow-up" + hostile, Doctor: "Dr. Lee", Reason: hostile}}))
	assertClean(t, renderMetrics([]health.Metric{{Metric: "A1C" + hostile, Value: "6.1", Status: "normal"}}))

	m, b := newTestModel(t)
	snap := health.Empty()
	snap.Documents = []health.Document{{ID: "7" + hostile, Text: "rx" + hostile}}
	snap.Recommendations = []string{"walk" + hostile}
	b.SetData(snap)
	m.app.Refresh(context.Background())

	assertClean(t, m.dashboard.view())
	assertClean(t, m.upload.renderRecent())
}

func TestStatusLineStripsServerEscapes(t *testing.T) {
	out := renderStatus(app.Failure("Failed to load health data: db down\x1b]0;pwned\x07"))
	assert.NotContains(t, out, "\x1b]0")
	assert.Contains(t, ansi.Strip(out), "Failed to load health data: db down")
}
