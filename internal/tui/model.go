// Package tui is the interactive terminal client. Every view reads the
// app's components at render time, and every action runs as a tea.Cmd that
// calls into the app layer and reports back an outcomeMsg.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/errs"
)

// Model is the root bubbletea model
type Model struct {
	ctx  context.Context
	app  *app.App
	log  zerolog.Logger
	view View

	width  int
	height int

	status     app.Status
	refreshing bool
	spin       spinner.Model

	dashboard *dashboardView
	upload    *uploadView
	chat      *chatView
}

// New creates the root model
func New(ctx context.Context, a *app.App, logger zerolog.Logger) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &Model{
		ctx:    ctx,
		app:    a,
		log:    logger.With().Str("component", "tui").Logger(),
		view:   ViewDashboard,
		width:  80,
		height: 24,
		spin:   s,
	}
	m.dashboard = newDashboardView(m)
	m.upload = newUploadView(m)
	m.chat = newChatView(m)
	return m
}

// Run starts the program on the alternate screen and blocks until quit
func Run(ctx context.Context, a *app.App, logger zerolog.Logger) error {
	p := tea.NewProgram(New(ctx, a, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init loads the snapshot once at startup
func (m *Model) Init() tea.Cmd {
	m.refreshing = true
	return tea.Batch(m.spin.Tick, refreshCmd(m.ctx, m.app))
}

// Update handles updates
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.upload.resize(msg.Width, msg.Height)
		m.chat.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
		return m, m.updateView(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case outcomeMsg:
		return m, m.handleOutcome(msg)

	case insightsMsg:
		if msg.status.Kind != app.StatusNone {
			m.status = msg.status
		}
		return m, nil
	}

	return m, m.updateView(msg)
}

// typing reports whether a text field has focus, in which case plain
// characters belong to the field and not to the shortcuts.
func (m *Model) typing() bool {
	switch m.view {
	case ViewDashboard:
		return false
	case ViewUpload:
		return m.upload.typing()
	case ViewChat:
		return m.chat.typing()
	default:
		panic(fmt.Sprintf("tui: unknown view %d", int(m.view)))
	}
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true
	case "tab":
		return m.switchTo(m.view.Next()), true
	case "shift+tab":
		return m.switchTo(m.view.Prev()), true
	case "ctrl+r":
		return m.refresh(), true
	case "ctrl+l":
		m.signOut()
		return nil, true
	}

	if m.typing() {
		return nil, false
	}

	switch msg.String() {
	case "q":
		return tea.Quit, true
	case "r":
		return m.refresh(), true
	case "1", "2", "3":
		return m.switchTo(views[msg.String()[0]-'1']), true
	}
	return nil, false
}

func (m *Model) switchTo(v View) tea.Cmd {
	m.view = v
	switch v {
	case ViewDashboard:
		return nil
	case ViewUpload:
		return m.upload.focus()
	case ViewChat:
		return m.chat.focus()
	default:
		panic(fmt.Sprintf("tui: unknown view %d", int(v)))
	}
}

func (m *Model) updateView(msg tea.Msg) tea.Cmd {
	switch m.view {
	case ViewDashboard:
		return m.dashboard.update(msg)
	case ViewUpload:
		return m.upload.update(msg)
	case ViewChat:
		return m.chat.update(msg)
	default:
		panic(fmt.Sprintf("tui: unknown view %d", int(m.view)))
	}
}

func (m *Model) refresh() tea.Cmd {
	if m.refreshing {
		return nil
	}
	m.refreshing = true
	return refreshCmd(m.ctx, m.app)
}

func (m *Model) signOut() {
	if err := m.app.SignOut(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear saved session")
		m.status = app.Failure("Signed out, but the saved session could not be removed: " + err.Error())
		return
	}
	m.upload.clear()
	m.chat.clear()
	m.status = app.Success("Signed out.")
}

// handleOutcome clears the in-flight flag of the finished action, shows its
// status and starts any insight generation the reload made due.
func (m *Model) handleOutcome(msg outcomeMsg) tea.Cmd {
	var cmds []tea.Cmd
	switch msg.action {
	case actionRefresh:
		m.refreshing = false
	case actionUpload:
		m.upload.finish(msg.out)
	case actionSync:
	case actionChat:
		cmds = append(cmds, m.chat.finish())
	}

	if msg.out.Status.Kind != app.StatusNone {
		m.status = msg.out.Status
	} else if msg.out.RefreshErr != nil {
		m.status = app.Failure("Failed to load health data: " + errs.UserMessage(msg.out.RefreshErr))
	}

	if msg.out.Insights != nil {
		cmds = append(cmds, generateInsightsCmd(m.ctx, m.app, *msg.out.Insights))
	}
	return tea.Batch(cmds...)
}

// View renders the tab bar, the active view and the status line
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.body())
	b.WriteString("\n")

	if line := renderStatus(m.status); line != "" {
		b.WriteString("\n" + line)
	}
	if m.refreshing {
		b.WriteString("\n" + m.spin.View() + " Loading health data...")
	}
	b.WriteString("\n" + helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) body() string {
	switch m.view {
	case ViewDashboard:
		return m.dashboard.view()
	case ViewUpload:
		return m.upload.view()
	case ViewChat:
		return m.chat.view()
	default:
		panic(fmt.Sprintf("tui: unknown view %d", int(m.view)))
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(views)+1)
	tabs = append(tabs, titleStyle.Render("HealthSync"))
	for i, v := range views {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.view {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, inactiveTab.Render(label))
		}
	}
	if sess := m.app.Session(); sess != nil {
		tabs = append(tabs, helpStyle.Render(sess.Label()))
	}
	return strings.Join(tabs, "  ")
}

func (m *Model) help() string {
	switch m.view {
	case ViewDashboard:
		return "tab/1-3: views | r: refresh | i: insights | s: sync calendar | ctrl+l: sign out | q: quit"
	case ViewUpload:
		return "ctrl+s: analyze text | ctrl+o: switch field | enter: analyze file | ctrl+e: extract locally | ctrl+f: force | esc: leave field"
	case ViewChat:
		return "enter: send | up/down: suggestions | tab: views | ctrl+r: refresh | ctrl+c: quit"
	default:
		panic(fmt.Sprintf("tui: unknown view %d", int(m.view)))
	}
}
