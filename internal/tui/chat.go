package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/chat"
)

// chatView is the conversation with the health assistant
type chatView struct {
	root *Model

	vp         viewport.Model
	input      textinput.Model
	suggestion int
	rendered   int
}

func newChatView(root *Model) *chatView {
	ti := textinput.New()
	ti.Placeholder = "Ask about your medications, results or appointments..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Width = 70

	return &chatView{
		root:       root,
		vp:         viewport.New(78, 14),
		input:      ti,
		suggestion: -1,
	}
}

func (cv *chatView) resize(width, height int) {
	cv.vp.Width = max(width-2, 20)
	cv.vp.Height = max(height-10, 5)
	cv.input.Width = max(width-6, 20)
	cv.rendered = -1
}

func (cv *chatView) sending() bool {
	return cv.root.app.Chat.Conversation().Sending()
}

func (cv *chatView) typing() bool {
	return cv.input.Focused()
}

func (cv *chatView) focus() tea.Cmd {
	if cv.sending() {
		return nil
	}
	return cv.input.Focus()
}

func (cv *chatView) clear() {
	cv.input.Reset()
	cv.suggestion = -1
	cv.rendered = -1
}

// finish re-enables the input once the turn has settled or failed
func (cv *chatView) finish() tea.Cmd {
	if cv.root.view != ViewChat {
		return nil
	}
	return cv.input.Focus()
}

func (cv *chatView) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			return cv.send()
		case "esc":
			cv.input.Blur()
			return nil
		case "up", "down":
			if cv.root.app.Chat.Conversation().Empty() {
				cv.cycleSuggestion(key.String() == "down")
				return nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			cv.vp, cmd = cv.vp.Update(msg)
			return cmd
		}
		if !cv.input.Focused() {
			if key.String() == "i" {
				return cv.focus()
			}
			return nil
		}
	}

	if cv.sending() {
		return nil
	}
	var cmd tea.Cmd
	cv.input, cmd = cv.input.Update(msg)
	return cmd
}

func (cv *chatView) cycleSuggestion(forward bool) {
	n := len(chat.Suggestions)
	switch {
	case forward:
		cv.suggestion = (cv.suggestion + 1) % n
	case cv.suggestion <= 0:
		cv.suggestion = n - 1
	default:
		cv.suggestion--
	}
	cv.input.SetValue(chat.Suggestions[cv.suggestion])
	cv.input.CursorEnd()
}

func (cv *chatView) send() tea.Cmd {
	m := cv.root
	turn, err := m.app.BeginChat(cv.input.Value())
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrBusy):
		return nil
	case err != nil:
		m.status = app.Failure(err.Error())
		return nil
	}

	cv.input.Reset()
	cv.input.Blur()
	cv.suggestion = -1
	m.status = app.Status{}
	return deliverCmd(m.ctx, m.app, turn)
}

func (cv *chatView) view() string {
	m := cv.root
	conv := m.app.Chat.Conversation()
	messages := conv.Messages()

	cv.vp.SetContent(renderTranscript(messages, cv.vp.Width))
	if len(messages) != cv.rendered {
		cv.vp.GotoBottom()
		cv.rendered = len(messages)
	}

	var lines []string
	lines = append(lines, headingStyle.Render("Health Assistant")+"  "+helpStyle.Render(m.app.Store.Snapshot().Summary()))

	if len(messages) == 0 {
		lines = append(lines, "", helpStyle.Render("Try asking:"))
		for i, s := range chat.Suggestions {
			style := helpStyle
			if i == cv.suggestion {
				style = activeTab
			}
			lines = append(lines, style.Render("  "+s))
		}
	} else {
		lines = append(lines, cv.vp.View())
	}

	lines = append(lines, "")
	if conv.Sending() {
		lines = append(lines, m.spin.View()+" HealthSync AI is thinking...")
	} else {
		lines = append(lines, cv.input.View())
	}
	return strings.Join(lines, "\n")
}

// renderTranscript renders messages oldest first. Assistant content goes
// through the markdown renderer, everything else is shown as typed.
func renderTranscript(messages []chat.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(max(width-2, 10))
	blocks := make([]string, 0, len(messages))

	for _, msg := range messages {
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = " " + helpStyle.Render(msg.Timestamp.Local().Format("15:04"))
		}

		var block string
		switch msg.Kind {
		case chat.KindUser:
			block = userLabel.Render("You") + stamp + "\n" + wrap.Render(chat.Sanitize(msg.Content))
		case chat.KindAI:
			block = aiLabel.Render("HealthSync AI") + stamp + "\n" + wrap.Render(renderMarkdown(msg.Content))
		case chat.KindError:
			block = errorStyle.Render(msg.Content)
		default:
			panic(fmt.Sprintf("tui: unknown message kind %d", int(msg.Kind)))
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}
