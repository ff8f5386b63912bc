package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/chat"
	"github.com/healthsync-ai/cli/internal/health"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	activeTab    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Underline(true)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	userLabel    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	aiLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	boldSpan       = lipgloss.NewStyle().Bold(true)
	italicSpan     = lipgloss.NewStyle().Italic(true)
	boldItalicSpan = lipgloss.NewStyle().Bold(true).Italic(true)
)

// metricStyle colors a metric by its classified status
func metricStyle(level health.MetricLevel) lipgloss.Style {
	switch level {
	case health.MetricNormal:
		return successStyle
	case health.MetricElevated:
		return errorStyle
	case health.MetricLow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	default:
		return helpStyle
	}
}

// renderMarkdown turns assistant text into styled terminal output. Markup
// characters are consumed by the parser and never reach the terminal.
func renderMarkdown(text string) string {
	var b strings.Builder
	for _, span := range chat.ParseMarkdown(text) {
		switch {
		case span.Bold && span.Italic:
			b.WriteString(renderLines(boldItalicSpan, span.Text))
		case span.Bold:
			b.WriteString(renderLines(boldSpan, span.Text))
		case span.Italic:
			b.WriteString(renderLines(italicSpan, span.Text))
		default:
			b.WriteString(span.Text)
		}
	}
	return b.String()
}

// lipgloss pads multi-line blocks to a common width, so style line by line.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderStatus(st app.Status) string {
	switch st.Kind {
	case app.StatusSuccess:
		return successStyle.Render(clean(st.Message))
	case app.StatusError:
		return errorStyle.Render(clean(st.Message))
	default:
		return ""
	}
}
