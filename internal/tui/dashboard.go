package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/healthsync-ai/cli/internal/chat"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/insights"
)

// dashboardView shows the snapshot and the insights panel
type dashboardView struct {
	root *Model
}

func newDashboardView(root *Model) *dashboardView {
	return &dashboardView{root: root}
}

func (dv *dashboardView) update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	m := dv.root
	switch key.String() {
	case "i":
		ticket, ok := m.app.Insights.Begin(true)
		if !ok {
			return nil
		}
		return generateInsightsCmd(m.ctx, m.app, ticket)
	case "s":
		if m.app.Calendar.Syncing() {
			return nil
		}
		return syncCmd(m.ctx, m.app)
	}
	return nil
}

func (dv *dashboardView) view() string {
	snap := dv.root.app.Store.Snapshot()

	left := []string{
		renderMedications(snap.Medications),
		renderAppointments(snap.Appointments),
		renderMetrics(snap.HealthMetrics),
		renderList("Recommendations", snap.Recommendations, "No recommendations yet."),
	}

	right := []string{dv.renderInsights(), dv.renderCalendar()}

	width := max(dv.root.width/2-2, 30)
	col := lipgloss.NewStyle().Width(width)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		col.Render(strings.Join(left, "\n\n")),
		"  ",
		col.Render(strings.Join(right, "\n\n")),
	)
}

// clean strips terminal control sequences from server-supplied text
func clean(s string) string {
	return chat.Sanitize(s)
}

func renderMedications(meds []health.Medication) string {
	lines := []string{headingStyle.Render(fmt.Sprintf("Medications (%d)", len(meds)))}
	if len(meds) == 0 {
		return strings.Join(append(lines, helpStyle.Render("No medications recorded.")), "\n")
	}
	for _, med := range meds {
		line := fmt.Sprintf("• %s %s, %s", clean(med.Name), clean(med.Dosage), clean(med.Frequency))
		if med.RefillDate != "" {
			line += helpStyle.Render("  refill " + clean(med.RefillDate))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderAppointments(appts []health.Appointment) string {
	lines := []string{headingStyle.Render(fmt.Sprintf("Appointments (%d)", len(appts)))}
	if len(appts) == 0 {
		return strings.Join(append(lines, helpStyle.Render("No upcoming appointments.")), "\n")
	}
	for _, a := range appts {
		when := clean(a.Date)
		if t, ok := a.When(); ok {
			when = t.Format("Mon Jan 2 15:04")
		}
		lines = append(lines, fmt.Sprintf("• %s with %s, %s", clean(a.Type), clean(a.Doctor), when))
		if a.Reason != "" {
			lines = append(lines, helpStyle.Render("  "+clean(a.Reason)))
		}
	}
	return strings.Join(lines, "\n")
}

func renderMetrics(metrics []health.Metric) string {
	lines := []string{headingStyle.Render("Health Metrics")}
	if len(metrics) == 0 {
		return strings.Join(append(lines, helpStyle.Render("No metrics tracked.")), "\n")
	}
	for _, mt := range metrics {
		value := metricStyle(mt.Level()).Render(fmt.Sprintf("%s (%s)", clean(mt.Value), clean(mt.Status)))
		lines = append(lines, fmt.Sprintf("• %s: %s %s", clean(mt.Metric), value, helpStyle.Render(clean(mt.Date))))
	}
	return strings.Join(lines, "\n")
}

func renderList(title string, items []string, empty string) string {
	lines := []string{headingStyle.Render(title)}
	if len(items) == 0 {
		return strings.Join(append(lines, helpStyle.Render(empty)), "\n")
	}
	for _, item := range items {
		lines = append(lines, "• "+clean(item))
	}
	return strings.Join(lines, "\n")
}

func (dv *dashboardView) renderInsights() string {
	orch := dv.root.app.Insights
	lines := []string{titleStyle.Render("AI Health Insights")}

	switch orch.State() {
	case insights.Idle:
		lines = append(lines, helpStyle.Render("Upload documents to get AI insights."))
		return panelStyle.Render(strings.Join(lines, "\n"))
	case insights.Loading:
		lines = append(lines, dv.root.spin.View()+" Generating insights...")
	case insights.Error:
		lines = append(lines, errorStyle.Render(orch.Banner()))
	case insights.Ready:
	}

	if report := orch.Report(); !report.Empty() {
		for _, group := range []struct {
			title string
			items []string
		}{
			{"Insights", report.Insights},
			{"Trends", report.Trends},
			{"Alerts", report.Alerts},
			{"Recommendations", report.Recommendations},
		} {
			if len(group.items) == 0 {
				continue
			}
			lines = append(lines, "", renderList(group.title, group.items, ""))
		}
	}

	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (dv *dashboardView) renderCalendar() string {
	if dv.root.app.Calendar.Syncing() {
		return dv.root.spin.View() + " Syncing medication schedule to calendar..."
	}
	return helpStyle.Render("Press s to sync medications to your calendar.")
}
