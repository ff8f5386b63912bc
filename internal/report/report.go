// Package report exports the current snapshot as a printable PDF summary.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/healthsync-ai/cli/internal/health"
)

// Section is a titled block of lines
type Section struct {
	Title string
	Lines []string
}

// Document is the report content, independent of the output format
type Document struct {
	Title     string
	Generated time.Time
	Subject   string
	Sections  []Section
}

// Build lays out the snapshot and the latest insights (which may be nil)
func Build(snap health.Snapshot, insights *health.InsightReport, subject string, now time.Time) Document {
	doc := Document{
		Title:     "HealthSync Summary",
		Generated: now,
		Subject:   subject,
	}

	meds := Section{Title: "Medications"}
	for _, m := range snap.Medications {
		line := fmt.Sprintf("%s %s, %s", m.Name, m.Dosage, m.Frequency)
		if m.Instructions != "" {
			line += " (" + m.Instructions + ")"
		}
		if m.RefillDate != "" {
			line += "; refill " + m.RefillDate
		}
		meds.Lines = append(meds.Lines, strings.TrimSpace(line))
	}
	doc.Sections = append(doc.Sections, withPlaceholder(meds, "No medications recorded."))

	appts := Section{Title: "Appointments"}
	for _, a := range snap.Appointments {
		when := a.Date
		if t, ok := a.When(); ok {
			when = t.Format("Jan 2, 2006 15:04")
		}
		appts.Lines = append(appts.Lines, fmt.Sprintf("%s with %s on %s: %s", a.Type, a.Doctor, when, a.Reason))
	}
	doc.Sections = append(doc.Sections, withPlaceholder(appts, "No upcoming appointments."))

	metrics := Section{Title: "Health Metrics"}
	for _, m := range snap.HealthMetrics {
		metrics.Lines = append(metrics.Lines, fmt.Sprintf("%s: %s (%s) [%s] %s", m.Metric, m.Value, m.Status, m.Level(), m.Date))
	}
	doc.Sections = append(doc.Sections, withPlaceholder(metrics, "No metrics tracked."))

	recs := Section{Title: "Recommendations"}
	recs.Lines = append(recs.Lines, snap.Recommendations...)
	doc.Sections = append(doc.Sections, withPlaceholder(recs, "No recommendations yet."))

	if !insights.Empty() {
		doc.Sections = append(doc.Sections,
			Section{Title: "AI Insights", Lines: insights.Insights},
			Section{Title: "Trends", Lines: insights.Trends},
			Section{Title: "Alerts", Lines: insights.Alerts},
			Section{Title: "Suggested Actions", Lines: insights.Recommendations},
		)
	}

	kept := doc.Sections[:0]
	for _, s := range doc.Sections {
		if len(s.Lines) > 0 {
			kept = append(kept, s)
		}
	}
	doc.Sections = kept
	return doc
}

func withPlaceholder(s Section, empty string) Section {
	if len(s.Lines) == 0 {
		s.Lines = []string{empty}
	}
	return s
}
