package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/healthsync-ai/cli/internal/health"
)

const hostile = "\x1b]52;c;ZXZpbA==\x07\x1b[2J"

func TestPrintSnapshotStripsEscapes(t *testing.T) {
	snap := health.Empty()
	snap.Medications = []health.Medication{{Name: "Metformin" + hostile, Dosage: "500mg", Frequency: "daily"}}
	snap.Appointments = []health.Appointment{{Type: "Follow-up", Doctor: "Dr. Lee" + hostile, Date: "2024-07-01", Reason: hostile}}
	snap.HealthMetrics = []health.Metric{{Metric: "A1C", Value: "6.1" + hostile, Status: "normal"}}
	snap.Recommendations = []string{"Take with food" + hostile}

	var buf bytes.Buffer
	printSnapshot(&buf, snap)
	out := buf.String()

	assert.NotContains(t, out, "\x1b")
	assert.NotContains(t, out, "\x07")
	assert.Contains(t, out, "  - Metformin 500mg, daily\n")
	assert.Contains(t, out, "  - Take with food\n")
}

func TestPrintInsightsStripsEscapes(t *testing.T) {
	var buf bytes.Buffer
	printInsights(&buf, &health.InsightReport{Alerts: []string{"Refill soon" + hostile}})

	out := buf.String()
	assert.NotContains(t, out, "\x1b")
	assert.Contains(t, out, "Alerts:\n  - Refill soon\n")

	buf.Reset()
	printInsights(&buf, &health.InsightReport{})
	assert.Equal(t, "No insights generated.\n", buf.String())
}
