package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Scalar holds a JSON value that the backend may send either as a number or a string
// (record ids, metric values). It always keeps the textual form.
type Scalar string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Scalar(num.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = Scalar(fmt.Sprintf("%t", b))
		return nil
	}
	return fmt.Errorf("unsupported scalar value: %s", string(data))
}

// String returns the textual form
func (s Scalar) String() string {
	return string(s)
}

// Medication is a prescribed drug extracted from a document
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Instructions string `json:"instructions,omitempty"`
	RefillDate   string `json:"refill_date,omitempty"`
}

// Appointment is a scheduled visit. Date is the ISO datetime as sent by the server.
type Appointment struct {
	Type   string `json:"type"`
	Doctor string `json:"doctor"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// When parses Date. The second return value is false when the server sent
// something that is not an ISO date or datetime.
func (a Appointment) When() (time.Time, bool) {
	return parseISO(a.Date)
}

// Metric is a single health measurement. Status is free text from the server.
type Metric struct {
	Metric string `json:"metric"`
	Value  Scalar `json:"value"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// AnalysisResult is the normalized extraction output for one document
type AnalysisResult struct {
	Medications     []Medication  `json:"medications"`
	Appointments    []Appointment `json:"appointments"`
	HealthMetrics   []Metric      `json:"health_metrics"`
	Recommendations []string      `json:"recommendations"`
}

// MedicationCount tolerates an absent medications list
func (a *AnalysisResult) MedicationCount() int {
	if a == nil {
		return 0
	}
	return len(a.Medications)
}

// Normalize replaces absent lists with empty ones
func (a *AnalysisResult) Normalize() {
	if a.Medications == nil {
		a.Medications = []Medication{}
	}
	if a.Appointments == nil {
		a.Appointments = []Appointment{}
	}
	if a.HealthMetrics == nil {
		a.HealthMetrics = []Metric{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
}

// Document is an uploaded document together with its analysis
type Document struct {
	ID         Scalar         `json:"id"`
	Text       string         `json:"text"`
	Analysis   AnalysisResult `json:"analysis"`
	UploadedAt string         `json:"uploaded_at"`
}

// ChatRecord is one persisted chat turn (both sides)
type ChatRecord struct {
	ID          Scalar `json:"id"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	Timestamp   string `json:"timestamp"`
}

// InsightReport is the AI-generated observation set over the current snapshot
type InsightReport struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	Trends          []string `json:"trends"`
	Alerts          []string `json:"alerts"`
}

// Empty reports whether the report carries nothing to show
func (r *InsightReport) Empty() bool {
	return r == nil || len(r.Insights)+len(r.Recommendations)+len(r.Trends)+len(r.Alerts) == 0
}

// SyncOutcome is the interpreted result of a calendar sync
type SyncOutcome struct {
	Success       bool   `json:"success"`
	EventsCreated int    `json:"events_created"`
	Error         string `json:"error,omitempty"`
}

// Snapshot is the complete client-visible health state. It is only ever replaced as a whole.
type Snapshot struct {
	Documents       []Document    `json:"documents"`
	Medications     []Medication  `json:"medications"`
	Appointments    []Appointment `json:"appointments"`
	HealthMetrics   []Metric      `json:"health_metrics"`
	Recommendations []string      `json:"recommendations"`
	ChatHistory     []ChatRecord  `json:"chat_history"`
}

// Empty returns a snapshot with every collection present and empty
func Empty() Snapshot {
	return Snapshot{
		Documents:       []Document{},
		Medications:     []Medication{},
		Appointments:    []Appointment{},
		HealthMetrics:   []Metric{},
		Recommendations: []string{},
		ChatHistory:     []ChatRecord{},
	}
}

// IsEmpty reports whether every collection is empty
func (s Snapshot) IsEmpty() bool {
	return len(s.Documents) == 0 &&
		len(s.Medications) == 0 &&
		len(s.Appointments) == 0 &&
		len(s.HealthMetrics) == 0 &&
		len(s.Recommendations) == 0 &&
		len(s.ChatHistory) == 0
}

// Normalize replaces absent collections with empty ones so callers never see nil slices
func (s *Snapshot) Normalize() {
	if s.Documents == nil {
		s.Documents = []Document{}
	}
	for i := range s.Documents {
		s.Documents[i].Analysis.Normalize()
	}
	if s.Medications == nil {
		s.Medications = []Medication{}
	}
	if s.Appointments == nil {
		s.Appointments = []Appointment{}
	}
	if s.HealthMetrics == nil {
		s.HealthMetrics = []Metric{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	if s.ChatHistory == nil {
		s.ChatHistory = []ChatRecord{}
	}
}

// Clone returns a deep copy so readers cannot mutate the store's aggregate
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Documents:       make([]Document, len(s.Documents)),
		Medications:     append([]Medication{}, s.Medications...),
		Appointments:    append([]Appointment{}, s.Appointments...),
		HealthMetrics:   append([]Metric{}, s.HealthMetrics...),
		Recommendations: append([]string{}, s.Recommendations...),
		ChatHistory:     append([]ChatRecord{}, s.ChatHistory...),
	}
	for i, doc := range s.Documents {
		doc.Analysis = AnalysisResult{
			Medications:     append([]Medication{}, doc.Analysis.Medications...),
			Appointments:    append([]Appointment{}, doc.Analysis.Appointments...),
			HealthMetrics:   append([]Metric{}, doc.Analysis.HealthMetrics...),
			Recommendations: append([]string{}, doc.Analysis.Recommendations...),
		}
		out.Documents[i] = doc
	}
	return out
}

// Summary renders the short profile line shown above the chat
func (s Snapshot) Summary() string {
	var parts []string
	if n := len(s.Medications); n > 0 {
		parts = append(parts, fmt.Sprintf("%d active medication%s", n, plural(n)))
	}
	if n := len(s.Appointments); n > 0 {
		parts = append(parts, fmt.Sprintf("%d upcoming appointment%s", n, plural(n)))
	}
	if n := len(s.HealthMetrics); n > 0 {
		parts = append(parts, fmt.Sprintf("%d health metric%s tracked", n, plural(n)))
	}
	if len(parts) == 0 {
		return "No health data available yet"
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the ISO date and datetime forms the backend emits
func ParseTime(value string) (time.Time, bool) {
	return parseISO(value)
}

func parseISO(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
