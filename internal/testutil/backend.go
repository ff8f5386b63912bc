// Package testutil provides an in-process HealthSync backend for tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthsync-ai/cli/internal/health"
)

// Failure is a canned error response for one endpoint
type Failure struct {
	Status int
	// Body is written verbatim; use it to test malformed error payloads.
	Body string
}

// Backend is a fake server that keeps its aggregate in memory and follows the
// same append semantics as the real one.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	data      health.Snapshot
	failures  map[string][]Failure
	omitKeys  map[string]bool
	hits      map[string]int
	authSeen  []string
	uploads   []string
	delays    map[string]time.Duration
	analysis  health.AnalysisResult
	insights  health.InsightReport
	syncReply map[string]any
	reply     func(message string) string
}

// NewBackend starts a fake backend that is closed when the test ends
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		data:     health.Empty(),
		failures: make(map[string][]Failure),
		omitKeys: make(map[string]bool),
		hits:     make(map[string]int),
		delays:   make(map[string]time.Duration),
		analysis: health.AnalysisResult{
			Medications:     []health.Medication{},
			Appointments:    []health.Appointment{},
			HealthMetrics:   []health.Metric{},
			Recommendations: []string{},
		},
		reply: func(message string) string { return "You asked: " + message },
	}

	r := chi.NewRouter()
	r.Use(b.record)
	r.Get("/health", b.handleHealth)
	r.Get("/health-data", b.handleHealthData)
	r.Post("/upload", b.handleUpload)
	r.Post("/import-file", b.handleImportFile)
	r.Post("/chat", b.handleChat)
	r.Get("/chat-history", b.handleChatHistory)
	r.Post("/sync-calendar", b.handleSyncCalendar)
	r.Post("/health-insights", b.handleInsights)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the server root
func (b *Backend) URL() string {
	return b.Server.URL
}

// SetAnalysis sets what /upload and /import-file extract
func (b *Backend) SetAnalysis(a health.AnalysisResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a.Normalize()
	b.analysis = a
}

// OmitAnalysis makes the analyze endpoints answer 200 without an analysis field
func (b *Backend) OmitAnalysis() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitKeys["analysis"] = true
}

// SetData replaces the stored aggregate
func (b *Backend) SetData(s health.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.Normalize()
	b.data = s.Clone()
}

// Data returns a copy of the stored aggregate
func (b *Backend) Data() health.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Clone()
}

// SetInsights sets the /health-insights response
func (b *Backend) SetInsights(r health.InsightReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insights = r
}

// SetSyncReply overrides the /sync-calendar body
func (b *Backend) SetSyncReply(body map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncReply = body
}

// SetReply sets how /chat answers
func (b *Backend) SetReply(fn func(message string) string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reply = fn
}

// Fail queues a failure for the next request to path
func (b *Backend) Fail(path string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = append(b.failures[path], f)
}

// Delay holds responses for path
func (b *Backend) Delay(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[path] = d
}

// Hits returns how many requests reached path
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// Authorizations returns every Authorization header seen, in order
func (b *Backend) Authorizations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.authSeen...)
}

// Uploads returns the contents of every file posted to /import-file
func (b *Backend) Uploads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.uploads...)
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		b.authSeen = append(b.authSeen, r.Header.Get("Authorization"))
		delay := b.delays[r.URL.Path]
		var failure *Failure
		if queued := b.failures[r.URL.Path]; len(queued) > 0 {
			failure = &queued[0]
			b.failures[r.URL.Path] = queued[1:]
		}
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failure != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failure.Status)
			_, _ = io.WriteString(w, failure.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "HealthSync AI is running!"})
}

func (b *Backend) handleHealthData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Data())
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No document text provided"})
		return
	}
	writeJSON(w, http.StatusOK, b.store(req.Text))
}

func (b *Backend) handleImportFile(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	b.mu.Lock()
	b.uploads = append(b.uploads, string(data))
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, b.store(string(data)))
}

// store appends a document and extends the derived collections
func (b *Backend) store(text string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	analysis := b.analysis
	id := len(b.data.Documents) + 1
	b.data.Documents = append(b.data.Documents, health.Document{
		ID:         health.Scalar(strconv.Itoa(id)),
		Text:       text,
		Analysis:   analysis,
		UploadedAt: time.Now().Format("2006-01-02T15:04:05.000000"),
	})
	b.data.Medications = append(b.data.Medications, analysis.Medications...)
	b.data.Appointments = append(b.data.Appointments, analysis.Appointments...)
	b.data.HealthMetrics = append(b.data.HealthMetrics, analysis.HealthMetrics...)
	b.data.Recommendations = append(b.data.Recommendations, analysis.Recommendations...)

	resp := map[string]any{
		"message":     "Document analyzed successfully",
		"document_id": id,
	}
	if !b.omitKeys["analysis"] {
		resp["analysis"] = analysis
	}
	return resp
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No message provided"})
		return
	}

	b.mu.Lock()
	reply := b.reply(req.Message)
	id := len(b.data.ChatHistory) + 1
	b.data.ChatHistory = append(b.data.ChatHistory, health.ChatRecord{
		ID:          health.Scalar(strconv.Itoa(id)),
		UserMessage: req.Message,
		AIResponse:  reply,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"response": reply, "chat_id": id})
}

func (b *Backend) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Data().ChatHistory)
}

func (b *Backend) handleSyncCalendar(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	body := b.syncReply
	if body == nil {
		body = map[string]any{
			"message":        "Calendar synced successfully",
			"events_created": len(b.data.Medications),
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) handleInsights(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	report := b.insights
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, report)
}
