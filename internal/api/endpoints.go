package api

import (
	"context"
	"io"
	"net/http"

	"github.com/healthsync-ai/cli/internal/health"
)

// Backend endpoint paths
const (
	PathHealth         = "/health"
	PathHealthData     = "/health-data"
	PathUpload         = "/upload"
	PathImportFile     = "/import-file"
	PathChat           = "/chat"
	PathChatHistory    = "/chat-history"
	PathSyncCalendar   = "/sync-calendar"
	PathHealthInsights = "/health-insights"
)

// HealthStatus is the liveness response
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AnalyzeResponse is returned by /upload and /import-file. Analysis is nil when
// the server omitted it.
type AnalyzeResponse struct {
	Message    string                 `json:"message,omitempty"`
	Analysis   *health.AnalysisResult `json:"analysis"`
	DocumentID health.Scalar          `json:"document_id,omitempty"`
}

// ChatResponse is returned by /chat
type ChatResponse struct {
	Response string        `json:"response"`
	ChatID   health.Scalar `json:"chat_id,omitempty"`
}

// SyncResponse is returned by /sync-calendar. Every field is optional.
type SyncResponse struct {
	Success       *bool  `json:"success,omitempty"`
	EventsCreated *int   `json:"events_created,omitempty"`
	Error         string `json:"error,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Health checks that the backend is reachable
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.Call(ctx, http.MethodGet, PathHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthData fetches the full snapshot. Absent collections come back empty.
func (c *Client) HealthData(ctx context.Context) (health.Snapshot, error) {
	var out health.Snapshot
	if err := c.Call(ctx, http.MethodGet, PathHealthData, nil, &out); err != nil {
		return health.Snapshot{}, err
	}
	out.Normalize()
	return out, nil
}

// UploadText submits pasted document text for analysis
func (c *Client) UploadText(ctx context.Context, text string) (*AnalyzeResponse, error) {
	var out AnalyzeResponse
	body := map[string]string{"text": text}
	if err := c.Call(ctx, http.MethodPost, PathUpload, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportFile submits a file for analysis as multipart field "file"
func (c *Client) ImportFile(ctx context.Context, filename string, r io.Reader) (*AnalyzeResponse, error) {
	var out AnalyzeResponse
	if err := c.Upload(ctx, PathImportFile, "file", filename, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one user message and returns the assistant reply
func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	var out ChatResponse
	body := map[string]string{"message": message}
	if err := c.Call(ctx, http.MethodPost, PathChat, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatHistory fetches the persisted chat records
func (c *Client) ChatHistory(ctx context.Context) ([]health.ChatRecord, error) {
	var out []health.ChatRecord
	if err := c.Call(ctx, http.MethodGet, PathChatHistory, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []health.ChatRecord{}
	}
	return out, nil
}

// SyncCalendar asks the backend to push the medication schedule to the calendar
func (c *Client) SyncCalendar(ctx context.Context) (*SyncResponse, error) {
	var out SyncResponse
	if err := c.Call(ctx, http.MethodPost, PathSyncCalendar, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthInsights asks the backend to generate insights over the stored data
func (c *Client) HealthInsights(ctx context.Context) (*health.InsightReport, error) {
	var out health.InsightReport
	if err := c.Call(ctx, http.MethodPost, PathHealthInsights, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
