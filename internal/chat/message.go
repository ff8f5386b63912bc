// Package chat keeps the visible conversation: persisted history plus the
// optimistic turns that have not been reloaded from the server yet.
package chat

import (
	"time"

	"github.com/healthsync-ai/cli/internal/health"
)

// Kind is who (or what) produced a message
type Kind int

const (
	KindUser Kind = iota
	KindAI
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAI:
		return "ai"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Message represents one entry in the visible conversation
type Message struct {
	ID        string
	Kind      Kind
	Content   string
	Timestamp time.Time
}

// AIPrefix prefixes the id of every assistant entry
const AIPrefix = "ai-"

// Explode expands each persisted record into its user entry (id k) followed by
// its ai entry (id ai-k). The result depends only on the records.
func Explode(records []health.ChatRecord) []Message {
	out := make([]Message, 0, len(records)*2)
	for _, rec := range records {
		id := rec.ID.String()
		ts, _ := health.ParseTime(rec.Timestamp)
		out = append(out,
			Message{ID: id, Kind: KindUser, Content: rec.UserMessage, Timestamp: ts},
			Message{ID: AIPrefix + id, Kind: KindAI, Content: rec.AIResponse, Timestamp: ts},
		)
	}
	return out
}

// ApologyText replaces the assistant reply when a turn fails
const ApologyText = "Sorry, I'm having trouble responding right now. Please try again."

// Suggestions are offered while the conversation is empty
var Suggestions = []string{
	"When should I take my blood pressure medication?",
	"What exercises are safe for my condition?",
	"How often should I check my blood sugar?",
	"What foods should I avoid with my medications?",
	"When is my next refill due?",
	"What symptoms should I watch for?",
}
