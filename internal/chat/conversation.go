package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthsync-ai/cli/internal/health"
)

var (
	// ErrBusy is returned by Begin while a previous turn is still sending
	ErrBusy = errors.New("a message is already being sent")
	// ErrEmptyMessage is returned by Begin for blank input
	ErrEmptyMessage = errors.New("message is empty")
)

// TurnState tracks one optimistic exchange
type TurnState int

const (
	TurnSending TurnState = iota
	TurnSettled
	TurnFailed
)

// Turn is an optimistic exchange not yet confirmed by a history reload
type Turn struct {
	ID    string
	User  Message
	Reply *Message
	State TurnState
	// baseline is how many history records existed when the turn began; only
	// records after it can confirm the turn.
	baseline int
}

// Conversation is the visible chat: exploded history followed by the overlay
type Conversation struct {
	mu      sync.Mutex
	records []health.ChatRecord
	history []Message
	turns   []*Turn

	newID func() string
	now   func() time.Time
}

// NewConversation creates an empty conversation
func NewConversation() *Conversation {
	return &Conversation{
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
}

// Begin appends the optimistic user entry and marks the turn as sending
func (c *Conversation) Begin(text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendingLocked() {
		return nil, ErrBusy
	}

	id := c.newID()
	turn := &Turn{
		ID:       id,
		User:     Message{ID: id, Kind: KindUser, Content: text, Timestamp: c.now()},
		State:    TurnSending,
		baseline: len(c.records),
	}
	c.turns = append(c.turns, turn)
	return turn.copy(), nil
}

// Settle attaches the assistant reply to a sending turn
func (c *Conversation) Settle(turnID, reply string) bool {
	return c.finish(turnID, TurnSettled, Message{Kind: KindAI, Content: reply})
}

// Fail attaches the apology entry to a sending turn. There is no retry.
func (c *Conversation) Fail(turnID string) bool {
	return c.finish(turnID, TurnFailed, Message{Kind: KindError, Content: ApologyText})
}

func (c *Conversation) finish(turnID string, state TurnState, reply Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.turns {
		if t.ID != turnID || t.State != TurnSending {
			continue
		}
		reply.ID = AIPrefix + c.newID()
		reply.Timestamp = c.now()
		t.Reply = &reply
		t.State = state
		return true
	}
	return false
}

// Sending reports whether a turn is outstanding
func (c *Conversation) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendingLocked()
}

func (c *Conversation) sendingLocked() bool {
	for _, t := range c.turns {
		if t.State == TurnSending {
			return true
		}
	}
	return false
}

// Reconcile rebuilds the conversation from reloaded history. A settled turn is
// dropped once a record newer than the turn carries the same exchange; each
// record confirms at most one turn. Sending and failed turns stay.
func (c *Conversation) Reconcile(records []health.ChatRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append([]health.ChatRecord(nil), records...)
	c.history = Explode(c.records)

	used := make([]bool, len(c.records))
	kept := c.turns[:0]
	for _, t := range c.turns {
		if t.State == TurnSettled && c.confirm(t, used) {
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(c.turns); i++ {
		c.turns[i] = nil
	}
	c.turns = kept
}

func (c *Conversation) confirm(t *Turn, used []bool) bool {
	for i := t.baseline; i < len(c.records); i++ {
		rec := c.records[i]
		if used[i] || rec.UserMessage != t.User.Content || rec.AIResponse != t.Reply.Content {
			continue
		}
		used[i] = true
		return true
	}
	return false
}

// Messages returns the visible conversation in order
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, 0, len(c.history)+2*len(c.turns))
	out = append(out, c.history...)
	for _, t := range c.turns {
		out = append(out, t.User)
		if t.Reply != nil {
			out = append(out, *t.Reply)
		}
	}
	return out
}

// Pending returns how many optimistic turns are still shown
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Empty reports whether nothing has been said yet
func (c *Conversation) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history) == 0 && len(c.turns) == 0
}

// Reset forgets history and overlay (sign-out)
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
	c.history = nil
	c.turns = nil
}

func (t *Turn) copy() *Turn {
	cp := *t
	if t.Reply != nil {
		r := *t.Reply
		cp.Reply = &r
	}
	return &cp
}
