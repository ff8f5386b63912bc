package chat

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/api"
)

// Sender delivers one message to the assistant
type Sender interface {
	Chat(ctx context.Context, message string) (*api.ChatResponse, error)
}

// Manager sends turns through the backend and records them in a Conversation
type Manager struct {
	conv   *Conversation
	sender Sender
	log    zerolog.Logger
}

// NewManager creates a manager over conv
func NewManager(conv *Conversation, sender Sender, logger zerolog.Logger) *Manager {
	return &Manager{
		conv:   conv,
		sender: sender,
		log:    logger.With().Str("component", "chat").Logger(),
	}
}

// Conversation returns the managed conversation
func (m *Manager) Conversation() *Conversation {
	return m.conv
}

// Begin starts an optimistic turn without sending it
func (m *Manager) Begin(text string) (*Turn, error) {
	return m.conv.Begin(text)
}

// Deliver sends a begun turn and settles or fails it. The returned message is
// the assistant reply or the apology entry; err carries the failure cause.
func (m *Manager) Deliver(ctx context.Context, turn *Turn) (Message, error) {
	resp, err := m.sender.Chat(ctx, turn.User.Content)
	if err != nil {
		m.log.Error().Err(err).Str("turn", turn.ID).Msg("chat request failed")
		m.conv.Fail(turn.ID)
		return m.reply(turn.ID), err
	}

	m.conv.Settle(turn.ID, resp.Response)
	m.log.Debug().Str("turn", turn.ID).Str("chat_id", resp.ChatID.String()).Msg("chat turn settled")
	return m.reply(turn.ID), nil
}

// Send runs a whole turn synchronously
func (m *Manager) Send(ctx context.Context, text string) (Message, error) {
	turn, err := m.Begin(text)
	if err != nil {
		return Message{}, err
	}
	return m.Deliver(ctx, turn)
}

func (m *Manager) reply(turnID string) Message {
	m.conv.mu.Lock()
	defer m.conv.mu.Unlock()
	for _, t := range m.conv.turns {
		if t.ID == turnID && t.Reply != nil {
			return *t.Reply
		}
	}
	return Message{}
}
