package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/testutil"
)

func record(id, user, ai string) health.ChatRecord {
	return health.ChatRecord{ID: health.Scalar(id), UserMessage: user, AIResponse: ai}
}

func kinds(msgs []Message) []Kind {
	out := make([]Kind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}

func TestExplode(t *testing.T) {
	records := []health.ChatRecord{record("1", "hi", "hello"), record("2", "pills?", "take them")}

	msgs := Explode(records)
	require.Len(t, msgs, 4)
	assert.Equal(t, Message{ID: "1", Kind: KindUser, Content: "hi"}, msgs[0])
	assert.Equal(t, Message{ID: "ai-1", Kind: KindAI, Content: "hello"}, msgs[1])
	assert.Equal(t, "2", msgs[2].ID)
	assert.Equal(t, "ai-2", msgs[3].ID)

	assert.Equal(t, msgs, Explode(records))
}

func TestBeginRejectsBlankAndBusy(t *testing.T) {
	c := NewConversation()

	_, err := c.Begin("  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	turn, err := c.Begin("first")
	require.NoError(t, err)
	assert.True(t, c.Sending())

	_, err = c.Begin("second")
	assert.ErrorIs(t, err, ErrBusy)

	require.True(t, c.Settle(turn.ID, "reply"))
	assert.False(t, c.Sending())
	assert.False(t, c.Settle(turn.ID, "again"))

	_, err = c.Begin("second")
	assert.NoError(t, err)
}

func TestOptimisticIDsAreUnique(t *testing.T) {
	c := NewConversation()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		turn, err := c.Begin(fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		require.False(t, seen[turn.ID])
		seen[turn.ID] = true
		c.Settle(turn.ID, "ok")
	}

	for _, m := range c.Messages() {
		if m.Kind == KindAI {
			assert.Regexp(t, `^ai-`, m.ID)
		}
	}
}

func TestSendYieldsExactlyOneFollowUp(t *testing.T) {
	c := NewConversation()

	ok, err := c.Begin("works")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindUser}, kinds(c.Messages()))
	c.Settle(ok.ID, "sure")
	assert.Equal(t, []Kind{KindUser, KindAI}, kinds(c.Messages()))

	bad, err := c.Begin("breaks")
	require.NoError(t, err)
	c.Fail(bad.ID)
	c.Settle(bad.ID, "late reply")

	msgs := c.Messages()
	assert.Equal(t, []Kind{KindUser, KindAI, KindUser, KindError}, kinds(msgs))
	assert.Equal(t, ApologyText, msgs[3].Content)
}

func TestReconcileSuppressesConfirmedTurns(t *testing.T) {
	c := NewConversation()
	c.Reconcile([]health.ChatRecord{record("1", "hi", "hello")})

	turn, err := c.Begin("hi")
	require.NoError(t, err)
	c.Settle(turn.ID, "hello")

	// history not yet updated: the older identical record must not confirm the turn
	c.Reconcile([]health.ChatRecord{record("1", "hi", "hello")})
	assert.Equal(t, 1, c.Pending())
	assert.Len(t, c.Messages(), 4)

	c.Reconcile([]health.ChatRecord{record("1", "hi", "hello"), record("2", "hi", "hello")})
	assert.Equal(t, 0, c.Pending())

	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "2", msgs[2].ID)
	assert.Equal(t, "ai-2", msgs[3].ID)
}

func TestReconcileKeepsSendingAndFailedTurns(t *testing.T) {
	c := NewConversation()

	failed, err := c.Begin("lost")
	require.NoError(t, err)
	c.Fail(failed.ID)

	sending, err := c.Begin("in flight")
	require.NoError(t, err)

	c.Reconcile([]health.ChatRecord{record("1", "in flight", "")})
	assert.Equal(t, 2, c.Pending())
	assert.Equal(t, []Kind{KindUser, KindAI, KindUser, KindError, KindUser}, kinds(c.Messages()))
	assert.True(t, c.Sending())

	c.Settle(sending.ID, "answer")
	c.Reconcile([]health.ChatRecord{record("1", "in flight", "answer")})
	assert.Equal(t, 1, c.Pending())
}

func TestReconcileEachRecordConfirmsOneTurn(t *testing.T) {
	c := NewConversation()
	for i := 0; i < 2; i++ {
		turn, err := c.Begin("same")
		require.NoError(t, err)
		c.Settle(turn.ID, "answer")
	}

	c.Reconcile([]health.ChatRecord{record("1", "same", "answer")})
	assert.Equal(t, 1, c.Pending())

	c.Reconcile([]health.ChatRecord{record("1", "same", "answer"), record("2", "same", "answer")})
	assert.Equal(t, 0, c.Pending())
}

func TestReset(t *testing.T) {
	c := NewConversation()
	c.Reconcile([]health.ChatRecord{record("1", "a", "b")})
	_, _ = c.Begin("x")
	c.Reset()
	assert.True(t, c.Empty())
	assert.False(t, c.Sending())
}

func TestManagerSend(t *testing.T) {
	b := testutil.NewBackend(t)
	m := NewManager(NewConversation(), api.NewClient(api.Options{BaseURL: b.URL()}), zerolog.Nop())

	reply, err := m.Send(context.Background(), "When is my next refill due?")
	require.NoError(t, err)
	assert.Equal(t, KindAI, reply.Kind)
	assert.Equal(t, "You asked: When is my next refill due?", reply.Content)

	history := b.Data().ChatHistory
	m.Conversation().Reconcile(history)
	assert.Equal(t, 0, m.Conversation().Pending())
	assert.Len(t, m.Conversation().Messages(), 2)
}

func TestManagerSendFailure(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Fail(api.PathChat, testutil.Failure{Status: 500, Body: `{"error":"quota exceeded"}`})
	m := NewManager(NewConversation(), api.NewClient(api.Options{BaseURL: b.URL()}), zerolog.Nop())

	reply, err := m.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrHTTP))
	assert.Equal(t, KindError, reply.Kind)
	assert.Equal(t, ApologyText, reply.Content)
	assert.Equal(t, 1, b.Hits(api.PathChat))
}
