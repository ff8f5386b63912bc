package archive

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync-ai/cli/internal/health"
)

func sampleSnapshot() health.Snapshot {
	snap := health.Empty()
	snap.Documents = []health.Document{
		{
			ID:         "1",
			Text:       "Lisinopril 10mg daily",
			UploadedAt: "2024-03-01T10:00:00",
			Analysis: health.AnalysisResult{
				Medications: []health.Medication{{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily"}},
			},
		},
		{ID: "2", Text: "follow-up"},
	}
	snap.ChatHistory = []health.ChatRecord{
		{ID: "10", UserMessage: "hi", AIResponse: "hello", Timestamp: "2024-03-01T10:05:00"},
	}
	snap.Normalize()
	return snap
}

func TestBuildDocumentUpsert(t *testing.T) {
	snap := sampleSnapshot()

	sql, args, err := buildDocumentUpsert("user-1", snap.Documents)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO archived_documents"))
	assert.Contains(t, sql, "$12")
	assert.NotContains(t, sql, "?")
	assert.Contains(t, sql, "ON CONFLICT (owner, id) DO UPDATE SET")
	require.Len(t, args, 12)

	assert.Equal(t, "user-1", args[0])
	assert.Equal(t, "1", args[1])
	assert.Equal(t, 1, args[4])

	var analysis health.AnalysisResult
	require.NoError(t, json.Unmarshal(args[3].(json.RawMessage), &analysis))
	assert.Equal(t, "Lisinopril", analysis.Medications[0].Name)
}

func TestBuildChatUpsert(t *testing.T) {
	snap := sampleSnapshot()

	sql, args, err := buildChatUpsert("user-1", snap.ChatHistory)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO archived_chat_records"))
	assert.Contains(t, sql, "$5")
	assert.Equal(t, []interface{}{"user-1", "10", "hi", "hello", "2024-03-01T10:05:00"}, args)
}

func TestDedupeKeepsLastOccurrence(t *testing.T) {
	docs := dedupeDocuments([]health.Document{
		{ID: "1", Text: "old"},
		{ID: ""},
		{ID: "2", Text: "other"},
		{ID: "1", Text: "new"},
	})
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].Text)
	assert.Equal(t, health.Scalar("2"), docs[1].ID)

	records := dedupeChatRecords([]health.ChatRecord{{ID: "5", AIResponse: "a"}, {ID: "5", AIResponse: "b"}})
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].AIResponse)
}

func TestChunking(t *testing.T) {
	docs := make([]health.Document, 1201)
	chunks := chunkDocuments(docs, rowsPerStatement)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 201)

	assert.Empty(t, chunkChatRecords(nil, rowsPerStatement))
}

func TestOwner(t *testing.T) {
	assert.Equal(t, "sub", Owner("sub", "a@b.c"))
	assert.Equal(t, "a@b.c", Owner("", "a@b.c"))
	assert.Equal(t, "local", Owner("", ""))
}

func TestMirrorAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("HEALTHSYNC_TEST_ARCHIVE_DSN")
	if dsn == "" {
		t.Skip("HEALTHSYNC_TEST_ARCHIVE_DSN not set")
	}

	ctx := context.Background()
	a, err := Open(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.EnsureSchema(ctx))

	counts, err := a.Mirror(ctx, "archive-test", sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, Counts{Documents: 2, ChatRecords: 1}, counts)

	// Mirroring again updates in place.
	counts, err = a.Mirror(ctx, "archive-test", sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Documents)
}
