package archive

import (
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/healthsync-ai/cli/internal/health"
)

const (
	tableDocuments   = "archived_documents"
	tableChatRecords = "archived_chat_records"

	// Keeps each statement well under the 65535 bind parameter limit.
	rowsPerStatement = 500
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS archived_documents (
		owner            TEXT NOT NULL,
		id               TEXT NOT NULL,
		text             TEXT NOT NULL DEFAULT '',
		analysis         JSONB NOT NULL,
		medication_count INTEGER NOT NULL DEFAULT 0,
		uploaded_at      TEXT NOT NULL DEFAULT '',
		archived_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner, id)
	)`,
	`CREATE TABLE IF NOT EXISTS archived_chat_records (
		owner        TEXT NOT NULL,
		id           TEXT NOT NULL,
		user_message TEXT NOT NULL DEFAULT '',
		ai_response  TEXT NOT NULL DEFAULT '',
		recorded_at  TEXT NOT NULL DEFAULT '',
		archived_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner, id)
	)`,
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func buildDocumentUpsert(owner string, docs []health.Document) (string, []interface{}, error) {
	q := psql.Insert(tableDocuments).
		Columns("owner", "id", "text", "analysis", "medication_count", "uploaded_at")

	for _, doc := range docs {
		analysis, err := json.Marshal(doc.Analysis)
		if err != nil {
			return "", nil, fmt.Errorf("encode analysis for document %s: %w", doc.ID, err)
		}
		q = q.Values(owner, doc.ID.String(), doc.Text, json.RawMessage(analysis),
			doc.Analysis.MedicationCount(), doc.UploadedAt)
	}

	q = q.Suffix(`ON CONFLICT (owner, id) DO UPDATE SET
		text = EXCLUDED.text,
		analysis = EXCLUDED.analysis,
		medication_count = EXCLUDED.medication_count,
		uploaded_at = EXCLUDED.uploaded_at,
		archived_at = now()`)

	sql, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build document upsert: %w", err)
	}
	return sql, args, nil
}

func buildChatUpsert(owner string, records []health.ChatRecord) (string, []interface{}, error) {
	q := psql.Insert(tableChatRecords).
		Columns("owner", "id", "user_message", "ai_response", "recorded_at")

	for _, rec := range records {
		q = q.Values(owner, rec.ID.String(), rec.UserMessage, rec.AIResponse, rec.Timestamp)
	}

	q = q.Suffix(`ON CONFLICT (owner, id) DO UPDATE SET
		user_message = EXCLUDED.user_message,
		ai_response = EXCLUDED.ai_response,
		recorded_at = EXCLUDED.recorded_at,
		archived_at = now()`)

	sql, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build chat upsert: %w", err)
	}
	return sql, args, nil
}

// A single INSERT cannot touch the same conflict key twice, so later
// occurrences of an id win. Rows without an id are skipped.
func dedupeDocuments(docs []health.Document) []health.Document {
	index := make(map[health.Scalar]int, len(docs))
	out := make([]health.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if i, ok := index[doc.ID]; ok {
			out[i] = doc
			continue
		}
		index[doc.ID] = len(out)
		out = append(out, doc)
	}
	return out
}

func dedupeChatRecords(records []health.ChatRecord) []health.ChatRecord {
	index := make(map[health.Scalar]int, len(records))
	out := make([]health.ChatRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if i, ok := index[rec.ID]; ok {
			out[i] = rec
			continue
		}
		index[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out
}

func chunkDocuments(docs []health.Document, size int) [][]health.Document {
	var chunks [][]health.Document
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		chunks = append(chunks, docs[start:end])
	}
	return chunks
}

func chunkChatRecords(records []health.ChatRecord, size int) [][]health.ChatRecord {
	var chunks [][]health.ChatRecord
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		chunks = append(chunks, records[start:end])
	}
	return chunks
}
