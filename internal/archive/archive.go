// Package archive mirrors the health snapshot into PostgreSQL so it can be
// queried outside the backend. The mirror is write-only: nothing reads it back
// into the client.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/metrics"
)

// Archive wraps the database connection pool
type Archive struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Counts reports how many rows a mirror pass upserted per table
type Counts struct {
	Documents   int
	ChatRecords int
}

// Open creates the pool and verifies the connection
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Archive, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Archive{pool: pool, log: logger.With().Str("component", "archive").Logger()}, nil
}

// Close closes the pool
func (a *Archive) Close() {
	a.pool.Close()
}

// EnsureSchema creates the mirror tables when they do not exist
func (a *Archive) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Mirror upserts every document and chat record of snap under owner.
// All statements go out in a single batch.
func (a *Archive) Mirror(ctx context.Context, owner string, snap health.Snapshot) (Counts, error) {
	docs := dedupeDocuments(snap.Documents)
	records := dedupeChatRecords(snap.ChatHistory)

	batch := &pgx.Batch{}
	queued := 0

	for _, chunk := range chunkDocuments(docs, rowsPerStatement) {
		sql, args, err := buildDocumentUpsert(owner, chunk)
		if err != nil {
			return Counts{}, err
		}
		batch.Queue(sql, args...)
		queued++
	}
	for _, chunk := range chunkChatRecords(records, rowsPerStatement) {
		sql, args, err := buildChatUpsert(owner, chunk)
		if err != nil {
			return Counts{}, err
		}
		batch.Queue(sql, args...)
		queued++
	}

	if queued == 0 {
		return Counts{}, nil
	}

	br := a.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return Counts{}, fmt.Errorf("upsert statement %d: %w", i, err)
		}
	}

	counts := Counts{Documents: len(docs), ChatRecords: len(records)}
	metrics.RecordArchiveRows(tableDocuments, counts.Documents)
	metrics.RecordArchiveRows(tableChatRecords, counts.ChatRecords)

	a.log.Info().
		Str("owner", owner).
		Int("documents", counts.Documents).
		Int("chat_records", counts.ChatRecords).
		Msg("snapshot mirrored")
	return counts, nil
}

// Owner picks the partition key for a mirrored snapshot
func Owner(subject, email string) string {
	switch {
	case subject != "":
		return subject
	case email != "":
		return email
	default:
		return "local"
	}
}
