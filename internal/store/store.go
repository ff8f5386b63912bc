// Package store owns the client's health snapshot. The snapshot is a cache of
// the server's aggregate: it is only ever replaced as a whole by Refresh.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/metrics"
)

// ErrStale is returned by Refresh when a newer refresh, or a Reset, already
// superseded the call. Its result, success or failure, was discarded.
var ErrStale = errors.New("refresh superseded by a newer one")

// Fetcher loads the full aggregate from the backend
type Fetcher interface {
	HealthData(ctx context.Context) (health.Snapshot, error)
}

// Store holds the current snapshot. Safe for concurrent use.
type Store struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu      sync.Mutex
	snap    health.Snapshot
	version uint64
	issued  uint64
	applied uint64
	lastErr error
	subs    []func(health.Snapshot)
}

// New creates a store holding the empty snapshot
func New(fetcher Fetcher, logger zerolog.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		log:     logger.With().Str("component", "store").Logger(),
		snap:    health.Empty(),
	}
}

// Refresh reloads the whole snapshot. On failure every collection is reset to
// empty. Each call takes a sequence number when issued; a completion older
// than one already applied is discarded, so overlapping refreshes settle on
// the newest request's result. A discarded completion returns ErrStale.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	snap, err := s.fetcher.HealthData(ctx)

	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		metrics.RecordRefresh(metrics.RefreshStale)
		s.log.Debug().Uint64("seq", seq).AnErr("fetch_err", err).Msg("discarding stale refresh")
		return ErrStale
	}
	s.applied = seq

	if err != nil {
		s.snap = health.Empty()
		s.lastErr = err
		metrics.RecordRefresh(metrics.RefreshFailed)
		s.log.Error().Err(err).Uint64("seq", seq).Msg("refresh failed, snapshot cleared")
	} else {
		snap.Normalize()
		s.snap = snap.Clone()
		s.lastErr = nil
		metrics.RecordRefresh(metrics.RefreshApplied)
		s.log.Debug().
			Uint64("seq", seq).
			Int("documents", len(snap.Documents)).
			Int("medications", len(snap.Medications)).
			Int("chat_records", len(snap.ChatHistory)).
			Msg("snapshot replaced")
	}
	s.version++
	current := s.snap.Clone()
	subs := append([]func(health.Snapshot){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
	return err
}

// Snapshot returns a copy of the current snapshot
func (s *Store) Snapshot() health.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Version increments every time the snapshot is replaced
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Err returns the error of the last applied refresh, if it failed
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to receive every replaced snapshot
func (s *Store) Subscribe(fn func(health.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Reset discards the snapshot (sign-out). Refreshes still in flight are ignored.
func (s *Store) Reset() {
	s.mu.Lock()
	s.snap = health.Empty()
	s.lastErr = nil
	s.applied = s.issued
	s.version++
	current := s.snap.Clone()
	subs := append([]func(health.Snapshot){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
}
