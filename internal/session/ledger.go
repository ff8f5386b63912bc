package session

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/healthsync-ai/cli/internal/health"
)

const ledgerPrefix = "submitted_"

// Submitted reports whether a file with this content hash was already sent,
// and the document id the backend assigned to it.
func (s *Store) Submitted(hash string) (health.Scalar, bool, error) {
	data, err := s.db.Get([]byte(ledgerPrefix+hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read submission ledger: %w", err)
	}
	return health.Scalar(data), true, nil
}

// MarkSubmitted records a submitted content hash
func (s *Store) MarkSubmitted(hash string, id health.Scalar) error {
	if err := s.db.Put([]byte(ledgerPrefix+hash), []byte(id), nil); err != nil {
		return fmt.Errorf("failed to write submission ledger: %w", err)
	}
	return nil
}
