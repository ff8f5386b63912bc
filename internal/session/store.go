package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
)

var currentKey = []byte("session_current")

// Store persists the current session in a LevelDB directory
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the session database at dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the saved session, or nil when nobody is signed in
func (s *Store) Load() (*Session, error) {
	data, err := s.db.Get(currentKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Save replaces the saved session
func (s *Store) Save(sess *Session) error {
	if sess == nil {
		return s.Clear()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.db.Put(currentKey, data, nil); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear removes the saved session
func (s *Store) Clear() error {
	if err := s.db.Delete(currentKey, nil); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
