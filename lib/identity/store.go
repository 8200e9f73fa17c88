// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/comnsense/lib/clock"
	"github.com/bureau-foundation/comnsense/lib/codec"
	"github.com/bureau-foundation/comnsense/lib/document"
)

// stateVersion is written into every state file. Files with a newer
// version are refused rather than silently truncated.
const stateVersion = 1

// Record is what the store remembers about one path.
type Record struct {
	ID string `cbor:"id"`

	// FirstSeen is the Unix time, in seconds, at which the id was
	// recorded.
	FirstSeen int64 `cbor:"first_seen"`
}

type state struct {
	Version   int               `cbor:"version"`
	Documents map[string]Record `cbor:"documents"`
}

// pathDocument is implemented by documents backed by a file.
type pathDocument interface {
	Path() string
}

// Store is a persistent path → id table. It is safe for concurrent use.
type Store struct {
	path  string
	clock clock.Clock
	local document.PropertyIdentity

	mu        sync.Mutex
	documents map[string]Record
}

// Open loads the store at path. A missing file is an empty store; the
// file is created on the first SetID.
func Open(path string, clk clock.Clock) (*Store, error) {
	store := &Store{
		path:      path,
		clock:     clk,
		documents: make(map[string]Record),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity store: %w", err)
	}

	var loaded state
	if err := codec.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing identity store %s: %w", path, err)
	}
	if loaded.Version > stateVersion {
		return nil, fmt.Errorf("identity store %s has version %d, this binary understands %d",
			path, loaded.Version, stateVersion)
	}
	for key, record := range loaded.Documents {
		store.documents[key] = record
	}
	return store, nil
}

// ID returns the id of doc: the custom property when present,
// otherwise the stored id for its backing file.
func (s *Store) ID(doc document.Document) (string, bool) {
	if id, ok := s.local.ID(doc); ok {
		return id, true
	}
	key, ok := documentKey(doc)
	if !ok {
		return "", false
	}
	record, ok := s.Lookup(key)
	return record.ID, ok
}

// SetID stores id on doc and, for file-backed documents, persists it.
func (s *Store) SetID(doc document.Document, id string) error {
	if err := s.local.SetID(doc, id); err != nil && !errors.Is(err, document.ErrNoProperties) {
		return err
	}
	key, ok := documentKey(doc)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.documents[key]; ok && existing.ID == id {
		return nil
	}
	s.documents[key] = Record{ID: id, FirstSeen: s.clock.Now().Unix()}
	return s.saveLocked()
}

// Lookup returns the record for an absolute path.
func (s *Store) Lookup(path string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.documents[path]
	return record, ok
}

// Forget drops the record for an absolute path.
func (s *Store) Forget(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[path]; !ok {
		return nil
	}
	delete(s.documents, path)
	return s.saveLocked()
}

// Len returns the number of remembered documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

func documentKey(doc document.Document) (string, bool) {
	backed, ok := doc.(pathDocument)
	if !ok || backed.Path() == "" {
		return "", false
	}
	absolute, err := filepath.Abs(backed.Path())
	if err != nil {
		return "", false
	}
	return absolute, true
}

func (s *Store) saveLocked() error {
	data, err := codec.Marshal(state{Version: stateVersion, Documents: s.documents})
	if err != nil {
		return fmt.Errorf("encoding identity store: %w", err)
	}
	return writeAtomic(s.path, data)
}

// writeAtomic writes data to a temporary file beside path, syncs it
// and renames it into place. Readers never see a partial write.
func writeAtomic(path string, data []byte) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary identity file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary identity file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary identity file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary identity file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming identity file into place: %w", err)
	}

	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
