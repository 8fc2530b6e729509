// Package storage persists consent-gated simplification records. The consent
// precondition is enforced by the orchestrator; every implementation here
// still refuses records without a valid expiry, as defense in depth.
package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidExpiry = errors.New("record expiry must be strictly after creation")
)

// RecordStore is the consent-gated persistence surface used by the pipeline.
type RecordStore interface {
	Persist(ctx context.Context, record domain.Record) error
	Get(ctx context.Context, sessionID string) (domain.Record, error)
	Purge(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int, error)
}

// FileStore keeps records in a single JSON file guarded by a mutex, written
// atomically through a temp-file rename. It backs local development and
// tests; production deployments point MONGO_URI at a Mongo store instead.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data map[string]domain.Record
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	s := &FileStore{
		path: filepath.Join(baseDir, "records.json"),
		data: map[string]domain.Record{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return errors.Wrap(err, "open records file")
	}
	if len(raw) == 0 {
		return s.saveLocked()
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return errors.Wrap(err, "decode records file")
	}
	if s.data == nil {
		s.data = map[string]domain.Record{}
	}
	return nil
}

func (s *FileStore) Persist(ctx context.Context, record domain.Record) error {
	if !record.ExpiresAt.After(record.CreatedAt) {
		return ErrInvalidExpiry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[record.SessionID] = record
	return s.saveLocked()
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[sessionID]
	if !ok || !record.ExpiresAt.After(time.Now()) {
		return domain.Record{}, ErrNotFound
	}
	return record, nil
}

func (s *FileStore) Purge(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[sessionID]; !ok {
		return nil
	}
	delete(s.data, sessionID)
	return s.saveLocked()
}

func (s *FileStore) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, record := range s.data {
		if !record.ExpiresAt.After(now) {
			delete(s.data, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveLocked()
}

func (s *FileStore) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "records-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp records file")
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "encode records")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp records file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "replace records file")
	}
	return nil
}
