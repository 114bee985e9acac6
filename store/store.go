package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/errors"
)

// Store is the local keyed list of saved pipelines.
type Store struct {
	mu      sync.RWMutex
	records map[string]board.PipelineRecord
	backend Backend
	now     func() int64
}

// New creates a store over the given backend and loads any persisted
// records. A nil backend falls back to an in-memory one.
func New(backend Backend) (*Store, error) {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		records: make(map[string]board.PipelineRecord),
		backend: backend,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
	loaded, err := backend.Load()
	if err != nil {
		return nil, err
	}
	for _, r := range loaded {
		if r.ID == "" {
			continue
		}
		s.records[r.ID] = r
	}
	return s, nil
}

// Save inserts or updates a record, stamping UpdatedAt (and CreatedAt on
// first save) and assigning a fresh id when the record has none. The
// stored record is returned.
func (s *Store) Save(record board.PipelineRecord) (board.PipelineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := record.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := s.now()
	if stored.CreatedAt == 0 {
		if existing, ok := s.records[stored.ID]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
	}
	stored.UpdatedAt = now

	s.records[stored.ID] = stored
	if err := s.flushLocked(); err != nil {
		return board.PipelineRecord{}, err
	}
	return stored.Clone(), nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (board.PipelineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return board.PipelineRecord{}, errors.NotFound("pipeline", id)
	}
	return record.Clone(), nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return errors.NotFound("pipeline", id)
	}
	delete(s.records, id)
	return s.flushLocked()
}

// List returns all records, most recently updated first.
func (s *Store) List() []board.PipelineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// ReplaceAll swaps the entire record set, used when the remote catalog
// replaces the local one. Records without ids are skipped.
func (s *Store) ReplaceAll(records []board.PipelineRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]board.PipelineRecord, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		stored := r.Clone()
		if stored.UpdatedAt == 0 {
			stored.UpdatedAt = s.now()
		}
		s.records[stored.ID] = stored
	}
	return s.flushLocked()
}

// Clear removes every record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]board.PipelineRecord)
	return s.flushLocked()
}

// Has reports whether a record with the given id exists.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Len returns the number of saved records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) listLocked() []board.PipelineRecord {
	out := make([]board.PipelineRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) flushLocked() error {
	return s.backend.Flush(s.listLocked())
}
