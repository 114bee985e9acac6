package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/codec"
)

// Backend persists the full record list.
type Backend interface {
	Load() ([]board.PipelineRecord, error)
	Flush(records []board.PipelineRecord) error
}

// FileBackend stores the record list as a JSON array of board envelopes,
// so the on-disk format matches the download/upload format exactly.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to boards.json under baseDir.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("store: create base directory: %w", err)
	}
	return &FileBackend{path: filepath.Join(abs, "boards.json")}, nil
}

// Load reads and parses the persisted envelope list. A missing file is an
// empty list. Envelopes that fail to parse are skipped.
func (b *FileBackend) Load() ([]board.PipelineRecord, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", b.path, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", b.path, err)
	}

	records := make([]board.PipelineRecord, 0, len(raws))
	for _, raw := range raws {
		record, err := codec.Parse(string(raw))
		if err != nil {
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// Flush writes the record list as an envelope array.
func (b *FileBackend) Flush(records []board.PipelineRecord) error {
	envelopes := make([]codec.Envelope, len(records))
	for i, r := range records {
		envelopes[i] = codec.ToEnvelope(r)
	}
	data, err := json.MarshalIndent(envelopes, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode records: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", b.path, err)
	}
	return nil
}

// MemoryBackend keeps the record list in memory. Used in tests and as the
// default when no storage path is configured.
type MemoryBackend struct {
	records []board.PipelineRecord
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns the stored record list.
func (b *MemoryBackend) Load() ([]board.PipelineRecord, error) {
	out := make([]board.PipelineRecord, len(b.records))
	for i, r := range b.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// Flush replaces the stored record list.
func (b *MemoryBackend) Flush(records []board.PipelineRecord) error {
	b.records = make([]board.PipelineRecord, len(records))
	for i, r := range records {
		b.records[i] = r.Clone()
	}
	return nil
}
