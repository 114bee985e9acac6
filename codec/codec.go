package codec

import (
	"encoding/json"
	"time"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/errors"
)

const (
	// BoardKind is the fixed discriminator of a board envelope.
	BoardKind = "zofia-board"
	// CurrentVersion is the highest envelope version this codec understands.
	CurrentVersion = 1
)

// Envelope is the portable container for a saved board.
type Envelope struct {
	Kind       string               `json:"kind"`
	Version    int                  `json:"version"`
	ExportedAt int64                `json:"exportedAt"`
	Pipeline   board.PipelineRecord `json:"pipeline"`
}

// ToEnvelope wraps a record in the current envelope, deep-cloning it so
// the envelope shares nothing with the live board.
func ToEnvelope(record board.PipelineRecord) Envelope {
	return Envelope{
		Kind:       BoardKind,
		Version:    CurrentVersion,
		ExportedAt: time.Now().UnixMilli(),
		Pipeline:   record.Clone(),
	}
}

// Serialize encodes a record as an envelope JSON string.
func Serialize(record board.PipelineRecord) (string, error) {
	data, err := json.Marshal(ToEnvelope(record))
	if err != nil {
		return "", errors.Internal(err)
	}
	return string(data), nil
}

// Parse decodes an envelope string back into a record. It fails with a
// format error when the JSON is malformed, the kind discriminator is
// wrong, or the version is newer than CurrentVersion. Missing optional
// fields are defaulted, and edges that violate the port-occupancy
// invariant are dropped, first seen winning in source order.
func Parse(raw string) (*board.PipelineRecord, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, errors.MalformedBoard(err)
	}
	if env.Kind != BoardKind {
		return nil, errors.KindMismatch(env.Kind)
	}
	if env.Version > CurrentVersion {
		return nil, errors.UnsupportedVersion(env.Version, CurrentVersion)
	}

	record := env.Pipeline.Clone()
	hydrate(&record)
	return &record, nil
}

// hydrate applies defaults for fields older exports omit and sanitizes
// the edge set against the port-occupancy invariant.
func hydrate(record *board.PipelineRecord) {
	if record.IDSeq == 0 {
		record.IDSeq = len(record.Nodes)
	}
	if record.Meta == nil {
		record.Meta = map[string]any{}
	}
	if record.Nodes == nil {
		record.Nodes = []board.Node{}
	}

	g, dropped := board.Hydrate(record.Nodes, record.Edges)
	if dropped > 0 || record.Edges == nil {
		record.Edges = g.Edges()
	}
}
