package codec

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/errors"
)

func sampleRecord() board.PipelineRecord {
	return board.PipelineRecord{
		ID:        "p1",
		Name:      "Segmentation demo",
		CreatedAt: 1724934000000,
		UpdatedAt: 1724934060000,
		Nodes: []board.Node{
			{ID: "n1", Kind: "dataset", PortsIn: 0, PortsOut: 1, Params: map[string]any{
				"shape": []any{float64(6), float64(64), float64(64)},
				"seed":  float64(7),
			}},
			{ID: "n2", Kind: "export", PortsIn: 1, PortsOut: 0, Params: map[string]any{
				"target": map[string]any{"dir": "out", "overwrite": true},
			}},
		},
		Edges: []board.Edge{
			{ID: "e1", Source: "n1", SourcePort: 0, Target: "n2", TargetPort: 0},
		},
		IDSeq:   2,
		Preview: "data:image/png;base64,xyz",
		Meta:    map[string]any{"theme": "dark", "zoom": float64(1.25), "mode": "check"},
	}
}

func TestRoundTrip(t *testing.T) {
	record := sampleRecord()

	raw, err := Serialize(record)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !reflect.DeepEqual(*parsed, record) {
		t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", *parsed, record)
	}
}

func TestRoundTrip_NoSharedReferences(t *testing.T) {
	record := sampleRecord()

	raw, err := Serialize(record)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	parsed.Nodes[1].Params["target"].(map[string]any)["dir"] = "elsewhere"
	if record.Nodes[1].Params["target"].(map[string]any)["dir"] != "out" {
		t.Fatal("parsed record shares nested parameter maps with the original")
	}
}

func TestToEnvelope(t *testing.T) {
	env := ToEnvelope(sampleRecord())
	if env.Kind != BoardKind {
		t.Fatalf("unexpected kind: %s", env.Kind)
	}
	if env.Version != CurrentVersion {
		t.Fatalf("unexpected version: %d", env.Version)
	}
	if env.ExportedAt == 0 {
		t.Fatal("exportedAt not stamped")
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse("{not json")
	if !errors.HasCode(err, errors.ErrCodeFormat) {
		t.Fatalf("expected FORMAT_ERROR, got %v", err)
	}
}

func TestParse_KindMismatch(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"kind": "other-export", "version": 1, "pipeline": map[string]any{}})
	_, err := Parse(string(raw))
	if !errors.HasCode(err, errors.ErrCodeFormat) {
		t.Fatalf("expected FORMAT_ERROR, got %v", err)
	}
}

func TestParse_UnsupportedVersion(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"kind": BoardKind, "version": 2, "pipeline": map[string]any{"id": "p"}})
	_, err := Parse(string(raw))
	if !errors.HasCode(err, errors.ErrCodeFormat) {
		t.Fatalf("expected FORMAT_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported version") {
		t.Fatalf("expected unsupported version message, got %q", err.Error())
	}
}

func TestParse_DefaultsOptionalFields(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"kind":    BoardKind,
		"version": 1,
		"pipeline": map[string]any{
			"id":   "p2",
			"name": "old export",
			"nodes": []map[string]any{
				{"id": "a", "kind": "dataset", "portsIn": 0, "portsOut": 1},
			},
		},
	})

	parsed, err := Parse(string(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.IDSeq != 1 {
		t.Fatalf("idSeq not defaulted: %d", parsed.IDSeq)
	}
	if parsed.Meta == nil || len(parsed.Meta) != 0 {
		t.Fatalf("meta not defaulted: %v", parsed.Meta)
	}
	if parsed.Edges == nil || len(parsed.Edges) != 0 {
		t.Fatalf("edges not defaulted: %v", parsed.Edges)
	}
	if parsed.Preview != "" {
		t.Fatalf("unexpected preview: %q", parsed.Preview)
	}
}

func TestParse_DropsDuplicatePortEdges(t *testing.T) {
	record := sampleRecord()
	record.Nodes = append(record.Nodes, board.Node{ID: "n3", Kind: "dataset", PortsOut: 1})
	// Hand-build an envelope containing a conflicting edge.
	env := ToEnvelope(record)
	env.Pipeline.Edges = append(env.Pipeline.Edges, board.Edge{
		ID: "e2", Source: "n3", Target: "n2", TargetPort: 0,
	})
	raw, _ := json.Marshal(env)

	parsed, err := Parse(string(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Edges) != 1 || parsed.Edges[0].ID != "e1" {
		t.Fatalf("expected first-seen edge preserved, got %v", parsed.Edges)
	}
}

func TestNextNodeID(t *testing.T) {
	record := sampleRecord()
	if got := record.NextNodeID(); got != "node-3" {
		t.Fatalf("expected node-3, got %s", got)
	}
	if got := record.NextNodeID(); got != "node-4" {
		t.Fatalf("expected node-4, got %s", got)
	}
}
