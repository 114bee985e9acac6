package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/protocol"
	"github.com/kbukum/zofia/store"
)

type fakeConnection struct {
	state protocol.State
}

func (f *fakeConnection) State() protocol.State    { return f.state }
func (f *fakeConnection) Endpoint() string         { return "ws://localhost:8765/" }
func (f *fakeConnection) LastSentID() int64        { return 4 }
func (f *fakeConnection) HighestInboundID() int64  { return 9 }

func newRouter(p Providers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, p)
	return r
}

func doGET(t *testing.T, r *gin.Engine, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return w.Code, body
}

func TestHealthzConnected(t *testing.T) {
	r := newRouter(Providers{
		Service: "zofia",
		Version: "1.0.0",
		Client:  &fakeConnection{state: protocol.StateConnected},
	})

	code, body := doGET(t, r, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if body["status"] != "up" {
		t.Errorf("status = %v, want up", body["status"])
	}
}

func TestHealthzDisconnectedIsDegraded(t *testing.T) {
	r := newRouter(Providers{
		Service: "zofia",
		Client:  &fakeConnection{state: protocol.StateDisconnected},
	})

	code, body := doGET(t, r, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want 200 (offline is usable)", code)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestStatusPayload(t *testing.T) {
	r := newRouter(Providers{
		Service: "zofia",
		Client:  &fakeConnection{state: protocol.StateConnected},
		Readiness: func() board.Report {
			return board.Report{IssueCount: 2}
		},
	})

	code, body := doGET(t, r, "/status")
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}

	conn, ok := body["connection"].(map[string]any)
	if !ok {
		t.Fatalf("connection section missing: %v", body)
	}
	if conn["state"] != "connected" {
		t.Errorf("connection.state = %v, want connected", conn["state"])
	}
	if conn["lastSentId"] != float64(4) {
		t.Errorf("connection.lastSentId = %v, want 4", conn["lastSentId"])
	}

	readiness, ok := body["readiness"].(map[string]any)
	if !ok {
		t.Fatalf("readiness section missing: %v", body)
	}
	if readiness["issueCount"] != float64(2) {
		t.Errorf("readiness.issueCount = %v, want 2", readiness["issueCount"])
	}
}

func TestBoardEndpoints(t *testing.T) {
	st, err := store.New(store.NewMemoryBackend())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	saved, err := st.Save(board.PipelineRecord{
		Name:  "demo",
		Nodes: []board.Node{{ID: "n1", Kind: "source", PortsOut: 1}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := newRouter(Providers{Service: "zofia", Boards: st})

	t.Run("list", func(t *testing.T) {
		code, body := doGET(t, r, "/boards")
		if code != http.StatusOK {
			t.Fatalf("status code = %d, want 200", code)
		}
		boards, ok := body["boards"].([]any)
		if !ok || len(boards) != 1 {
			t.Fatalf("boards = %v, want one entry", body["boards"])
		}
		entry := boards[0].(map[string]any)
		if entry["name"] != "demo" {
			t.Errorf("name = %v, want demo", entry["name"])
		}
		if entry["nodes"] != float64(1) {
			t.Errorf("nodes = %v, want 1", entry["nodes"])
		}
	})

	t.Run("get", func(t *testing.T) {
		code, body := doGET(t, r, "/boards/"+saved.ID)
		if code != http.StatusOK {
			t.Fatalf("status code = %d, want 200", code)
		}
		if body["id"] != saved.ID {
			t.Errorf("id = %v, want %s", body["id"], saved.ID)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		code, body := doGET(t, r, "/boards/nope")
		if code != http.StatusNotFound {
			t.Fatalf("status code = %d, want 404", code)
		}
		errBody, ok := body["error"].(map[string]any)
		if !ok {
			t.Fatalf("error body missing: %v", body)
		}
		if errBody["code"] != "NOT_FOUND" {
			t.Errorf("error code = %v, want NOT_FOUND", errBody["code"])
		}
	})
}

func TestStatusWithoutProviders(t *testing.T) {
	r := newRouter(Providers{Service: "zofia"})

	code, body := doGET(t, r, "/status")
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if _, ok := body["connection"]; ok {
		t.Error("connection section present without a client")
	}
}
