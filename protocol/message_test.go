package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantErr     bool
		wantType    int
		wantContent string
	}{
		{
			name:        "content as encoded string",
			raw:         `{"id":3,"requestId":1,"type":204,"content":"{\"executionId\":\"abc\"}"}`,
			wantType:    204,
			wantContent: `{"executionId":"abc"}`,
		},
		{
			name:        "content as object",
			raw:         `{"id":4,"requestId":0,"type":205,"content":{"nodeId":"n1"}}`,
			wantType:    205,
			wantContent: `{"nodeId":"n1"}`,
		},
		{
			name:        "missing content",
			raw:         `{"id":5,"requestId":0,"type":207}`,
			wantType:    207,
			wantContent: `{}`,
		},
		{
			name:        "null content",
			raw:         `{"id":6,"requestId":0,"type":207,"content":null}`,
			wantType:    207,
			wantContent: `{}`,
		},
		{
			name:        "empty content string",
			raw:         `{"id":7,"requestId":0,"type":206,"content":""}`,
			wantType:    206,
			wantContent: `{}`,
		},
		{
			name:    "malformed frame",
			raw:     `{"id":`,
			wantErr: true,
		},
		{
			name:    "content string holding garbage",
			raw:     `{"id":8,"requestId":0,"type":202,"content":"not json"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if frame.Type != tt.wantType {
				t.Errorf("type = %d, want %d", frame.Type, tt.wantType)
			}
			if string(frame.Content) != tt.wantContent {
				t.Errorf("content = %s, want %s", frame.Content, tt.wantContent)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	data, err := EncodeFrame(2, 0, TypeCatalog, map[string]string{"scope": "all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wire struct {
		ID        int64  `json:"id"`
		RequestID int64  `json:"requestId"`
		Type      int    `json:"type"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("encoded frame is not valid JSON: %v", err)
	}
	if wire.ID != 2 || wire.Type != TypeCatalog {
		t.Errorf("header = {id:%d type:%d}, want {id:2 type:%d}", wire.ID, wire.Type, TypeCatalog)
	}
	if !strings.Contains(wire.Content, `"scope":"all"`) {
		t.Errorf("content = %q, want JSON-encoded body string", wire.Content)
	}
}

func TestEncodeFrameNilBody(t *testing.T) {
	data, err := EncodeFrame(1, 0, TypeStopExecution, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("roundtrip decode failed: %v", err)
	}
	if string(frame.Content) != "{}" {
		t.Errorf("content = %s, want {}", frame.Content)
	}
}

func TestErrorMessage(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"id":2,"requestId":1,"type":304,"content":"{\"error\":\"boom\"}"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := frame.ErrorMessage(); got != "boom" {
		t.Errorf("ErrorMessage() = %q, want %q", got, "boom")
	}
}

func TestReplyCodes(t *testing.T) {
	if OKFor(TypeExecuteAdHoc) != TypeExecuteAdHocOK {
		t.Error("OKFor(104) != 204")
	}
	if ErrorFor(TypeExecuteAdHoc) != TypeExecuteAdHocError {
		t.Error("ErrorFor(104) != 304")
	}
	if !IsServerFault(TypeMaintenanceMode) || IsServerFault(TypeExecuteAdHocError) {
		t.Error("server fault range mismatch")
	}
}

func TestConfigURL(t *testing.T) {
	cfg := Config{Host: "example.org", Port: 9001, Username: "ada", Password: "s3cret"}
	cfg.ApplyDefaults()

	url := cfg.URL()
	if !strings.HasPrefix(url, "ws://example.org:9001/") {
		t.Errorf("url = %q, want ws scheme and host", url)
	}
	if !strings.Contains(url, "username=ada") || !strings.Contains(url, "password=s3cret") {
		t.Errorf("url = %q, want credentials in query string", url)
	}
	if strings.Contains(cfg.Endpoint(), "s3cret") {
		t.Errorf("Endpoint() = %q leaks credentials", cfg.Endpoint())
	}

	cfg.UseTLS = true
	if !strings.HasPrefix(cfg.URL(), "wss://") {
		t.Errorf("url = %q, want wss scheme with TLS", cfg.URL())
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8765 {
		t.Errorf("default port = %d, want 8765", cfg.Port)
	}
	if cfg.Subprotocol != "alger" {
		t.Errorf("default subprotocol = %q, want alger", cfg.Subprotocol)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
