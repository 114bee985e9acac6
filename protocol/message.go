package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame is the normalized form of one protocol message. Content always
// holds the decoded JSON payload, regardless of whether the wire carried
// it as a JSON-encoded string or as a structured object.
type Frame struct {
	ID        int64           `json:"id"`
	RequestID int64           `json:"requestId"`
	Type      int             `json:"type"`
	Content   json.RawMessage `json:"content"`
}

// Decode unmarshals the frame's content into v. An empty content decodes
// as an empty object.
func (f *Frame) Decode(v any) error {
	if len(f.Content) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Content, v); err != nil {
		return fmt.Errorf("protocol: decode content of type %d frame: %w", f.Type, err)
	}
	return nil
}

// ErrorContent is the payload shape of every 3xx reply.
type ErrorContent struct {
	Error string `json:"error"`
}

// ErrorMessage extracts the error string from a 3xx frame's content.
func (f *Frame) ErrorMessage() string {
	var body ErrorContent
	if err := f.Decode(&body); err != nil {
		return ""
	}
	return body.Error
}

// DecodeFrame parses a raw wire payload into a normalized frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("protocol: malformed frame: %w", err)
	}
	content, err := normalizeContent(frame.Content)
	if err != nil {
		return nil, err
	}
	frame.Content = content
	return &frame, nil
}

// normalizeContent turns the polymorphic wire content (JSON-encoded
// string or pre-parsed object) into plain JSON, so dispatch never sees
// both shapes.
func normalizeContent(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("protocol: malformed content string: %w", err)
	}
	if inner == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(inner)) {
		return nil, fmt.Errorf("protocol: content string is not valid JSON")
	}
	return json.RawMessage(inner), nil
}

// wireFrame is the outbound shape: content is always a JSON-encoded
// string, matching what the server parses.
type wireFrame struct {
	ID        int64  `json:"id"`
	RequestID int64  `json:"requestId"`
	Type      int    `json:"type"`
	Content   string `json:"content"`
}

// EncodeFrame builds the wire payload for an outbound message. A nil
// body encodes as an empty object.
func EncodeFrame(id, requestID int64, typeCode int, body any) ([]byte, error) {
	content := []byte("{}")
	if body != nil {
		var err error
		content, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode content: %w", err)
		}
	}
	return json.Marshal(wireFrame{
		ID:        id,
		RequestID: requestID,
		Type:      typeCode,
		Content:   string(content),
	})
}
