package protocol

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/zofia/errors"
)

type fakeConn struct {
	inbound chan []byte

	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
	return nil
}

// serverClose simulates the remote end dropping the connection.
func (c *fakeConn) serverClose() { _ = c.Close() }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) sentFrames(t *testing.T) []*Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([]*Frame, 0, len(c.writes))
	for _, data := range c.writes {
		var wire struct {
			ID        int64  `json:"id"`
			RequestID int64  `json:"requestId"`
			Type      int    `json:"type"`
			Content   string `json:"content"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			t.Fatalf("sent frame is not valid JSON: %v", err)
		}
		frames = append(frames, &Frame{
			ID: wire.ID, RequestID: wire.RequestID, Type: wire.Type,
			Content: json.RawMessage(wire.Content),
		})
	}
	return frames
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) Dial(_ context.Context, _ Config) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeDialer) {
	t.Helper()
	dialer := &fakeDialer{}
	client := NewClient(Config{Host: "test"}, dialer, nil)
	return client, dialer
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestConnectLifecycle(t *testing.T) {
	client, dialer := newTestClient(t)

	if client.State() != StateDisconnected {
		t.Fatalf("initial state = %v, want disconnected", client.State())
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if client.State() != StateConnected {
		t.Fatalf("state = %v, want connected", client.State())
	}

	// Connecting again while connected is a no-op.
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second connect errored: %v", err)
	}
	if len(dialer.conns) != 1 {
		t.Fatalf("dial count = %d, want 1", len(dialer.conns))
	}

	var closeMu sync.Mutex
	var closeErr error
	closed := false
	client.OnClose(func(err error) {
		closeMu.Lock()
		defer closeMu.Unlock()
		closed = true
		closeErr = err
	})

	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	waitFor(t, func() bool { return client.State() == StateDisconnected })
	waitFor(t, func() bool {
		closeMu.Lock()
		defer closeMu.Unlock()
		return closed
	})
	closeMu.Lock()
	defer closeMu.Unlock()
	if closeErr != nil {
		t.Errorf("deliberate close reported error: %v", closeErr)
	}
}

func TestConnectDialFailure(t *testing.T) {
	dialer := &fakeDialer{err: io.ErrUnexpectedEOF}
	client := NewClient(Config{Host: "test"}, dialer, nil)

	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeConnection) {
		t.Errorf("error code mismatch: %v", err)
	}
	if client.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected after failed dial", client.State())
	}
}

// gatedDialer blocks every dial until released.
type gatedDialer struct {
	fakeDialer
	release chan struct{}
}

func (d *gatedDialer) Dial(ctx context.Context, cfg Config) (Conn, error) {
	<-d.release
	return d.fakeDialer.Dial(ctx, cfg)
}

func TestDisconnectDuringDial(t *testing.T) {
	dialer := &gatedDialer{release: make(chan struct{})}
	client := NewClient(Config{Host: "test"}, dialer, nil)

	done := make(chan error, 1)
	go func() { done <- client.Connect(context.Background()) }()
	waitFor(t, func() bool { return client.State() == StateConnecting })

	// The explicit disconnect wins over the dial still in flight.
	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	close(dialer.release)

	if err := <-done; err != nil {
		t.Fatalf("connect returned error: %v", err)
	}
	if client.State() != StateDisconnected {
		t.Fatalf("state after explicit disconnect = %v, want disconnected", client.State())
	}
	if conn := dialer.last(); !conn.isClosed() {
		t.Error("abandoned connection was not closed")
	}

	// The client is reusable afterwards.
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if client.State() != StateConnected {
		t.Fatalf("state = %v, want connected", client.State())
	}
	if len(dialer.conns) != 2 {
		t.Errorf("dial count = %d, want 2", len(dialer.conns))
	}
}

func TestSendSequenceIDs(t *testing.T) {
	client, dialer := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		id, err := client.Send(TypeCatalog, nil)
		if err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
		if id != int64(i) {
			t.Errorf("send %d returned id %d", i, id)
		}
	}

	frames := dialer.last().sentFrames(t)
	if len(frames) != 3 {
		t.Fatalf("sent %d frames, want 3", len(frames))
	}
	for i, frame := range frames {
		if frame.ID != int64(i+1) {
			t.Errorf("frame %d has id %d, want %d", i, frame.ID, i+1)
		}
	}
}

func TestSendNotConnected(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := client.Send(TypeCatalog, nil); !apperrors.HasCode(err, apperrors.ErrCodeConnection) {
		t.Errorf("send while disconnected: got %v, want connection error", err)
	}
}

func TestSequenceResetsOnReconnect(t *testing.T) {
	client, dialer := newTestClient(t)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if _, err := client.Send(TypeCatalog, nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := client.Send(TypeUserData, nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if client.LastSentID() != 2 {
		t.Fatalf("lastSentID = %d, want 2", client.LastSentID())
	}

	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	waitFor(t, func() bool { return client.State() == StateDisconnected })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	id, err := client.Send(TypeCatalog, nil)
	if err != nil {
		t.Fatalf("send after reconnect failed: %v", err)
	}
	if id != 1 {
		t.Errorf("first id after reconnect = %d, want 1", id)
	}
	if len(dialer.conns) != 2 {
		t.Errorf("dial count = %d, want 2", len(dialer.conns))
	}
}

func TestDispatch(t *testing.T) {
	client, dialer := newTestClient(t)

	got := make(chan *Frame, 1)
	client.Handle(TypeCatalogOK, func(frame *Frame) { got <- frame })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	conn := dialer.last()

	// Frames with no handler and malformed frames are dropped without
	// disturbing the connection.
	conn.inbound <- []byte(`{"id":1,"requestId":0,"type":999,"content":"{}"}`)
	conn.inbound <- []byte(`this is not json`)
	conn.inbound <- []byte(`{"id":2,"requestId":1,"type":202,"content":"{\"pipelines\":[]}"}`)

	select {
	case frame := <-got:
		if frame.ID != 2 || frame.RequestID != 1 {
			t.Errorf("frame header = {id:%d requestId:%d}, want {id:2 requestId:1}", frame.ID, frame.RequestID)
		}
		if string(frame.Content) != `{"pipelines":[]}` {
			t.Errorf("content = %s, want normalized object", frame.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}

	if client.State() != StateConnected {
		t.Errorf("state = %v, want connected after dropped frames", client.State())
	}
	waitFor(t, func() bool { return client.HighestInboundID() == 2 })
}

func TestDispatchUnhandledServerFault(t *testing.T) {
	client, dialer := newTestClient(t)

	got := make(chan *Frame, 1)
	client.Handle(TypeCatalogOK, func(frame *Frame) { got <- frame })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	conn := dialer.last()

	// A fault with no registered handler is dropped; the connection and
	// later dispatch are unaffected.
	conn.inbound <- []byte(`{"id":1,"requestId":0,"type":399,"content":"{\"error\":\"maintenance mode\"}"}`)
	conn.inbound <- []byte(`{"id":2,"requestId":1,"type":202,"content":"{\"pipelines\":[]}"}`)

	select {
	case frame := <-got:
		if frame.ID != 2 {
			t.Errorf("frame id = %d, want 2", frame.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked after fault frame")
	}
	if client.State() != StateConnected {
		t.Errorf("state = %v, want connected after dropped fault", client.State())
	}
}

func TestConnectionLostFinalizes(t *testing.T) {
	client, dialer := newTestClient(t)

	closeErrCh := make(chan error, 1)
	client.OnClose(func(err error) { closeErrCh <- err })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	dialer.last().serverClose()

	select {
	case err := <-closeErrCh:
		if !apperrors.HasCode(err, apperrors.ErrCodeConnection) {
			t.Errorf("close error = %v, want connection error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close listener never invoked")
	}
	if client.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", client.State())
	}
}

func TestStateListenerOrder(t *testing.T) {
	client, _ := newTestClient(t)

	var mu sync.Mutex
	var seen []State
	client.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 4
	})

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateConnected, StateDisconnecting, StateDisconnected}
	for i, s := range want {
		if seen[i] != s {
			t.Errorf("transition %d = %v, want %v", i, seen[i], s)
		}
	}
}
