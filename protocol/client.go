package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/zofia/errors"
	"github.com/kbukum/zofia/logger"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Handler consumes one inbound frame of a registered type.
type Handler func(frame *Frame)

// StateListener observes connection state transitions.
type StateListener func(state State)

// CloseListener observes connection teardown. The error is nil when the
// client closed the connection deliberately.
type CloseListener func(err error)

// Client owns one connection to the execution server: the dial and
// teardown lifecycle, the outbound sequence counter, and inbound frame
// dispatch by type code.
type Client struct {
	cfg     Config
	dialer  Dialer
	log     *logger.Logger
	metrics *Metrics

	mu               sync.Mutex
	state            State
	conn             Conn
	lastSentID       int64
	highestInboundID int64
	handlers         map[int]Handler
	stateListeners   []StateListener
	closeListeners   []CloseListener
}

// NewClient creates a client for the given server configuration.
func NewClient(cfg Config, dialer Dialer, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Client{
		cfg:      cfg,
		dialer:   dialer,
		log:      log.WithComponent("protocol"),
		handlers: make(map[int]Handler),
	}
}

// SetMetrics attaches metric instruments. Optional.
func (c *Client) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Handle registers the handler for a frame type. The last registration
// for a type wins. Handlers run on the read loop goroutine without the
// client lock held.
func (c *Client) Handle(typeCode int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[typeCode] = h
}

// OnStateChange registers a state transition listener.
func (c *Client) OnStateChange(l StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateListeners = append(c.stateListeners, l)
}

// OnClose registers a teardown listener.
func (c *Client) OnClose(l CloseListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeListeners = append(c.closeListeners, l)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastSentID returns the id of the most recent outbound frame on the
// current connection. Zero before the first send.
func (c *Client) LastSentID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSentID
}

// HighestInboundID returns the highest frame id seen from the server on
// the current connection. Diagnostic only; contiguity is the server's
// contract, not enforced here.
func (c *Client) HighestInboundID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highestInboundID
}

// Endpoint returns the server address without credentials.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint()
}

// Connect dials the server. A no-op when a connection attempt or an
// established connection already exists.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	notify := c.setStateLocked(StateConnecting)
	cfg := c.cfg
	c.mu.Unlock()
	notify()

	conn, err := c.dialer.Dial(ctx, cfg)
	if err != nil {
		c.mu.Lock()
		notify = c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		notify()
		c.log.WithError(err).Error("dial failed", logger.Fields("endpoint", cfg.Endpoint()))
		return errors.ConnectionFailed(cfg.Endpoint(), err)
	}

	c.mu.Lock()
	// An explicit Disconnect during the dial is authoritative: drop the
	// fresh connection instead of entering Connected.
	if c.state != StateConnecting {
		notify = c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		notify()
		_ = conn.Close()
		c.log.Info("dial abandoned", logger.Fields("endpoint", cfg.Endpoint()))
		return nil
	}
	c.conn = conn
	c.lastSentID = 0
	c.highestInboundID = 0
	notify = c.setStateLocked(StateConnected)
	c.mu.Unlock()
	notify()

	c.log.Info("connected", logger.Fields("endpoint", cfg.Endpoint()))
	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection deliberately. A no-op when already
// disconnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state == StateDisconnected || c.state == StateDisconnecting {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	notify := c.setStateLocked(StateDisconnecting)
	c.mu.Unlock()
	notify()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Send transmits one request frame and returns its sequence id. The id
// starts at 1 on every fresh connection and increments per frame.
func (c *Client) Send(typeCode int, body any) (int64, error) {
	start := time.Now()

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return 0, errors.NotConnected()
	}
	id := c.lastSentID + 1
	data, err := EncodeFrame(id, 0, typeCode, body)
	if err != nil {
		c.mu.Unlock()
		return 0, errors.Internal(err)
	}
	if err := c.conn.WriteMessage(data); err != nil {
		c.mu.Unlock()
		return 0, errors.ConnectionLost().WithCause(err)
	}
	c.lastSentID = id
	metrics := c.metrics
	c.mu.Unlock()

	if metrics != nil {
		metrics.RecordSent(context.Background(), typeCode, time.Since(start))
	}
	c.log.Debug("frame sent", logger.Fields("id", id, "type", typeCode))
	return id, nil
}

func (c *Client) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.teardown(conn, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		c.mu.Lock()
		metrics := c.metrics
		c.mu.Unlock()
		if metrics != nil {
			metrics.RecordDropped(context.Background(), "malformed")
		}
		c.log.WithError(err).Warn("dropping malformed frame")
		return
	}

	c.mu.Lock()
	if frame.ID > c.highestInboundID {
		c.highestInboundID = frame.ID
	}
	handler := c.handlers[frame.Type]
	metrics := c.metrics
	c.mu.Unlock()

	if metrics != nil {
		metrics.RecordReceived(context.Background(), frame.Type)
	}
	if handler == nil {
		if metrics != nil {
			metrics.RecordDropped(context.Background(), "unhandled")
		}
		if IsServerFault(frame.Type) {
			c.log.WithError(errors.ProtocolFailure(frame.Type, frame.ErrorMessage())).
				Warn("dropping unhandled server fault", logger.Fields("id", frame.ID))
			return
		}
		c.log.Warn("dropping frame with no handler", logger.Fields(
			"id", frame.ID,
			"type", frame.Type,
		))
		return
	}
	handler(frame)
}

// teardown finalizes the connection once the read loop exits. It is the
// single place the client returns to disconnected, whether the close
// was deliberate or the transport failed.
func (c *Client) teardown(conn Conn, readErr error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	deliberate := c.state == StateDisconnecting
	c.conn = nil
	notify := c.setStateLocked(StateDisconnected)
	closeListeners := append([]CloseListener(nil), c.closeListeners...)
	c.mu.Unlock()
	notify()

	_ = conn.Close()

	var closeErr error
	if !deliberate {
		closeErr = errors.ConnectionLost().WithCause(readErr)
		c.log.WithError(readErr).Warn("connection lost")
	} else {
		c.log.Info("disconnected")
	}
	for _, l := range closeListeners {
		l(closeErr)
	}
}

// setStateLocked transitions the state and returns the notification to
// run once c.mu is released, so listeners never run under the lock.
func (c *Client) setStateLocked(s State) func() {
	if c.state == s {
		return func() {}
	}
	c.state = s
	listeners := append([]StateListener(nil), c.stateListeners...)
	return func() {
		for _, l := range listeners {
			l(s)
		}
	}
}
