package protocol

import (
	"context"
	"crypto/tls"

	"github.com/gorilla/websocket"
)

// Conn is the minimal surface the client needs from the duplex socket.
type Conn interface {
	// ReadMessage blocks until the next frame payload or a read error.
	ReadMessage() ([]byte, error)
	// WriteMessage transmits one frame payload.
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens connections to the execution server.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Conn, error)
}

// WSDialer dials over WebSocket with the protocol subprotocol selected
// during the handshake.
type WSDialer struct{}

// NewWSDialer creates the production dialer.
func NewWSDialer() *WSDialer { return &WSDialer{} }

// Dial opens a WebSocket to the configured endpoint.
func (d *WSDialer) Dial(ctx context.Context, cfg Config) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     []string{cfg.Subprotocol},
	}
	if cfg.UseTLS && cfg.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL(), nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
