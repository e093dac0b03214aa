package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Conn is a message-oriented connection to the gateway.
type Conn interface {
	// ReadMessage blocks for the next text message.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	// WriteClose sends a close frame; the connection must still be closed.
	WriteClose(code int, reason string) error
	Close() error
}

// Dialer opens gateway connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
}

// Dial opens a websocket connection.
func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	c, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	for {
		typ, data, err := w.c.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
			}
			return nil, err
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

func (w *wsConn) WriteMessage(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) WriteClose(code int, reason string) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	return w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
