package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

var errConnClosed = errors.New("connection closed")

// fakeConn is an in-memory gateway connection. The test plays the server:
// serve delivers a message to the client, drain collects what it sent.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	mu          sync.Mutex
	closeCode   int
	closeReason string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-f.in:
		return m, nil
	case <-f.closed:
		return nil, errConnClosed
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-f.closed:
		return errConnClosed
	default:
	}
	f.out <- data
	return nil
}

func (f *fakeConn) WriteClose(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCode = code
	f.closeReason = reason
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) serve(msg string) {
	f.in <- []byte(msg)
}

func (f *fakeConn) closeFrame() (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode, f.closeReason
}

type sentMsg struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

func (f *fakeConn) drain(t *testing.T) []sentMsg {
	t.Helper()
	var msgs []sentMsg
	for {
		select {
		case data := <-f.out:
			var m sentMsg
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("client sent invalid json %q: %v", data, err)
			}
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d fakeDialer) Dial(context.Context, string) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func ops(msgs []sentMsg) []int {
	out := make([]int, len(msgs))
	for i, m := range msgs {
		out[i] = m.Op
	}
	return out
}
