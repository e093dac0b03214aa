package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/llehouerou/lastcord/internal/gateway"
)

var errDropped = errors.New("connection dropped")

// serverConn plays a well-behaved gateway: hello on connect, an ack for every
// heartbeat and READY after identify.
type serverConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu        sync.Mutex
	presences []string
	closeCode int
}

func newServerConn() *serverConn {
	c := &serverConn{
		in:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	c.in <- []byte(`{"op":10,"d":{"heartbeat_interval":41250}}`)
	return c
}

func (c *serverConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-c.in:
		return m, nil
	case <-c.closed:
		return nil, errDropped
	}
}

func (c *serverConn) WriteMessage(data []byte) error {
	var msg struct {
		Op int `json:"op"`
		D  struct {
			Game *struct {
				Name string `json:"name"`
			} `json:"game"`
		} `json:"d"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	switch msg.Op {
	case 1:
		c.in <- []byte(`{"op":11}`)
	case 2:
		c.in <- []byte(`{"op":0,"t":"READY","s":1,"d":{"user":{"id":"1","username":"me"}}}`)
	case 3:
		name := ""
		if msg.D.Game != nil {
			name = msg.D.Game.Name
		}
		c.mu.Lock()
		c.presences = append(c.presences, name)
		c.mu.Unlock()
	}
	return nil
}

func (c *serverConn) WriteClose(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCode = code
	return nil
}

func (c *serverConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *serverConn) sentPresences() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.presences...)
}

func (c *serverConn) closedWith() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

type serverDialer struct {
	mu    sync.Mutex
	conns []*serverConn
}

func (d *serverDialer) Dial(context.Context, string) (gateway.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newServerConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *serverDialer) dialed() []*serverConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*serverConn(nil), d.conns...)
}
