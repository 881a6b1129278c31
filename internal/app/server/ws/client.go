package ws

import (
	"context"
	"errors"
	"sync"
)

// SessionClient owns one live connection's outbound side: a buffered out
// channel drained by a single write loop, so concurrent deliveries never
// interleave on the socket.
type SessionClient struct {
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *WebSocket
	sessionID string
	out       chan []byte
	once      sync.Once
}

func NewClient(parent context.Context, ws *WebSocket, sessionID string) *SessionClient {
	ctx, cancel := context.WithCancel(parent)
	c := &SessionClient{
		ctx:       ctx,
		cancel:    cancel,
		ws:        ws,
		sessionID: sessionID,
		out:       make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *SessionClient) SessionID() string { return c.sessionID }

func (c *SessionClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client closed")
	}
}

// Close is idempotent. out is never closed: registry bridges may be inside
// Send concurrently, so writeLoop exits through ctx cancellation only.
func (c *SessionClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *SessionClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
