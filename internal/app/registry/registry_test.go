package registry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]func(data []byte)
	cancels  map[string]context.Context
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		handlers: make(map[string]func(data []byte)),
		cancels:  make(map[string]context.Context),
	}
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string, handler func(data []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = handler
	b.cancels[channel] = ctx
	return nil
}

// publish pushes a raw envelope through the recorded bridge handler.
func (b *fakeBus) publish(channel string, data []byte) {
	b.mu.Lock()
	handler := b.handlers[channel]
	b.mu.Unlock()
	if handler != nil {
		handler(data)
	}
}

func (b *fakeBus) bridgeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

func (b *fakeBus) bridgeStopped(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ctx, ok := b.cancels[channel]
	if !ok {
		return true
	}
	return ctx.Err() != nil
}

type fakeClient struct {
	id string

	mu       sync.Mutex
	received [][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{id: uuid.NewString()}
}

func (c *fakeClient) SessionID() string { return c.id }

func (c *fakeClient) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, data)
	return nil
}

func (c *fakeClient) Close() {}

func (c *fakeClient) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.received...)
}

func newTestRegistry() (*Registry, *fakeBus) {
	bus := newFakeBus()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(log, bus), bus
}

func TestRegistry_SubscribeDeliversBusTraffic(t *testing.T) {
	req := require.New(t)
	hub, bus := newTestRegistry()
	client := newFakeClient()
	hub.Register(client)

	req.NoError(hub.Subscribe(client, "conversation:c1"))
	req.Equal(1, bus.bridgeCount())

	bus.publish("conversation:c1", []byte(`{"type":"NEW_MESSAGE"}`))

	msgs := client.messages()
	req.Len(msgs, 1)
	req.JSONEq(`{"type":"NEW_MESSAGE"}`, string(msgs[0]))
}

func TestRegistry_SecondMemberSharesBridge(t *testing.T) {
	req := require.New(t)
	hub, bus := newTestRegistry()
	first, second := newFakeClient(), newFakeClient()
	hub.Register(first)
	hub.Register(second)

	req.NoError(hub.Subscribe(first, "conversation:c1"))
	req.NoError(hub.Subscribe(second, "conversation:c1"))

	// One bridge, both members hear the envelope
	req.Equal(1, bus.bridgeCount())
	bus.publish("conversation:c1", []byte(`{}`))
	req.Len(first.messages(), 1)
	req.Len(second.messages(), 1)
}

func TestRegistry_LastMemberStopsBridge(t *testing.T) {
	req := require.New(t)
	hub, bus := newTestRegistry()
	first, second := newFakeClient(), newFakeClient()
	hub.Register(first)
	hub.Register(second)
	req.NoError(hub.Subscribe(first, "conversation:c1"))
	req.NoError(hub.Subscribe(second, "conversation:c1"))

	hub.Unsubscribe(first, "conversation:c1")
	req.False(bus.bridgeStopped("conversation:c1"), "bridge stays while a member remains")

	hub.Unsubscribe(second, "conversation:c1")
	req.True(bus.bridgeStopped("conversation:c1"))

	// Traffic after teardown reaches nobody
	bus.publish("conversation:c1", []byte(`{}`))
	req.Empty(first.messages())
	req.Empty(second.messages())
}

func TestRegistry_UnregisterDropsAllSubscriptions(t *testing.T) {
	req := require.New(t)
	hub, bus := newTestRegistry()
	client := newFakeClient()
	hub.Register(client)
	req.NoError(hub.Subscribe(client, "conversation:c1"))
	req.NoError(hub.Subscribe(client, "conversation:c1:typing"))
	req.NoError(hub.Subscribe(client, "user:u1"))

	hub.Unregister(client)

	for _, channel := range []string{"conversation:c1", "conversation:c1:typing", "user:u1"} {
		req.True(bus.bridgeStopped(channel), channel)
	}
	bus.publish("conversation:c1", []byte(`{}`))
	req.Empty(client.messages())
}
