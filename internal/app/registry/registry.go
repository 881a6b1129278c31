package registry

import (
	"context"
	"log/slog"
	"sync"

	"dialog/internal/core/contracts"
	"dialog/internal/platform/logger"
)

// Registry tracks live sessions on this node and their channel
// subscriptions. The first subscriber on a channel starts a bus bridge that
// forwards every envelope published there to the local members; the last one
// leaving tears it down. Access control happened before Subscribe was called.
type Registry struct {
	log *slog.Logger
	bus contracts.BusSubscriber

	mu       sync.RWMutex
	sessions map[string]contracts.Client
	channels map[string]map[string]contracts.Client // channel -> session id -> client
	bridges  map[string]context.CancelFunc
	subs     map[string]map[string]struct{} // session id -> channels
}

func NewRegistry(log *slog.Logger, bus contracts.BusSubscriber) *Registry {
	return &Registry{
		log:      log,
		bus:      bus,
		sessions: make(map[string]contracts.Client),
		channels: make(map[string]map[string]contracts.Client),
		bridges:  make(map[string]context.CancelFunc),
		subs:     make(map[string]map[string]struct{}),
	}
}

func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[c.SessionID()] = c
	h.subs[c.SessionID()] = make(map[string]struct{})
}

func (h *Registry) Unregister(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sid := c.SessionID()
	for channel := range h.subs[sid] {
		h.dropLocked(sid, channel)
	}
	delete(h.subs, sid)
	delete(h.sessions, sid)
}

// Subscribe joins the session to a channel, starting the bus bridge when it
// is the channel's first local member.
func (h *Registry) Subscribe(c contracts.Client, channel string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	sid := c.SessionID()
	if _, ok := h.sessions[sid]; !ok {
		h.sessions[sid] = c
		h.subs[sid] = make(map[string]struct{})
	}
	if h.channels[channel] == nil {
		ctx, cancel := context.WithCancel(context.Background())
		if err := h.bus.Subscribe(ctx, channel, func(data []byte) {
			h.deliver(channel, data)
		}); err != nil {
			cancel()
			return err
		}
		h.channels[channel] = make(map[string]contracts.Client)
		h.bridges[channel] = cancel
		h.log.Info("registry - subscribe - bridge started", logger.Channel(channel))
	}
	h.channels[channel][sid] = c
	h.subs[sid][channel] = struct{}{}
	return nil
}

func (h *Registry) Unsubscribe(c contracts.Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sid := c.SessionID()
	h.dropLocked(sid, channel)
	delete(h.subs[sid], channel)
}

func (h *Registry) deliver(channel string, data []byte) {
	h.mu.RLock()
	members := make([]contracts.Client, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		_ = c.Send(context.Background(), data)
	}
}

func (h *Registry) dropLocked(sid, channel string) {
	delete(h.channels[channel], sid)
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
		if cancel := h.bridges[channel]; cancel != nil {
			cancel()
			delete(h.bridges, channel)
			h.log.Info("registry - unsubscribe - bridge stopped", logger.Channel(channel))
		}
	}
}
