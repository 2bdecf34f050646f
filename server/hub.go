package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// hubEvent is a register (join) or unregister request for one client
type hubEvent struct {
	client *Client
	join   bool
}

// Hub tracks every open menu stream and enforces connection limits
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	events  chan hubEvent // registrations and removals, in arrival order
	done    chan struct{} // closed when Run returns

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int

	analytics *Analytics
	cues      CueSink // process-wide audio, may be nil
	log       *zap.Logger
}

// NewHub creates a Hub. Run must be started before clients register.
func NewHub(cfg StreamConfig, analytics *Analytics, cues CueSink, log *zap.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		events:        make(chan hubEvent, 128),
		done:          make(chan struct{}),
		ipConns:       make(map[string]int),
		maxConnsPerIP: cfg.MaxConnsPerIP,
		maxTotalConns: cfg.MaxTotalConns,
		analytics:     analytics,
		cues:          cues,
		log:           log.Named("hub"),
	}
}

// CanAccept reports whether another connection from ip fits the limits
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns {
		return false
	}
	return h.ipConns[ip] < h.maxConnsPerIP
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until ctx ends, then closes
// every remaining client's send channel
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case ev := <-h.events:
			if ev.join {
				h.add(ev.client)
			} else {
				h.remove(ev.client)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// Register hands a client to Run; false once the hub has stopped
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.events <- hubEvent{client: c, join: true}:
		return true
	case <-h.done:
		return false
	}
}

// Unregister hands a client back; a stopped hub already closed it
func (h *Hub) Unregister(c *Client) {
	select {
	case h.events <- hubEvent{client: c}:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.analytics.ViewerJoined(client.remoteAddr, client.mode)
	h.log.Debug("viewer connected", zap.String("ip", client.remoteAddr), zap.String("mode", client.mode))
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	if ok {
		h.analytics.ViewerLeft(client.remoteAddr, client.frames.Load())
		h.log.Debug("viewer left", zap.String("ip", client.remoteAddr))
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
