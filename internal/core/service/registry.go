package service

import (
	"sync"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/avolkov/duet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Registry maps a user to their single live connection. Last connection
// wins: Register silently overwrites without closing the displaced handle,
// whose own read loop tears the socket down when it exits.
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.UserID]port.Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[domain.UserID]port.Client),
	}
}

func (r *Registry) Register(c port.Client) {
	r.mu.Lock()
	r.clients[c.UserID()] = c
	r.mu.Unlock()
	log.Debug().Str("user_id", c.UserID().String()).Msg("Connection registered")
}

func (r *Registry) Unregister(id domain.UserID) {
	r.mu.Lock()
	delete(r.clients, id)
	r.mu.Unlock()
	log.Debug().Str("user_id", id.String()).Msg("Connection unregistered")
}

func (r *Registry) Lookup(id domain.UserID) (port.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Snapshot returns a stable copy of all live connections so callers can
// iterate while registrations continue concurrently.
func (r *Registry) Snapshot() []port.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]port.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
