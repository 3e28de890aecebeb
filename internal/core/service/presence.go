package service

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/avolkov/duet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// PresenceService persists online/offline transitions and broadcasts them
// to every other live connection. Broadcasts are fire-and-forget.
type PresenceService struct {
	registry *Registry
	store    port.Store
	wg       sync.WaitGroup
}

func NewPresenceService(registry *Registry, store port.Store) *PresenceService {
	return &PresenceService{
		registry: registry,
		store:    store,
	}
}

func (s *PresenceService) Connected(ctx context.Context, client port.Client) {
	s.persistStatus(client.UserID(), domain.StatusOnline)
	s.broadcastExcept(client.UserID(), domain.Event{
		Type: domain.EventUserOnline,
		Data: domain.PresencePayload{
			UserID:   client.UserID().String(),
			Username: client.Username(),
		},
	})
}

func (s *PresenceService) Disconnected(ctx context.Context, client port.Client) {
	s.persistStatus(client.UserID(), domain.StatusOffline)
	s.broadcastExcept(client.UserID(), domain.Event{
		Type: domain.EventUserOffline,
		Data: domain.PresencePayload{
			UserID:   client.UserID().String(),
			Username: client.Username(),
		},
	})
}

// Flush blocks until in-flight status writes have finished. Called on
// shutdown.
func (s *PresenceService) Flush() {
	s.wg.Wait()
}

// persistStatus runs the store write in the background so a slow store
// never delays the broadcast.
func (s *PresenceService) persistStatus(id domain.UserID, status domain.UserStatus) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.SetUserStatus(ctx, id, status, time.Now()); err != nil {
			log.Error().Err(err).Str("user_id", id.String()).Str("status", string(status)).Msg("Failed to persist user status")
		}
	}()
}

func (s *PresenceService) broadcastExcept(self domain.UserID, ev domain.Event) {
	for _, c := range s.registry.Snapshot() {
		if c.UserID() == self {
			continue
		}
		if err := c.Send(ev); err != nil {
			log.Warn().Err(err).Str("user_id", c.UserID().String()).Str("event", ev.Type).Msg("Dropped presence event")
		}
	}
}
