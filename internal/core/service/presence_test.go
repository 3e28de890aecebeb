package service

import (
	"context"
	"testing"

	"github.com/avolkov/duet/internal/core/domain"
)

func TestPresence_ConnectBroadcastsToOthersOnly(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	presence := NewPresenceService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	carol := newFakeClient("carol")
	for _, c := range []*fakeClient{alice, bob, carol} {
		seedUser(t, store, c)
		registry.Register(c)
	}

	presence.Connected(context.Background(), alice)
	presence.Flush()

	if alice.count(domain.EventUserOnline) != 0 {
		t.Fatal("connecting user should not receive their own user:online")
	}
	for _, other := range []*fakeClient{bob, carol} {
		events := other.byType(domain.EventUserOnline)
		if len(events) != 1 {
			t.Fatalf("%s: expected 1 user:online, got %d", other.username, len(events))
		}
		payload := events[0].Data.(domain.PresencePayload)
		if payload.UserID != alice.id.String() || payload.Username != "alice" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	}

	u, err := store.GetUser(context.Background(), alice.id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Status != domain.StatusOnline {
		t.Fatalf("expected online status, got %q", u.Status)
	}
}

func TestPresence_DisconnectPersistsOffline(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	presence := NewPresenceService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	seedUser(t, store, alice)
	seedUser(t, store, bob)
	registry.Register(bob)

	// alice already unregistered, as the ws handler does before publishing
	presence.Disconnected(context.Background(), alice)
	presence.Flush()

	if bob.count(domain.EventUserOffline) != 1 {
		t.Fatal("expected one user:offline at the remaining peer")
	}

	u, err := store.GetUser(context.Background(), alice.id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Status != domain.StatusOffline {
		t.Fatalf("expected offline status, got %q", u.Status)
	}
	if u.LastSeen.IsZero() {
		t.Fatal("expected last seen to be set")
	}
}
