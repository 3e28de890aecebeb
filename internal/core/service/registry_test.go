package service

import (
	"sync"
	"testing"

	"github.com/avolkov/duet/internal/core/domain"
)

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()
	c := newFakeClient("alice")

	if _, ok := r.Lookup(c.UserID()); ok {
		t.Fatal("lookup before register should miss")
	}

	r.Register(c)
	got, ok := r.Lookup(c.UserID())
	if !ok || got != c {
		t.Fatal("lookup after register should return the registered client")
	}

	r.Unregister(c.UserID())
	if _, ok := r.Lookup(c.UserID()); ok {
		t.Fatal("lookup after unregister should miss")
	}
}

func TestRegistry_LastConnectionWins(t *testing.T) {
	r := NewRegistry()
	first := newFakeClient("alice")
	second := &fakeClient{id: first.id, username: "alice"}

	r.Register(first)
	r.Register(second)

	got, ok := r.Lookup(first.UserID())
	if !ok {
		t.Fatal("expected a registered client")
	}
	if got != second {
		t.Fatal("reconnect should silently replace the previous handle")
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	a := newFakeClient("a")
	b := newFakeClient("b")
	r.Register(a)
	r.Register(b)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 clients in snapshot, got %d", len(snap))
	}

	// mutating the registry must not affect an already-taken snapshot
	r.Unregister(a.UserID())
	if len(snap) != 2 {
		t.Fatalf("snapshot changed after unregister, got %d", len(snap))
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	ids := make([]domain.UserID, 50)
	for i := range ids {
		c := newFakeClient("user")
		ids[i] = c.id
		wg.Add(1)
		go func(c *fakeClient) {
			defer wg.Done()
			r.Register(c)
			r.Lookup(c.UserID())
			r.Snapshot()
			r.Unregister(c.UserID())
		}(c)
	}
	wg.Wait()

	for _, id := range ids {
		if _, ok := r.Lookup(id); ok {
			t.Fatalf("client %s still registered", id)
		}
	}
}
