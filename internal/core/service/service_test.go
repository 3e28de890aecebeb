package service

import (
	"context"
	"sync"
	"testing"

	"github.com/avolkov/duet/internal/adapter/driven/persistence/gormstore"
	"github.com/avolkov/duet/internal/core/domain"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// fakeClient records every event pushed to it. Setting sendErr makes every
// push fail, like a client whose send buffer has filled up.
type fakeClient struct {
	id       domain.UserID
	username string
	sendErr  error

	mu     sync.Mutex
	events []domain.Event
}

func newFakeClient(username string) *fakeClient {
	return &fakeClient{
		id:       domain.NewUserID(),
		username: username,
	}
}

func (c *fakeClient) UserID() domain.UserID { return c.id }
func (c *fakeClient) Username() string      { return c.username }
func (c *fakeClient) Close() error          { return nil }

func (c *fakeClient) Send(ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeClient) byType(eventType string) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeClient) count(eventType string) int {
	return len(c.byType(eventType))
}

func openTestStore(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// keep the in-memory database on a single connection
	sqlDB.SetMaxOpenConns(1)

	store := gormstore.New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedUser(t *testing.T, store *gormstore.Store, c *fakeClient) {
	t.Helper()
	err := store.CreateUser(context.Background(), &domain.User{
		ID:       c.id,
		Username: c.username,
		Email:    c.username + "@example.com",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", c.username, err)
	}
}
