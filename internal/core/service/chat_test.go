package service

import (
	"context"
	"errors"
	"testing"

	"github.com/avolkov/duet/internal/core/domain"
)

func TestSend_EmptyContentFailsValidation(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	chat := NewChatService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	seedUser(t, store, alice)
	seedUser(t, store, bob)
	registry.Register(alice)
	registry.Register(bob)

	err := chat.Send(context.Background(), alice, bob.id.String(), "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	chat.Flush()

	if alice.count(domain.EventMessageSent) != 0 || bob.count(domain.EventMessageReceive) != 0 {
		t.Fatal("no events should be delivered for an invalid send")
	}
	msgs, err := store.ListMessagesBetween(context.Background(), alice.id, bob.id, 1, 50)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(msgs))
	}
	rooms, err := store.ListConversations(context.Background(), alice.id)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected no conversation, got %d", len(rooms))
	}
}

func TestSend_EmptyReceiverFailsValidation(t *testing.T) {
	store := openTestStore(t)
	chat := NewChatService(NewRegistry(), store)
	alice := newFakeClient("alice")
	seedUser(t, store, alice)

	err := chat.Send(context.Background(), alice, "", "hello")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSend_OfflineReceiverStoreAndForward(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	chat := NewChatService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	seedUser(t, store, alice)
	seedUser(t, store, bob)
	registry.Register(alice) // bob stays offline

	if err := chat.Send(context.Background(), alice, bob.id.String(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	chat.Flush()

	if bob.count(domain.EventMessageReceive) != 0 {
		t.Fatal("offline receiver must get nothing live")
	}
	sent := alice.byType(domain.EventMessageSent)
	if len(sent) != 1 {
		t.Fatalf("expected one message:sent confirmation, got %d", len(sent))
	}

	msgs, err := store.ListMessagesBetween(context.Background(), alice.id, bob.id, 1, 50)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("expected the message persisted, got %+v", msgs)
	}

	rooms, err := store.ListConversations(context.Background(), bob.id)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected one conversation, got %d", len(rooms))
	}
	if rooms[0].LastMessage == nil || rooms[0].LastMessage.ID != msgs[0].ID {
		t.Fatal("conversation last message not updated")
	}
}

func TestSend_OnlineReceiverGetsMessage(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	chat := NewChatService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	seedUser(t, store, alice)
	seedUser(t, store, bob)
	registry.Register(alice)
	registry.Register(bob)

	if err := chat.Send(context.Background(), alice, bob.id.String(), "hi bob"); err != nil {
		t.Fatalf("send: %v", err)
	}
	chat.Flush()

	received := bob.byType(domain.EventMessageReceive)
	if len(received) != 1 {
		t.Fatalf("expected one message:receive, got %d", len(received))
	}
	payload := received[0].Data.(domain.MessagePayload)
	if payload.Sender.ID != alice.id.String() || payload.Sender.Username != "alice" {
		t.Fatalf("unexpected sender info: %+v", payload.Sender)
	}
	if payload.Content != "hi bob" || payload.Type != domain.MessageTypeText || payload.Read {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if alice.count(domain.EventMessageSent) != 1 {
		t.Fatal("sender must always get message:sent")
	}
}

func TestSend_UndeliverableConfirmationIsDropped(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	chat := NewChatService(registry, store)

	alice := newFakeClient("alice")
	alice.sendErr = errors.New("send buffer full, event dropped")
	bob := newFakeClient("bob")
	seedUser(t, store, alice)
	seedUser(t, store, bob)
	registry.Register(alice)
	registry.Register(bob)

	if err := chat.Send(context.Background(), alice, bob.id.String(), "hello"); err != nil {
		t.Fatalf("a saturated sender must not fail the send: %v", err)
	}
	chat.Flush()

	if bob.count(domain.EventMessageReceive) != 1 {
		t.Fatal("the receiver should still get the message")
	}
	msgs, err := store.ListMessagesBetween(context.Background(), alice.id, bob.id, 1, 50)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected the message persisted, got %d", len(msgs))
	}
}

func TestMarkRead_FlipsOnlyReadersMessages(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	chat := NewChatService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	carol := newFakeClient("carol")
	for _, c := range []*fakeClient{alice, bob, carol} {
		seedUser(t, store, c)
	}
	registry.Register(alice)
	registry.Register(bob)

	toBob, err := domain.NewChatMessage(alice.id, bob.id, "for bob")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	toCarol, err := domain.NewChatMessage(alice.id, carol.id, "for carol")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	for _, m := range []*domain.ChatMessage{toBob, toCarol} {
		if err := store.SaveMessage(context.Background(), m); err != nil {
			t.Fatalf("save message: %v", err)
		}
	}

	ids := []string{toBob.ID.String(), toCarol.ID.String()}
	if err := chat.MarkRead(context.Background(), bob, ids); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	got, err := store.GetMessage(context.Background(), toBob.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if !got.Read || got.ReadAt == nil {
		t.Fatal("bob's message should be read")
	}

	got, err = store.GetMessage(context.Background(), toCarol.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Read {
		t.Fatal("carol's message must be untouched by bob's read batch")
	}

	confirms := alice.byType(domain.EventMessageReadConfirm)
	if len(confirms) != 1 {
		t.Fatalf("expected one read confirmation at the first sender, got %d", len(confirms))
	}
	payload := confirms[0].Data.(domain.ReadConfirmPayload)
	if payload.ReadBy != bob.id.String() || len(payload.MessageIDs) != 2 {
		t.Fatalf("unexpected confirmation: %+v", payload)
	}
}

func TestMarkRead_EmptyBatchIsNoop(t *testing.T) {
	store := openTestStore(t)
	chat := NewChatService(NewRegistry(), store)
	bob := newFakeClient("bob")

	if err := chat.MarkRead(context.Background(), bob, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestTyping_ForwardedOnlyWhenOnline(t *testing.T) {
	store := openTestStore(t)
	registry := NewRegistry()
	chat := NewChatService(registry, store)

	alice := newFakeClient("alice")
	bob := newFakeClient("bob")
	registry.Register(alice)
	registry.Register(bob)

	chat.Typing(context.Background(), alice, bob.id.String(), true)
	chat.Typing(context.Background(), alice, bob.id.String(), false)

	starts := bob.byType(domain.EventTypingStart)
	if len(starts) != 1 {
		t.Fatalf("expected one typing:start, got %d", len(starts))
	}
	start := starts[0].Data.(domain.TypingPayload)
	if start.UserID != alice.id.String() || start.Username != "alice" {
		t.Fatalf("unexpected typing:start payload: %+v", start)
	}
	stops := bob.byType(domain.EventTypingStop)
	if len(stops) != 1 {
		t.Fatalf("expected one typing:stop, got %d", len(stops))
	}
	if stop := stops[0].Data.(domain.TypingPayload); stop.Username != "" {
		t.Fatalf("typing:stop should not carry a username: %+v", stop)
	}

	// offline target: silently dropped
	registry.Unregister(bob.id)
	chat.Typing(context.Background(), alice, bob.id.String(), true)
	if len(bob.byType(domain.EventTypingStart)) != 1 {
		t.Fatal("typing to an offline user must be dropped")
	}
}
