package service

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/avolkov/duet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// ChatService relays chat messages, read receipts and typing signals
// between live connections, persisting through the store. The live delivery
// path never waits on persistence: a message is pushed to both parties
// immediately and the store write completes (or fails) on its own.
type ChatService struct {
	registry *Registry
	store    port.Store
	wg       sync.WaitGroup
}

func NewChatService(registry *Registry, store port.Store) *ChatService {
	return &ChatService{
		registry: registry,
		store:    store,
	}
}

// Send validates, persists and relays one message. Delivery to an offline
// receiver is dropped; the message stays retrievable through the history
// API.
func (s *ChatService) Send(ctx context.Context, sender port.Client, receiverID, content string) error {
	recID, err := domain.ParseUserID(receiverID)
	if err != nil {
		return domain.NewValidationError("invalid message data")
	}

	msg, err := domain.NewChatMessage(sender.UserID(), recID, content)
	if err != nil {
		return err
	}

	s.persist(sender, msg)

	payload := domain.MessagePayload{
		ID:         msg.ID.String(),
		Sender:     s.senderInfo(ctx, sender),
		ReceiverID: recID.String(),
		Content:    msg.Content,
		Type:       msg.Type,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
	}

	if receiver, ok := s.registry.Lookup(recID); ok {
		if err := receiver.Send(domain.Event{Type: domain.EventMessageReceive, Data: payload}); err != nil {
			log.Warn().Err(err).Str("user_id", recID.String()).Msg("Dropped message delivery")
		}
	}

	if err := sender.Send(domain.Event{Type: domain.EventMessageSent, Data: payload}); err != nil {
		log.Warn().Err(err).Str("user_id", sender.UserID().String()).Msg("Dropped send confirmation")
	}
	return nil
}

// MarkRead flips read on every message in ids addressed to the reader and
// confirms to the sender of the first id if they are online. Batches that
// span multiple senders only notify the first sender.
func (s *ChatService) MarkRead(ctx context.Context, reader port.Client, rawIDs []string) error {
	ids := make([]domain.MessageID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := domain.ParseMessageID(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.store.MarkMessagesRead(ctx, ids, reader.UserID(), time.Now()); err != nil {
		log.Error().Err(err).Str("user_id", reader.UserID().String()).Msg("Failed to mark messages read")
		sendError(reader, "Failed to mark messages as read")
		return err
	}

	first, err := s.store.GetMessage(ctx, ids[0])
	if err != nil {
		log.Error().Err(err).Str("message_id", ids[0].String()).Msg("Failed to resolve read-receipt sender")
		return nil
	}

	if sender, ok := s.registry.Lookup(first.SenderID); ok {
		confirmed := make([]string, len(ids))
		for i, id := range ids {
			confirmed[i] = id.String()
		}
		if err := sender.Send(domain.Event{
			Type: domain.EventMessageReadConfirm,
			Data: domain.ReadConfirmPayload{
				MessageIDs: confirmed,
				ReadBy:     reader.UserID().String(),
			},
		}); err != nil {
			log.Warn().Err(err).Str("user_id", first.SenderID.String()).Msg("Dropped read confirmation")
		}
	}
	return nil
}

// Typing forwards a typing indicator to the receiver if they are online.
// No persistence, no buffering.
func (s *ChatService) Typing(ctx context.Context, from port.Client, receiverID string, start bool) {
	recID, err := domain.ParseUserID(receiverID)
	if err != nil {
		return
	}
	receiver, ok := s.registry.Lookup(recID)
	if !ok {
		return
	}

	ev := domain.Event{Type: domain.EventTypingStop, Data: domain.TypingPayload{UserID: from.UserID().String()}}
	if start {
		ev = domain.Event{Type: domain.EventTypingStart, Data: domain.TypingPayload{
			UserID:   from.UserID().String(),
			Username: from.Username(),
		}}
	}
	if err := receiver.Send(ev); err != nil {
		log.Warn().Err(err).Str("user_id", recID.String()).Msg("Dropped typing event")
	}
}

// Flush blocks until in-flight persistence writes have finished. Called on
// shutdown and by tests.
func (s *ChatService) Flush() {
	s.wg.Wait()
}

func (s *ChatService) persist(sender port.Client, msg *domain.ChatMessage) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.store.SaveMessage(ctx, msg); err != nil {
			log.Error().Err(err).Str("message_id", msg.ID.String()).Msg("Failed to persist message")
			sendError(sender, "Failed to send message")
			return
		}
		if err := s.store.UpsertConversation(ctx, msg.SenderID, msg.ReceiverID, msg.ID, msg.CreatedAt); err != nil {
			log.Error().Err(err).Str("message_id", msg.ID.String()).Msg("Failed to update conversation")
			sendError(sender, "Failed to send message")
		}
	}()
}

// senderInfo resolves display info from the store, falling back to what the
// connection already knows.
func (s *ChatService) senderInfo(ctx context.Context, sender port.Client) domain.MessageSender {
	info := domain.MessageSender{
		ID:       sender.UserID().String(),
		Username: sender.Username(),
	}
	if u, err := s.store.GetUser(ctx, sender.UserID()); err == nil {
		info.Username = u.Username
		info.Avatar = u.Avatar
	}
	return info
}

func sendError(c port.Client, msg string) {
	if err := c.Send(domain.Event{Type: domain.EventError, Data: domain.ErrorPayload{Message: msg}}); err != nil {
		log.Warn().Err(err).Str("user_id", c.UserID().String()).Msg("Dropped error event")
	}
}
