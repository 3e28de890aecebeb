package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
	"gorm.io/gorm"
)

// Store implements port.Store on a gorm database (MySQL in production,
// SQLite in tests).
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&User{}, &Message{}, &Conversation{})
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return s.db.WithContext(ctx).Create(&User{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		Status:       string(domain.StatusOffline),
		LastSeen:     time.Now(),
	}).Error
}

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id.String()).Error; err != nil {
		return nil, err
	}
	return toDomainUser(&u)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return toDomainUser(&u)
}

func (s *Store) ListUsers(ctx context.Context, exclude domain.UserID) ([]domain.User, error) {
	var rows []User
	if err := s.db.WithContext(ctx).
		Where("id <> ?", exclude.String()).
		Order("status DESC, username ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainUsers(rows)
}

func (s *Store) SearchUsers(ctx context.Context, query string, exclude domain.UserID, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []User
	if err := s.db.WithContext(ctx).
		Where("id <> ?", exclude.String()).
		Where("username LIKE ? OR email LIKE ?", "%"+query+"%", "%"+query+"%").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainUsers(rows)
}

func (s *Store) SetUserStatus(ctx context.Context, id domain.UserID, status domain.UserStatus, lastSeen time.Time) error {
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{"status": string(status), "last_seen": lastSeen}).Error
}

func (s *Store) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return s.db.WithContext(ctx).Create(&Message{
		ID:         msg.ID.String(),
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Content:    msg.Content,
		Type:       msg.Type,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
		ReadAt:     msg.ReadAt,
	}).Error
}

func (s *Store) GetMessage(ctx context.Context, id domain.MessageID) (*domain.ChatMessage, error) {
	var m Message
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error; err != nil {
		return nil, err
	}
	return toDomainMessage(&m)
}

// MarkMessagesRead flips read only on messages in ids addressed to the
// reader; rows with other receivers are untouched.
func (s *Store) MarkMessagesRead(ctx context.Context, ids []domain.MessageID, readerID domain.UserID, readAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return s.db.WithContext(ctx).Model(&Message{}).
		Where("id IN ? AND receiver_id = ?", raw, readerID.String()).
		Updates(map[string]any{"read": true, "read_at": readAt}).Error
}

func (s *Store) MarkConversationRead(ctx context.Context, senderID, readerID domain.UserID, readAt time.Time) error {
	return s.db.WithContext(ctx).Model(&Message{}).
		Where("sender_id = ? AND receiver_id = ? AND `read` = ?", senderID.String(), readerID.String(), false).
		Updates(map[string]any{"read": true, "read_at": readAt}).Error
}

// ListMessagesBetween pages through the thread between two users, newest
// page first, each page in chronological order.
func (s *Store) ListMessagesBetween(ctx context.Context, a, b domain.UserID, page, limit int) ([]domain.ChatMessage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}

	var rows []Message
	if err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a.String(), b.String(), b.String(), a.String()).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	msgs := make([]domain.ChatMessage, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		m, err := toDomainMessage(&rows[i])
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (s *Store) UpsertConversation(ctx context.Context, a, b domain.UserID, lastMessageID domain.MessageID, at time.Time) error {
	pa, pb := domain.NormalizePair(a, b)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv Conversation
		err := tx.Where("participant_a = ? AND participant_b = ?", pa.String(), pb.String()).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&Conversation{
				ParticipantA:   pa.String(),
				ParticipantB:   pb.String(),
				LastMessageID:  lastMessageID.String(),
				LastActivityAt: at,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&conv).Updates(map[string]any{
			"last_message_id":  lastMessageID.String(),
			"last_activity_at": at,
		}).Error
	})
}

func (s *Store) ListConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error) {
	uid := userID.String()

	var rows []Conversation
	if err := s.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", uid, uid).
		Order("last_activity_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.ConversationSummary, 0, len(rows))
	for _, conv := range rows {
		otherID := conv.ParticipantA
		if otherID == uid {
			otherID = conv.ParticipantB
		}

		var other User
		if err := s.db.WithContext(ctx).First(&other, "id = ?", otherID).Error; err != nil {
			return nil, err
		}
		participant, err := toDomainUser(&other)
		if err != nil {
			return nil, err
		}

		summary := domain.ConversationSummary{
			ID:           conv.ID,
			Participant:  *participant,
			LastActivity: conv.LastActivityAt,
		}

		if conv.LastMessageID != "" {
			var last Message
			err := s.db.WithContext(ctx).First(&last, "id = ?", conv.LastMessageID).Error
			if err == nil {
				m, convErr := toDomainMessage(&last)
				if convErr != nil {
					return nil, convErr
				}
				summary.LastMessage = m
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}

		out = append(out, summary)
	}
	return out, nil
}

func toDomainUser(u *User) (*domain.User, error) {
	id, err := domain.ParseUserID(u.ID)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           id,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		Status:       domain.UserStatus(u.Status),
		LastSeen:     u.LastSeen,
		CreatedAt:    u.CreatedAt,
	}, nil
}

func toDomainUsers(rows []User) ([]domain.User, error) {
	users := make([]domain.User, 0, len(rows))
	for i := range rows {
		u, err := toDomainUser(&rows[i])
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func toDomainMessage(m *Message) (*domain.ChatMessage, error) {
	id, err := domain.ParseMessageID(m.ID)
	if err != nil {
		return nil, err
	}
	senderID, err := domain.ParseUserID(m.SenderID)
	if err != nil {
		return nil, err
	}
	receiverID, err := domain.ParseUserID(m.ReceiverID)
	if err != nil {
		return nil, err
	}
	return &domain.ChatMessage{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    m.Content,
		Type:       m.Type,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
		ReadAt:     m.ReadAt,
	}, nil
}
