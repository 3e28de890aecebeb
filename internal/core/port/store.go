package port

import (
	"context"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
)

// Store is the persistence collaborator. The realtime path never waits on
// its writes; failures are logged and surfaced to the initiator only.
type Store interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, exclude domain.UserID) ([]domain.User, error)
	SearchUsers(ctx context.Context, query string, exclude domain.UserID, limit int) ([]domain.User, error)
	SetUserStatus(ctx context.Context, id domain.UserID, status domain.UserStatus, lastSeen time.Time) error

	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error
	GetMessage(ctx context.Context, id domain.MessageID) (*domain.ChatMessage, error)
	MarkMessagesRead(ctx context.Context, ids []domain.MessageID, readerID domain.UserID, readAt time.Time) error
	MarkConversationRead(ctx context.Context, senderID, readerID domain.UserID, readAt time.Time) error
	ListMessagesBetween(ctx context.Context, a, b domain.UserID, page, limit int) ([]domain.ChatMessage, error)

	UpsertConversation(ctx context.Context, a, b domain.UserID, lastMessageID domain.MessageID, at time.Time) error
	ListConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error)
}
