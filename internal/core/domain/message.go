package domain

import "time"

const MessageTypeText = "text"

type ChatMessage struct {
	ID         MessageID
	SenderID   UserID
	ReceiverID UserID
	Content    string
	Type       string
	Read       bool
	CreatedAt  time.Time
	ReadAt     *time.Time
}

func NewChatMessage(senderID, receiverID UserID, content string) (*ChatMessage, error) {
	if receiverID.IsZero() || content == "" {
		return nil, NewValidationError("invalid message data")
	}
	return &ChatMessage{
		ID:         NewMessageID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       MessageTypeText,
		CreatedAt:  time.Now(),
	}, nil
}

// Conversation tracks the single thread between an unordered pair of users.
type Conversation struct {
	ID             uint
	ParticipantA   UserID
	ParticipantB   UserID
	LastMessageID  MessageID
	LastActivityAt time.Time
}

// ConversationSummary is what the rooms listing returns: the conversation
// seen from one participant's side.
type ConversationSummary struct {
	ID           uint
	Participant  User
	LastMessage  *ChatMessage
	LastActivity time.Time
}

// NormalizePair orders a pair of user ids so {a,b} and {b,a} address the
// same conversation row.
func NormalizePair(a, b UserID) (UserID, UserID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
