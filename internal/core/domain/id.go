package domain

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type UserID uuid.UUID
type MessageID uuid.UUID

func NewUserID() UserID {
	return UserID(uuid.New())
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(id), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

func (id UserID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

func ParseMessageID(s string) (MessageID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MessageID{}, err
	}
	return MessageID(id), nil
}

func (id MessageID) String() string {
	return uuid.UUID(id).String()
}

// CallID is a ULID so rapid concurrent initiations between the same pair
// cannot collide.
type CallID string

func NewCallID() CallID {
	return CallID(ulid.Make().String())
}

func (id CallID) String() string {
	return string(id)
}
