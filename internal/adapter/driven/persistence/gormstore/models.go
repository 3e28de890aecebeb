package gormstore

import "time"

type User struct {
	ID           string `gorm:"type:char(36);primaryKey"`
	Username     string `gorm:"size:120;uniqueIndex;not null"`
	Email        string `gorm:"size:190;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Avatar       string `gorm:"size:255"`
	Status       string `gorm:"size:16;not null;default:offline"`
	LastSeen     time.Time
	CreatedAt    time.Time
}

type Message struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	SenderID   string    `gorm:"type:char(36);index;not null"`
	ReceiverID string    `gorm:"type:char(36);index;not null"`
	Content    string    `gorm:"type:text;not null"`
	Type       string    `gorm:"size:16;not null"`
	Read       bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"index"`
	ReadAt     *time.Time
}

// Conversation holds one row per unordered participant pair; the pair is
// stored normalized so the composite unique index enforces that.
type Conversation struct {
	ID             uint      `gorm:"primaryKey"`
	ParticipantA   string    `gorm:"type:char(36);uniqueIndex:uk_conv_pair,priority:1;not null"`
	ParticipantB   string    `gorm:"type:char(36);uniqueIndex:uk_conv_pair,priority:2;not null"`
	LastMessageID  string    `gorm:"type:char(36)"`
	LastActivityAt time.Time `gorm:"index"`
	CreatedAt      time.Time
}
