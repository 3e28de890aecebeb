package domain

import "time"

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

type User struct {
	ID           UserID
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	Status       UserStatus
	LastSeen     time.Time
	CreatedAt    time.Time
}
