package port

import "github.com/avolkov/duet/internal/core/domain"

// Client is one user's live connection handle. Send is best-effort: a slow
// or dead client drops events rather than blocking the caller.
type Client interface {
	UserID() domain.UserID
	Username() string
	Send(ev domain.Event) error
	Close() error
}
