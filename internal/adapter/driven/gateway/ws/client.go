package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

var errClientGone = errors.New("client connection closed")

// Client implements port.Client over one gorilla websocket connection. All
// writes go through a buffered channel drained by a single write loop, so
// one slow client drops its own events instead of blocking senders.
type Client struct {
	userID   domain.UserID
	username string
	conn     *websocket.Conn

	send chan domain.Event
	done chan struct{}
	once sync.Once
}

func NewClient(userID domain.UserID, username string, conn *websocket.Conn) *Client {
	c := &Client{
		userID:   userID,
		username: username,
		conn:     conn,
		send:     make(chan domain.Event, sendBuffer),
		done:     make(chan struct{}),
	}
	go c.writeLoop()
	go c.keepAlive()
	return c
}

func (c *Client) UserID() domain.UserID {
	return c.userID
}

func (c *Client) Username() string {
	return c.username
}

// Send queues an event for delivery. Events are dropped when the client's
// buffer is full or the connection is gone.
func (c *Client) Send(ev domain.Event) error {
	select {
	case <-c.done:
		return errClientGone
	case c.send <- ev:
		return nil
	default:
		return errors.New("send buffer full, event dropped")
	}
}

func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Warn().Err(err).Str("user_id", c.userID.String()).Str("event", ev.Type).Msg("Write failed, closing client")
				c.Close()
				return
			}
		}
	}
}

func (c *Client) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
