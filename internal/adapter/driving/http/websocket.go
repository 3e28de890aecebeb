package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	wsgw "github.com/avolkov/duet/internal/adapter/driven/gateway/ws"
	"github.com/avolkov/duet/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	readLimit    = int64(64 << 10)
	readDeadline = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendData struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type readData struct {
	MessageIDs []string `json:"message_ids"`
}

type typingData struct {
	ReceiverID string `json:"receiver_id"`
}

type initiateData struct {
	ReceiverID string `json:"receiver_id"`
	CallType   string `json:"call_type"`
}

type callRefData struct {
	CallID string `json:"call_id"`
}

type signalData struct {
	CallID  string          `json:"call_id"`
	Payload json.RawMessage `json:"payload"`
}

// ServeWS authenticates the handshake, registers the connection and runs
// the read loop. Each connection dispatches its inbound events in arrival
// order; nothing is ordered across connections.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on a websocket handshake, so the token
	// rides in the query string.
	userID, username, err := h.parseToken(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	up := upgrader
	if h.WSInsecureSkipVerify {
		up.CheckOrigin = func(r *http.Request) bool { return true }
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := wsgw.NewClient(userID, username, conn)

	l := log.With().Str("user_id", userID.String()).Str("username", username).Logger()
	l.Info().Msg("User connected")

	h.Registry.Register(client)
	h.Presence.Connected(r.Context(), client)

	defer func() {
		l.Info().Msg("User disconnected")
		h.Registry.Unregister(userID)
		h.Calls.CleanupFor(r.Context(), userID)
		h.Presence.Disconnected(r.Context(), client)
		client.Close()
	}()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		var ev inboundEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}
		h.dispatch(r, client, &ev)
	}
}

func (h *Handler) dispatch(r *http.Request, client *wsgw.Client, ev *inboundEvent) {
	ctx := r.Context()

	switch ev.Event {
	case "message:send":
		var d sendData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			h.reportError(client, domain.NewValidationError("invalid message data"))
			return
		}
		if err := h.Chat.Send(ctx, client, d.ReceiverID, d.Content); err != nil {
			h.reportError(client, err)
		}

	case "message:read":
		var d readData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		h.Chat.MarkRead(ctx, client, d.MessageIDs)

	case "typing:start", "typing:stop":
		var d typingData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		h.Chat.Typing(ctx, client, d.ReceiverID, ev.Event == "typing:start")

	case "call:initiate":
		var d initiateData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			h.reportError(client, domain.ErrUserOffline)
			return
		}
		if err := h.Calls.Initiate(ctx, client, d.ReceiverID, domain.CallType(d.CallType)); err != nil {
			h.reportError(client, err)
		}

	case "call:accept":
		var d callRefData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			h.reportError(client, domain.ErrInvalidCall)
			return
		}
		if err := h.Calls.Accept(ctx, client, d.CallID); err != nil {
			h.reportError(client, err)
		}

	case "call:reject":
		var d callRefData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		h.Calls.Reject(ctx, d.CallID)

	case "call:end":
		var d callRefData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		h.Calls.End(ctx, client.UserID(), d.CallID)

	case "webrtc:offer", "webrtc:answer", "webrtc:ice-candidate":
		var d signalData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		kind := domain.SignalOffer
		switch ev.Event {
		case "webrtc:answer":
			kind = domain.SignalAnswer
		case "webrtc:ice-candidate":
			kind = domain.SignalICECandidate
		}
		h.Calls.Forward(ctx, client, d.CallID, kind, d.Payload)

	default:
		log.Debug().Str("event", ev.Event).Msg("Unknown inbound event")
	}
}

// reportError maps the error taxonomy onto wire events: call failures go
// out as call:error, everything else as error.
func (h *Handler) reportError(client *wsgw.Client, err error) {
	ev := domain.EventError
	if errors.Is(err, domain.ErrUserOffline) || errors.Is(err, domain.ErrInvalidCall) {
		ev = domain.EventCallError
	}
	msg := err.Error()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		msg = verr.Msg
	}
	if sendErr := client.Send(domain.Event{Type: ev, Data: domain.ErrorPayload{Message: msg}}); sendErr != nil {
		log.Warn().Err(sendErr).Str("user_id", client.UserID().String()).Msg("Dropped error event")
	}
}
