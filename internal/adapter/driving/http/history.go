package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ListMessages returns the paginated thread between the caller and another
// user, newest page first in chronological order, and marks the fetched
// direction read, as the realtime client expects after opening a thread.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	me := requestUserID(r)
	other, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	// keep has_more honest: the store caps pages at 200
	if limit > 200 {
		limit = 200
	}

	msgs, err := h.Store.ListMessagesBetween(r.Context(), me, other, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list messages")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	if err := h.Store.MarkConversationRead(r.Context(), other, me, time.Now()); err != nil {
		log.Error().Err(err).Msg("Failed to mark conversation read")
	}

	out := make([]map[string]any, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageJSON(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": out,
		"has_more": len(msgs) == limit,
	})
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	me := requestUserID(r)

	rooms, err := h.Store.ListConversations(r.Context(), me)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list conversations")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	out := make([]map[string]any, 0, len(rooms))
	for i := range rooms {
		room := map[string]any{
			"id":            rooms[i].ID,
			"participant":   userJSON(&rooms[i].Participant),
			"last_activity": rooms[i].LastActivity,
		}
		if rooms[i].LastMessage != nil {
			room["last_message"] = messageJSON(rooms[i].LastMessage)
		}
		out = append(out, room)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context(), requestUserID(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": usersJSON(users)})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, map[string]any{"users": []any{}})
		return
	}
	users, err := h.Store.SearchUsers(r.Context(), q, requestUserID(r), 10)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search users")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": usersJSON(users)})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(u)})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func userJSON(u *domain.User) map[string]any {
	return map[string]any{
		"id":        u.ID.String(),
		"username":  u.Username,
		"email":     u.Email,
		"avatar":    u.Avatar,
		"status":    u.Status,
		"last_seen": u.LastSeen,
	}
}

func usersJSON(users []domain.User) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	return out
}

func messageJSON(m *domain.ChatMessage) map[string]any {
	return map[string]any{
		"id":          m.ID.String(),
		"sender_id":   m.SenderID.String(),
		"receiver_id": m.ReceiverID.String(),
		"content":     m.Content,
		"type":        m.Type,
		"read":        m.Read,
		"created_at":  m.CreatedAt,
		"read_at":     m.ReadAt,
	}
}
