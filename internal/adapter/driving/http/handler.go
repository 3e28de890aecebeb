package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avolkov/duet/internal/core/port"
	"github.com/avolkov/duet/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	Registry  *service.Registry
	Presence  *service.PresenceService
	Chat      *service.ChatService
	Calls     *service.CallService
	Store     port.Store
	JWTSecret string

	// WSInsecureSkipVerify disables the websocket origin check. Dev only.
	WSInsecureSkipVerify bool
}

func NewHandler(registry *service.Registry, presence *service.PresenceService, chat *service.ChatService, calls *service.CallService, store port.Store, jwtSecret string) *Handler {
	return &Handler{
		Registry:  registry,
		Presence:  presence,
		Chat:      chat,
		Calls:     calls,
		Store:     store,
		JWTSecret: jwtSecret,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/users", h.ListUsers)
			r.Get("/users/search", h.SearchUsers)
			r.Get("/users/{userID}", h.GetUser)
			r.Get("/messages/rooms/list", h.ListRooms)
			r.Get("/messages/{userID}", h.ListMessages)
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
