package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxUsername
)

type authClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (h *Handler) issueToken(u *domain.User) (string, error) {
	claims := authClaims{
		UserID:   u.ID.String(),
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}

func (h *Handler) parseToken(tokenStr string) (domain.UserID, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &authClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(h.JWTSecret), nil
	})
	if err != nil {
		return domain.UserID{}, "", err
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok || !token.Valid {
		return domain.UserID{}, "", jwt.ErrTokenInvalidClaims
	}
	id, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return domain.UserID{}, "", err
	}
	return id, claims.Username, nil
}

// RequireAuth guards REST routes with a Bearer token.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		userID, username, err := h.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = context.WithValue(ctx, ctxUsername, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUserID(r *http.Request) domain.UserID {
	id, _ := r.Context().Value(ctxUserID).(domain.UserID)
	return id
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	u := &domain.User{
		ID:           domain.NewUserID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.Store.CreateUser(r.Context(), u); err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		writeError(w, http.StatusBadRequest, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       u.ID.String(),
		"username": u.Username,
		"email":    u.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	u, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "wrong email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "wrong email or password")
		return
	}

	token, err := h.issueToken(u)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user": map[string]any{
			"id":       u.ID.String(),
			"username": u.Username,
			"email":    u.Email,
		},
	})
}
