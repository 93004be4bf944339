package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/db"
)

// ErrInvalidCredentials indicates a wrong email or password
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the persistence needed by the auth handlers
type UserStore interface {
	CreateUser(ctx context.Context, user *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
}

var _ UserStore = (*db.Store)(nil)

// Handlers provides HTTP handlers for authentication
type Handlers struct {
	store  UserStore
	tokens *TokenManager
}

// NewHandlers creates new auth handlers
func NewHandlers(store UserStore, tokens *TokenManager) *Handlers {
	return &Handlers{
		store:  store,
		tokens: tokens,
	}
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned after successful registration or login
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *db.User  `json:"user"`
}

// HandleRegister creates an account and returns a token for it
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeAuthError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeAuthError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if len(req.Password) > MaxPasswordLength {
		writeAuthError(w, http.StatusBadRequest, "password cannot exceed 72 bytes")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		writeAuthError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &db.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			writeAuthError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Error().Err(err).Msg("failed to create user")
		writeAuthError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	h.writeToken(w, http.StatusCreated, user)
}

// HandleLogin exchanges credentials for a token
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeAuthError(w, http.StatusUnauthorized, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to look up user")
		writeAuthError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Debug().Str("user_id", user.ID.String()).Msg("user logged in")
	h.writeToken(w, http.StatusOK, user)
}

// HandleMe returns the current user's information
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeAuthError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get user")
		writeAuthError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !user.IsActive {
		writeAuthError(w, http.StatusUnauthorized, "account not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":       user,
		"expires_at": claims.ExpiresAt.Time,
	})
}

func (h *Handlers) authenticate(ctx context.Context, email, password string) (*db.User, error) {
	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (h *Handlers) writeToken(w http.ResponseWriter, status int, user *db.User) {
	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign token")
		writeAuthError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	})
}
