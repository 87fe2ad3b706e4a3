package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vibevault/vibevault/internal/service"
	"github.com/vibevault/vibevault/internal/token"
)

// AuthHandler handles registration and login requests.
type AuthHandler struct {
	users  *service.UserService
	tokens *token.Service
	logger zerolog.Logger
}

// AuthConfig contains configuration for the auth handler.
type AuthConfig struct {
	UserService  *service.UserService
	TokenService *token.Service
	Logger       zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		users:  cfg.UserService,
		tokens: cfg.TokenService,
		logger: cfg.Logger.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)
}

// handleRegister creates a new user account.
func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().Str("username", user.Username).Msg("user registered")
	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message:  "user registered successfully",
		Username: user.Username,
	})
}

// handleLogin verifies credentials and issues a bearer token.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	tok, err := h.tokens.Issue(user.Username)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to issue token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    tok,
		Username: user.Username,
	})
}
