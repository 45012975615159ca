package http

import (
	"context"
	"net/http"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/fixora/tasktrail/internal/usecase"
	"github.com/gorilla/mux"
)

// AuthUseCase defines the behavior the auth handler depends on
type AuthUseCase interface {
	Register(ctx context.Context, req usecase.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req usecase.LoginRequest) (*usecase.LoginResponse, error)
	Logout(ctx context.Context, caller ports.TokenClaims) error
	Me(ctx context.Context, caller ports.TokenClaims) (*domain.User, error)
}

// AuthHandler handles registration and sessions
type AuthHandler struct {
	auth AuthUseCase
	log  logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthUseCase, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// RegisterRoutes registers auth routes. Register and login are public.
func (h *AuthHandler) RegisterRoutes(public, protected *mux.Router) {
	public.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
	public.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	protected.HandleFunc("/api/auth/logout", h.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/api/auth/me", h.Me).Methods(http.MethodGet)
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered successfully", user)
}

// Login handles credential checks and token issuing
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req usecase.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	req.ClientIP = clientIP(r)

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", resp)
}

// Logout records the end of the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	if err := h.auth.Logout(r.Context(), caller); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}

// Me returns the caller's account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	user, err := h.auth.Me(r.Context(), caller)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User retrieved successfully", user)
}
