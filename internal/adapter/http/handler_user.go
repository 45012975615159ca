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

// UserUseCase defines the behavior the user handler depends on
type UserUseCase interface {
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, caller ports.TokenClaims, id int64, req usecase.UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, caller ports.TokenClaims, id int64) error
}

// UserHandler handles HTTP requests for accounts
type UserHandler struct {
	users UserUseCase
	log   logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserUseCase, log logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// RegisterRoutes registers user routes
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/users", h.ListUsers).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{id}", h.GetUser).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	router.HandleFunc("/api/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
}

// ListUsers handles account listing, optionally by role
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter domain.UserFilter
		err    error
	)
	if role := queryString(q, "role"); role != nil {
		rv := domain.Role(*role)
		filter.Role = &rv
	}
	if filter.Limit, err = queryInt(q, "limit"); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if filter.Offset, err = queryInt(q, "offset"); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	users, err := h.users.ListUsers(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}

	writeSuccess(w, http.StatusOK, "Users retrieved successfully", users)
}

// GetUser handles retrieving one account
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User retrieved successfully", user)
}

// UpdateUser handles account changes
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req usecase.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	user, err := h.users.UpdateUser(r.Context(), caller, id, req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User updated successfully", user)
}

// DeleteUser handles account removal
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := h.users.DeleteUser(r.Context(), caller, id); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
