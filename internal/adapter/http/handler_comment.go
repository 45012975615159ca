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

// CommentUseCase defines the behavior the handler depends on.
// Using an interface here makes the handler easily testable with mocks.
type CommentUseCase interface {
	CreateComment(ctx context.Context, caller ports.TokenClaims, taskID int64, req usecase.CreateCommentRequest) (*domain.Comment, error)
	ListComments(ctx context.Context, caller ports.TokenClaims, taskID int64) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, caller ports.TokenClaims, id int64) error
}

// CommentHandler handles HTTP requests for comments
type CommentHandler struct {
	comments CommentUseCase
	log      logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(comments CommentUseCase, log logger.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, log: log}
}

// RegisterRoutes registers comment routes
func (h *CommentHandler) RegisterRoutes(router *mux.Router) {
	// Comment routes for specific tasks
	router.HandleFunc("/api/tasks/{taskId}/comments", h.CreateComment).Methods(http.MethodPost)
	router.HandleFunc("/api/tasks/{taskId}/comments", h.ListComments).Methods(http.MethodGet)

	// Comment routes for individual comments
	router.HandleFunc("/api/comments/{id}", h.DeleteComment).Methods(http.MethodDelete)
}

// CreateComment handles comment creation
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}
	taskID, err := pathID(r, "taskId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req usecase.CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	comment, err := h.comments.CreateComment(r.Context(), caller, taskID, req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Comment created successfully", comment)
}

// ListComments handles retrieving the comments of a task
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}
	taskID, err := pathID(r, "taskId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	comments, err := h.comments.ListComments(r.Context(), caller, taskID)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}

	writeSuccess(w, http.StatusOK, "Comments retrieved successfully", comments)
}

// DeleteComment handles comment deletion
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
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

	if err := h.comments.DeleteComment(r.Context(), caller, id); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
