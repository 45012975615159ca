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

// TaskUseCase defines the behavior the task handler depends on
type TaskUseCase interface {
	CreateTask(ctx context.Context, caller ports.TokenClaims, req usecase.CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, caller ports.TokenClaims, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context, caller ports.TokenClaims, filter domain.TaskFilter) ([]*domain.Task, int, error)
	UpdateTask(ctx context.Context, caller ports.TokenClaims, id int64, req usecase.UpdateTaskRequest) (*domain.Task, error)
	AssignTask(ctx context.Context, caller ports.TokenClaims, id int64, assigneeID *int64) (*domain.Task, error)
	DeleteTask(ctx context.Context, caller ports.TokenClaims, id int64) error
}

// AssignTaskRequest sets the assignee; null clears it
type AssignTaskRequest struct {
	AssignedToID *int64 `json:"assignedToId"`
}

// TaskListResponse is one page of tasks
type TaskListResponse struct {
	Items []*domain.Task `json:"items"`
	Total int            `json:"total"`
}

// TaskHandler handles HTTP requests for tasks
type TaskHandler struct {
	tasks TaskUseCase
	log   logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks TaskUseCase, log logger.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

// RegisterRoutes registers task routes
func (h *TaskHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/tasks", h.ListTasks).Methods(http.MethodGet)
	router.HandleFunc("/api/tasks", h.CreateTask).Methods(http.MethodPost)
	router.HandleFunc("/api/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	router.HandleFunc("/api/tasks/{id}", h.UpdateTask).Methods(http.MethodPut)
	router.HandleFunc("/api/tasks/{id}/assign", h.AssignTask).Methods(http.MethodPatch)
	router.HandleFunc("/api/tasks/{id}", h.DeleteTask).Methods(http.MethodDelete)
}

// ListTasks handles task listing with optional filters
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	filter, err := parseTaskFilter(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	tasks, total, err := h.tasks.ListTasks(r.Context(), caller, filter)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	writeSuccess(w, http.StatusOK, "Tasks retrieved successfully", TaskListResponse{
		Items: tasks,
		Total: total,
	})
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	var req usecase.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), caller, req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Task created successfully", task)
}

// GetTask handles retrieving a single task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), caller, id)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Task retrieved successfully", task)
}

// UpdateTask handles task field and status changes
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req usecase.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), caller, id, req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Task updated successfully", task)
}

// AssignTask handles assigning and unassigning a task
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	task, err := h.tasks.AssignTask(r.Context(), caller, id, req.AssignedToID)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Task assignment updated", task)
}

// DeleteTask handles task deletion
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), caller, id); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) callerAndID(w http.ResponseWriter, r *http.Request) (ports.TokenClaims, int64, bool) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return caller, 0, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return caller, 0, false
	}
	return caller, id, true
}

func parseTaskFilter(r *http.Request) (domain.TaskFilter, error) {
	q := r.URL.Query()
	var (
		filter domain.TaskFilter
		err    error
	)

	if s := queryString(q, "status"); s != nil {
		status := domain.TaskStatus(*s)
		filter.Status = &status
	}
	if p := queryString(q, "priority"); p != nil {
		priority := domain.TaskPriority(*p)
		filter.Priority = &priority
	}
	if filter.AssignedTo, err = queryInt64(q, "assignedToId"); err != nil {
		return filter, err
	}
	if filter.TeamID, err = queryInt64(q, "teamId"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(q, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}
