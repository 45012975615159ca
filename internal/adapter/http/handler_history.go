package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/gorilla/mux"
)

// HistoryUseCase defines the behavior the history handler depends on
type HistoryUseCase interface {
	Query(ctx context.Context, filter domain.AuditFilter) (*domain.AuditPage, error)
}

// HistoryHandler serves the change history. Unlike the other handlers it
// writes the page as is, without the response envelope.
type HistoryHandler struct {
	history HistoryUseCase
	log     logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history HistoryUseCase, log logger.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, log: log}
}

// RegisterRoutes registers history routes
func (h *HistoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/history", h.Query).Methods(http.MethodGet)
}

// Query handles GET /api/history
func (h *HistoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	page, err := h.history.Query(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func parseAuditFilter(r *http.Request) (domain.AuditFilter, error) {
	q := r.URL.Query()
	var (
		filter domain.AuditFilter
		err    error
	)

	filter.EntityType = queryString(q, "entityType")
	if a := queryString(q, "action"); a != nil {
		action := domain.AuditAction(strings.ToUpper(*a))
		filter.Action = &action
	}
	if filter.EntityID, err = queryInt64(q, "entityId"); err != nil {
		return filter, err
	}
	if filter.ActorID, err = queryInt64(q, "actorId"); err != nil {
		return filter, err
	}
	if filter.From, err = queryTime(q, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryTime(q, "to"); err != nil {
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
