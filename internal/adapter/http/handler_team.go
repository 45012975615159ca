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

// TeamUseCase defines the behavior the team handler depends on
type TeamUseCase interface {
	CreateTeam(ctx context.Context, caller ports.TokenClaims, req usecase.CreateTeamRequest) (*domain.Team, error)
	ListTeams(ctx context.Context, caller ports.TokenClaims) ([]*domain.Team, error)
	GetTeam(ctx context.Context, caller ports.TokenClaims, id int64) (*usecase.TeamDetails, error)
	UpdateTeam(ctx context.Context, caller ports.TokenClaims, id int64, req usecase.UpdateTeamRequest) (*domain.Team, error)
	DeleteTeam(ctx context.Context, caller ports.TokenClaims, id int64) error
	AddMember(ctx context.Context, caller ports.TokenClaims, teamID, userID int64) (*domain.TeamMember, error)
	RemoveMember(ctx context.Context, caller ports.TokenClaims, teamID, userID int64) error
}

// AddMemberRequest names the user to add to a team
type AddMemberRequest struct {
	UserID int64 `json:"userId"`
}

// TeamHandler handles HTTP requests for teams and memberships
type TeamHandler struct {
	teams TeamUseCase
	log   logger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teams TeamUseCase, log logger.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, log: log}
}

// RegisterRoutes registers team routes
func (h *TeamHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/teams", h.ListTeams).Methods(http.MethodGet)
	router.HandleFunc("/api/teams", h.CreateTeam).Methods(http.MethodPost)
	router.HandleFunc("/api/teams/{id}", h.GetTeam).Methods(http.MethodGet)
	router.HandleFunc("/api/teams/{id}", h.UpdateTeam).Methods(http.MethodPut)
	router.HandleFunc("/api/teams/{id}", h.DeleteTeam).Methods(http.MethodDelete)
	router.HandleFunc("/api/teams/{id}/members", h.AddMember).Methods(http.MethodPost)
	router.HandleFunc("/api/teams/{id}/members/{userId}", h.RemoveMember).Methods(http.MethodDelete)
}

// ListTeams handles listing the caller's teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	teams, err := h.teams.ListTeams(r.Context(), caller)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	if teams == nil {
		teams = []*domain.Team{}
	}

	writeSuccess(w, http.StatusOK, "Teams retrieved successfully", teams)
}

// CreateTeam handles team creation
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	caller, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	var req usecase.CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	team, err := h.teams.CreateTeam(r.Context(), caller, req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Team created successfully", team)
}

// GetTeam handles retrieving a team with its members
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	team, err := h.teams.GetTeam(r.Context(), caller, id)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Team retrieved successfully", team)
}

// UpdateTeam handles team changes
func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req usecase.UpdateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	team, err := h.teams.UpdateTeam(r.Context(), caller, id, req)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Team updated successfully", team)
}

// DeleteTeam handles team removal
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	if err := h.teams.DeleteTeam(r.Context(), caller, id); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember handles adding a user to a team
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "userId is required")
		return
	}

	member, err := h.teams.AddMember(r.Context(), caller, id, req.UserID)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Member added successfully", member)
}

// RemoveMember handles removing a user from a team
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := h.teams.RemoveMember(r.Context(), caller, id, userID); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) callerAndID(w http.ResponseWriter, r *http.Request) (ports.TokenClaims, int64, bool) {
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
