package domain

import (
	"time"
)

// Tracked entity names as they appear in AuditRecord.EntityType
const (
	EntityTask       = "Task"
	EntityUser       = "User"
	EntityTeam       = "Team"
	EntityTeamMember = "TeamMember"
	EntityComment    = "Comment"
)

// AuditAction describes what happened to an entity
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
	AuditActionAssign       AuditAction = "ASSIGN"
	AuditActionUnassign     AuditAction = "UNASSIGN"
	AuditActionLogin        AuditAction = "LOGIN"
	AuditActionLogout       AuditAction = "LOGOUT"
)

// Valid reports whether a is a known action
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete, AuditActionStatusChange,
		AuditActionAssign, AuditActionUnassign, AuditActionLogin, AuditActionLogout:
		return true
	}
	return false
}

// UnknownActor is recorded when no actor was bound to the unit of work
const UnknownActor int64 = 0

// Snapshot is the flat, normalized field map of one entity instance
type Snapshot map[string]interface{}

// FieldChange holds the before and after value of one field
type FieldChange struct {
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// Changes maps field names to their before/after pair
type Changes map[string]FieldChange

// AuditDetails is the action-dependent payload of an AuditRecord.
// Exactly one of New, Changes or Previous is set for entity mutations;
// Context carries free-form data for explicit actions such as LOGIN.
type AuditDetails struct {
	New      Snapshot       `json:"new,omitempty"`
	Changes  Changes        `json:"changes,omitempty"`
	Previous Snapshot       `json:"previous,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// AuditRecord is one immutable entry of the change history
type AuditRecord struct {
	ID         int64        `json:"id"`
	EntityType string       `json:"entityType"`
	EntityID   int64        `json:"entityId"`
	Action     AuditAction  `json:"action"`
	ActorID    int64        `json:"actorId"`
	Timestamp  time.Time    `json:"timestamp"`
	Details    AuditDetails `json:"details"`
}

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 100
)

// AuditFilter represents filters for querying the change history.
// All filters are optional and combine with AND.
type AuditFilter struct {
	EntityType *string      `json:"entityType,omitempty"`
	EntityID   *int64       `json:"entityId,omitempty"`
	ActorID    *int64       `json:"actorId,omitempty"`
	Action     *AuditAction `json:"action,omitempty"`
	From       *time.Time   `json:"from,omitempty"`
	To         *time.Time   `json:"to,omitempty"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}

// Normalize applies the default limit, caps it at max and clamps the offset
func (f AuditFilter) Normalize(defaultLimit, max int) AuditFilter {
	if max <= 0 || max > MaxAuditLimit {
		max = MaxAuditLimit
	}
	if defaultLimit <= 0 || defaultLimit > max {
		defaultLimit = max
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > max {
		f.Limit = max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether r satisfies every set filter
func (f AuditFilter) Matches(r *AuditRecord) bool {
	if f.EntityType != nil && r.EntityType != *f.EntityType {
		return false
	}
	if f.EntityID != nil && r.EntityID != *f.EntityID {
		return false
	}
	if f.ActorID != nil && r.ActorID != *f.ActorID {
		return false
	}
	if f.Action != nil && r.Action != *f.Action {
		return false
	}
	if f.From != nil && r.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// AuditPage is one page of query results plus the total match count
type AuditPage struct {
	Total int            `json:"total"`
	Items []*AuditRecord `json:"items"`
}
