package ports

import (
	"context"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/google/uuid"
)

// MutationKind is the physical operation about to be applied
type MutationKind string

const (
	MutationInsert MutationKind = "insert"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Mutation describes one insert, update or delete of a tracked entity as
// seen by a LifecycleObserver. The persistence layer fills it in and keeps
// the same value for the BeforeChange and AfterChange calls.
type Mutation struct {
	// Handle identifies this physical operation. Two mutations of the same
	// entity type inside one transaction always carry different handles.
	Handle uuid.UUID

	Kind   MutationKind
	Entity string

	// EntityID is known up front for updates and deletes
	EntityID int64

	// Instance is the new state for inserts and updates. Inserts get their
	// generated ID written into it by the time AfterChange runs.
	Instance interface{}

	// Load reads the currently stored state inside the same transaction
	Load func(ctx context.Context) (interface{}, error)

	// Err is the outcome of the physical operation, set before AfterChange
	Err error

	// AfterCommit schedules fn to run once the surrounding transaction has
	// committed. Scheduled functions are dropped on rollback.
	AfterCommit func(fn func(ctx context.Context))
}

// LifecycleObserver is notified around every tracked mutation.
// BeforeChange runs before the statement is issued and may veto it by
// returning an error. AfterChange always runs, even when the statement
// failed, so observers can release per-mutation state.
type LifecycleObserver interface {
	BeforeChange(ctx context.Context, m *Mutation) error
	AfterChange(ctx context.Context, m *Mutation)
}

// AuditRecorder appends explicit domain actions, such as LOGIN, that are
// not tied to an entity mutation. Failures never reach the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entityType string, entityID int64, action domain.AuditAction, details map[string]interface{})
}
