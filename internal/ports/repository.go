package ports

import (
	"context"

	"github.com/fixora/tasktrail/internal/domain"
)

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	// Create saves a new task and fills in its generated ID
	Create(ctx context.Context, task *domain.Task) error

	// FindByID retrieves a task by its ID
	FindByID(ctx context.Context, id int64) (*domain.Task, error)

	// Update persists every mutable field of an existing task
	Update(ctx context.Context, task *domain.Task) error

	// List retrieves tasks based on filter criteria
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)

	// Delete removes a task
	Delete(ctx context.Context, id int64) error

	// Count returns the number of tasks matching the filter
	Count(ctx context.Context, filter domain.TaskFilter) (int, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)

	// FindByEmail returns ErrUserNotFound when no account uses the address
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// TeamRepository defines the interface for team and membership persistence
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	FindByID(ctx context.Context, id int64) (*domain.Team, error)
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id int64) error

	// ListForUser returns the teams a user owns or belongs to
	ListForUser(ctx context.Context, userID int64) ([]*domain.Team, error)

	// AddMember links a user to a team; ErrAlreadyMember if linked
	AddMember(ctx context.Context, member *domain.TeamMember) error

	// RemoveMember unlinks a user from a team; ErrNotMember if not linked
	RemoveMember(ctx context.Context, teamID, userID int64) error

	// ListMembers returns the users linked to a team
	ListMembers(ctx context.Context, teamID int64) ([]*domain.User, error)
}

// CommentRepository defines the interface for comment persistence
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	FindByID(ctx context.Context, id int64) (*domain.Comment, error)

	// ListByTask retrieves the comments of a task, oldest first
	ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error)

	Delete(ctx context.Context, id int64) error
}

// AuditRepository is the append-only store of change history
type AuditRepository interface {
	// Append inserts one record and fills in its ID and Timestamp.
	// Existing records are never modified.
	Append(ctx context.Context, record *domain.AuditRecord) error

	// Query returns matching records newest first together with the
	// total number of matches ignoring limit and offset
	Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, int, error)
}

// Transactor runs fn in one unit of work. Nested calls join the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
