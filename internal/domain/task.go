package domain

import (
	"strings"
	"time"
)

// TaskStatus represents the workflow state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pendiente"
	TaskStatusInProgress TaskStatus = "en progreso"
	TaskStatusDone       TaskStatus = "completada"
	TaskStatusCancelled  TaskStatus = "cancelada"
)

// Valid reports whether s is one of the known statuses
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "baja"
	TaskPriorityMedium TaskPriority = "media"
	TaskPriorityHigh   TaskPriority = "alta"
)

// Valid reports whether p is one of the known priorities
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work owned by a user, optionally assigned to another
// user and scoped to a team.
type Task struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	Deadline     *time.Time   `json:"deadline,omitempty"`
	UserID       int64        `json:"userId"`
	AssignedToID *int64       `json:"assignedToId"`
	TeamID       *int64       `json:"teamId"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

const minTitleLength = 3

// NewTask creates a pending, medium priority task owned by userID
func NewTask(title, description string, userID int64) (*Task, error) {
	title = strings.TrimSpace(title)
	if len(title) < minTitleLength {
		return nil, ErrInvalidTitle
	}
	now := time.Now().UTC()
	return &Task{
		Title:       title,
		Description: description,
		Status:      TaskStatusPending,
		Priority:    TaskPriorityMedium,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetTitle renames the task
func (t *Task) SetTitle(title string) error {
	title = strings.TrimSpace(title)
	if len(title) < minTitleLength {
		return ErrInvalidTitle
	}
	t.Title = title
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetStatus moves the task to a new status
func (t *Task) SetStatus(status TaskStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetPriority changes the priority of the task
func (t *Task) SetPriority(priority TaskPriority) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	t.Priority = priority
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetDeadline sets the deadline; it must lie in the future. The value is
// kept at the microsecond precision the database stores.
func (t *Task) SetDeadline(deadline *time.Time, now time.Time) error {
	if deadline == nil {
		t.Deadline = nil
		t.UpdatedAt = time.Now().UTC()
		return nil
	}
	if !deadline.After(now) {
		return ErrInvalidDeadline
	}
	d := deadline.UTC().Round(time.Microsecond)
	t.Deadline = &d
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Assign assigns the task to a user
func (t *Task) Assign(userID int64) error {
	if t.Status == TaskStatusDone || t.Status == TaskStatusCancelled {
		return ErrTaskClosed
	}
	t.AssignedToID = &userID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Unassign clears the assignee
func (t *Task) Unassign() {
	t.AssignedToID = nil
	t.UpdatedAt = time.Now().UTC()
}

// VisibleTo reports whether a member may see the task
func (t *Task) VisibleTo(userID int64) bool {
	return t.UserID == userID || (t.AssignedToID != nil && *t.AssignedToID == userID)
}

// TaskFilter represents filters for listing tasks
type TaskFilter struct {
	Status     *TaskStatus   `json:"status,omitempty"`
	Priority   *TaskPriority `json:"priority,omitempty"`
	UserID     *int64        `json:"userId,omitempty"`
	AssignedTo *int64        `json:"assignedToId,omitempty"`
	TeamID     *int64        `json:"teamId,omitempty"`
	// VisibleTo restricts results to tasks owned by or assigned to the user
	VisibleTo *int64 `json:"-"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}
