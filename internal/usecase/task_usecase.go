package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// CreateTaskRequest represents the request to create a task
type CreateTaskRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Priority     domain.TaskPriority `json:"priority,omitempty"`
	Deadline     *time.Time          `json:"deadline,omitempty"`
	AssignedToID *int64              `json:"assignedToId,omitempty"`
	TeamID       *int64              `json:"teamId,omitempty"`
}

// UpdateTaskRequest carries the fields to change; nil leaves a field as is
type UpdateTaskRequest struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *domain.TaskStatus   `json:"status,omitempty"`
	Priority    *domain.TaskPriority `json:"priority,omitempty"`
	Deadline    *time.Time           `json:"deadline,omitempty"`
}

// TaskUseCase handles task-related business logic
type TaskUseCase struct {
	tasks ports.TaskRepository
	users ports.UserRepository
	teams ports.TeamRepository
	now   func() time.Time
}

// NewTaskUseCase creates a new task use case
func NewTaskUseCase(tasks ports.TaskRepository, users ports.UserRepository, teams ports.TeamRepository) *TaskUseCase {
	return &TaskUseCase{
		tasks: tasks,
		users: users,
		teams: teams,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateTask creates a task owned by the caller. Owners may assign it to
// anyone; members only to themselves.
func (uc *TaskUseCase) CreateTask(ctx context.Context, caller ports.TokenClaims, req CreateTaskRequest) (*domain.Task, error) {
	task, err := domain.NewTask(req.Title, req.Description, caller.UserID)
	if err != nil {
		return nil, err
	}

	if req.Priority != "" {
		if err := task.SetPriority(req.Priority); err != nil {
			return nil, err
		}
	}
	if err := task.SetDeadline(req.Deadline, uc.now()); err != nil {
		return nil, err
	}

	if req.AssignedToID != nil {
		if err := uc.checkAssignee(ctx, caller, *req.AssignedToID); err != nil {
			return nil, err
		}
		if err := task.Assign(*req.AssignedToID); err != nil {
			return nil, err
		}
	}

	if req.TeamID != nil {
		if _, err := uc.teams.FindByID(ctx, *req.TeamID); err != nil {
			return nil, err
		}
		task.TeamID = req.TeamID
	}

	if err := uc.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// GetTask retrieves a task visible to the caller
func (uc *TaskUseCase) GetTask(ctx context.Context, caller ports.TokenClaims, id int64) (*domain.Task, error) {
	task, err := uc.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, task) {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

// ListTasks retrieves tasks visible to the caller. Owners see every task,
// members only the ones they created or were assigned.
func (uc *TaskUseCase) ListTasks(ctx context.Context, caller ports.TokenClaims, filter domain.TaskFilter) ([]*domain.Task, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if caller.Role != domain.RoleOwner {
		filter.VisibleTo = &caller.UserID
	}

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	count, err := uc.tasks.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return tasks, count, nil
}

// UpdateTask changes task fields. The creator, the assignee and owners
// may edit a task.
func (uc *TaskUseCase) UpdateTask(ctx context.Context, caller ports.TokenClaims, id int64, req UpdateTaskRequest) (*domain.Task, error) {
	task, err := uc.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, task) {
		return nil, domain.ErrForbidden
	}

	if req.Title != nil {
		if err := task.SetTitle(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		if err := task.SetStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.Priority != nil {
		if err := task.SetPriority(*req.Priority); err != nil {
			return nil, err
		}
	}
	if req.Deadline != nil {
		if err := task.SetDeadline(req.Deadline, uc.now()); err != nil {
			return nil, err
		}
	}
	task.UpdatedAt = uc.now()

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// AssignTask sets or, with a nil assignee, clears the assignee. Only the
// creator or an owner may reassign.
func (uc *TaskUseCase) AssignTask(ctx context.Context, caller ports.TokenClaims, id int64, assigneeID *int64) (*domain.Task, error) {
	task, err := uc.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(caller, task) {
		return nil, domain.ErrForbidden
	}

	if assigneeID == nil {
		task.Unassign()
	} else {
		if err := uc.checkAssignee(ctx, caller, *assigneeID); err != nil {
			return nil, err
		}
		if err := task.Assign(*assigneeID); err != nil {
			return nil, err
		}
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task. Only the creator or an owner may delete.
func (uc *TaskUseCase) DeleteTask(ctx context.Context, caller ports.TokenClaims, id int64) error {
	task, err := uc.tasks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(caller, task) {
		return domain.ErrForbidden
	}
	return uc.tasks.Delete(ctx, id)
}

func (uc *TaskUseCase) checkAssignee(ctx context.Context, caller ports.TokenClaims, assigneeID int64) error {
	if caller.Role != domain.RoleOwner && assigneeID != caller.UserID {
		return domain.ErrForbidden
	}
	if _, err := uc.users.FindByID(ctx, assigneeID); err != nil {
		return err
	}
	return nil
}

func canView(caller ports.TokenClaims, task *domain.Task) bool {
	return caller.Role == domain.RoleOwner || task.VisibleTo(caller.UserID)
}

func canManage(caller ports.TokenClaims, task *domain.Task) bool {
	return caller.Role == domain.RoleOwner || task.UserID == caller.UserID
}
