package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// UpdateUserRequest carries the fields to change; nil leaves a field as is
type UpdateUserRequest struct {
	Name     *string      `json:"name,omitempty"`
	Email    *string      `json:"email,omitempty"`
	Password *string      `json:"password,omitempty"`
	Role     *domain.Role `json:"role,omitempty"`
}

// UserUseCase handles account management
type UserUseCase struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	tx     ports.Transactor
	hasher ports.PasswordHasher
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(users ports.UserRepository, tasks ports.TaskRepository, tx ports.Transactor, hasher ports.PasswordHasher) *UserUseCase {
	return &UserUseCase{users: users, tasks: tasks, tx: tx, hasher: hasher}
}

// ListUsers returns accounts ordered by name
func (uc *UserUseCase) ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	users, err := uc.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetUser retrieves an account by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return uc.users.FindByID(ctx, id)
}

// UpdateUser changes an account. Users may edit themselves; only owners
// may edit others or change roles.
func (uc *UserUseCase) UpdateUser(ctx context.Context, caller ports.TokenClaims, id int64, req UpdateUserRequest) (*domain.User, error) {
	if caller.UserID != id && caller.Role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}
	if req.Role != nil && caller.Role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}

	user, err := uc.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if req.Password != nil {
		if err := domain.ValidatePassword(*req.Password); err != nil {
			return nil, err
		}
		if user.PasswordHash, err = uc.hasher.HashPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, domain.ErrInvalidRole
		}
		user.Role = *req.Role
	}
	user.UpdatedAt = time.Now().UTC()

	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account together with the tasks it owns. Tasks
// are deleted one by one so each removal is recorded.
func (uc *UserUseCase) DeleteUser(ctx context.Context, caller ports.TokenClaims, id int64) error {
	if caller.Role != domain.RoleOwner {
		return domain.ErrForbidden
	}

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.users.FindByID(ctx, id); err != nil {
			return err
		}

		owned, err := uc.tasks.List(ctx, domain.TaskFilter{UserID: &id})
		if err != nil {
			return fmt.Errorf("failed to list owned tasks: %w", err)
		}
		for _, t := range owned {
			if err := uc.tasks.Delete(ctx, t.ID); err != nil {
				return err
			}
		}

		return uc.users.Delete(ctx, id)
	})
}
