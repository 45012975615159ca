package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// Mock implementations backed by maps. They mimic the repository
// contracts closely enough for use case tests.

type mockUserRepository struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newMockUserRepository(users ...*domain.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[int64]*domain.User)}
	for _, u := range users {
		m.put(u)
	}
	return m
}

func (m *mockUserRepository) put(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	} else if u.ID > m.nextID {
		m.nextID = u.ID
	}
	cp := *u
	m.users[u.ID] = &cp
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := m.FindByEmail(ctx, user.Email); err == nil {
		return domain.ErrEmailTaken
	}
	m.put(user)
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if filter.Role == nil || u.Role == *filter.Role {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

type mockTaskRepository struct {
	mu      sync.Mutex
	tasks   map[int64]*domain.Task
	nextID  int64
	updates int
	deleted []int64
}

func newMockTaskRepository(tasks ...*domain.Task) *mockTaskRepository {
	m := &mockTaskRepository{tasks: make(map[int64]*domain.Task)}
	for _, t := range tasks {
		_ = m.Create(context.Background(), t)
	}
	return m
}

func (m *mockTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == 0 {
		m.nextID++
		task.ID = m.nextID
	} else if task.ID > m.nextID {
		m.nextID = task.ID
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrTaskNotFound
}

func (m *mockTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	cp := *task
	m.tasks[task.ID] = &cp
	m.updates++
	return nil
}

func (m *mockTaskRepository) matches(t *domain.Task, f domain.TaskFilter) bool {
	switch {
	case f.Status != nil && t.Status != *f.Status:
		return false
	case f.Priority != nil && t.Priority != *f.Priority:
		return false
	case f.UserID != nil && t.UserID != *f.UserID:
		return false
	case f.AssignedTo != nil && (t.AssignedToID == nil || *t.AssignedToID != *f.AssignedTo):
		return false
	case f.TeamID != nil && (t.TeamID == nil || *t.TeamID != *f.TeamID):
		return false
	case f.VisibleTo != nil && !t.VisibleTo(*f.VisibleTo):
		return false
	}
	return true
}

func (m *mockTaskRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, t := range m.tasks {
		if m.matches(t, filter) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockTaskRepository) Count(ctx context.Context, filter domain.TaskFilter) (int, error) {
	list, err := m.List(ctx, filter)
	return len(list), err
}

func (m *mockTaskRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockTeamRepository struct {
	mu      sync.Mutex
	teams   map[int64]*domain.Team
	members map[int64][]int64
	users   *mockUserRepository
	nextID  int64
}

func newMockTeamRepository(users *mockUserRepository) *mockTeamRepository {
	return &mockTeamRepository{
		teams:   make(map[int64]*domain.Team),
		members: make(map[int64][]int64),
		users:   users,
	}
}

func (m *mockTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	team.ID = m.nextID
	cp := *team
	m.teams[team.ID] = &cp
	return nil
}

func (m *mockTeamRepository) FindByID(ctx context.Context, id int64) (*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrTeamNotFound
}

func (m *mockTeamRepository) Update(ctx context.Context, team *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[team.ID]; !ok {
		return domain.ErrTeamNotFound
	}
	cp := *team
	m.teams[team.ID] = &cp
	return nil
}

func (m *mockTeamRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return domain.ErrTeamNotFound
	}
	delete(m.teams, id)
	delete(m.members, id)
	return nil
}

func (m *mockTeamRepository) ListForUser(ctx context.Context, userID int64) ([]*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Team
	for id, t := range m.teams {
		if t.OwnerID == userID || containsID(m.members[id], userID) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockTeamRepository) AddMember(ctx context.Context, member *domain.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if containsID(m.members[member.TeamID], member.UserID) {
		return domain.ErrAlreadyMember
	}
	m.members[member.TeamID] = append(m.members[member.TeamID], member.UserID)
	member.ID = int64(len(m.members[member.TeamID]))
	return nil
}

func (m *mockTeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.members[teamID]
	for i, id := range ids {
		if id == userID {
			m.members[teamID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotMember
}

func (m *mockTeamRepository) ListMembers(ctx context.Context, teamID int64) ([]*domain.User, error) {
	m.mu.Lock()
	ids := append([]int64(nil), m.members[teamID]...)
	m.mu.Unlock()

	var out []*domain.User
	for _, id := range ids {
		u, err := m.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type mockCommentRepository struct {
	mu       sync.Mutex
	comments map[int64]*domain.Comment
	nextID   int64
}

func newMockCommentRepository() *mockCommentRepository {
	return &mockCommentRepository{comments: make(map[int64]*domain.Comment)}
}

func (m *mockCommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *mockCommentRepository) FindByID(ctx context.Context, id int64) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCommentNotFound
}

func (m *mockCommentRepository) ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Comment
	for _, c := range m.comments {
		if c.TaskID == taskID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCommentRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return domain.ErrCommentNotFound
	}
	delete(m.comments, id)
	return nil
}

// mockTransactor runs fn inline and counts units of work
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type recordedAction struct {
	EntityType string
	EntityID   int64
	Action     domain.AuditAction
	Details    map[string]interface{}
}

type mockRecorder struct {
	mu      sync.Mutex
	actions []recordedAction
}

func (m *mockRecorder) Record(ctx context.Context, entityType string, entityID int64, action domain.AuditAction, details map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, recordedAction{entityType, entityID, action, details})
}

// fakeHasher "hashes" by prefixing so tests stay fast
type fakeHasher struct{}

func (fakeHasher) HashPassword(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) VerifyPassword(password, hash string) (bool, error) {
	return hash == "hashed:"+password, nil
}

type fakeTokens struct{}

func (fakeTokens) GenerateAccessToken(claims ports.TokenClaims) (string, error) {
	return "token-for-" + string(claims.Role), nil
}
func (fakeTokens) ValidateAccessToken(token string) (*ports.TokenClaims, error) {
	return nil, domain.ErrInvalidCredentials
}

// countingLimiter blocks a key after max failures
type countingLimiter struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
}

func newCountingLimiter(max int) *countingLimiter {
	return &countingLimiter{max: max, failures: make(map[string]int)}
}

func (l *countingLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[key] < l.max, nil
}

func (l *countingLimiter) RecordFailure(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key]++
	return nil
}

func (l *countingLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	return nil
}

var (
	ownerCaller  = ports.TokenClaims{UserID: 1, Role: domain.RoleOwner}
	memberCaller = ports.TokenClaims{UserID: 2, Role: domain.RoleMember}
	otherCaller  = ports.TokenClaims{UserID: 3, Role: domain.RoleMember}
)

func seedUsers() *mockUserRepository {
	return newMockUserRepository(
		&domain.User{ID: 1, Name: "Olga", Email: "olga@example.com", PasswordHash: "hashed:secret1", Role: domain.RoleOwner},
		&domain.User{ID: 2, Name: "Mika", Email: "mika@example.com", PasswordHash: "hashed:secret2", Role: domain.RoleMember},
		&domain.User{ID: 3, Name: "Ravi", Email: "ravi@example.com", PasswordHash: "hashed:secret3", Role: domain.RoleMember},
	)
}
