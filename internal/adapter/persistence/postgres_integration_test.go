//go:build integration

package persistence_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/fixora/tasktrail/internal/adapter/persistence"
	"github.com/fixora/tasktrail/internal/audit"
	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/ports"
	"github.com/fixora/tasktrail/internal/requestctx"
	"github.com/fixora/tasktrail/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/lib/pq"
)

type stack struct {
	audit    ports.AuditRepository
	tx       *persistence.TxManager
	users    ports.UserRepository
	tasks    ports.TaskRepository
	teams    ports.TeamRepository
	comments ports.CommentRepository
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tasktrail"),
		tcpostgres.WithUsername("tasktrail"),
		tcpostgres.WithPassword("tasktrail"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.New(db, logger.Nop()).Run(ctx, migrations.Up))

	store := persistence.NewPostgresAuditRepository(db)
	interceptor := audit.NewInterceptor(audit.NewDomainSchema(), store, logger.Nop(),
		audit.WithClassifier(domain.EntityTask, audit.AssignmentClassifier("assignedToId")),
	)
	require.NoError(t, interceptor.Verify(persistence.TrackedEntities...))

	tx := persistence.NewTxManager(db, interceptor)
	return &stack{
		audit:    store,
		tx:       tx,
		users:    persistence.NewPostgresUserRepository(tx),
		tasks:    persistence.NewPostgresTaskRepository(tx),
		teams:    persistence.NewPostgresTeamRepository(tx),
		comments: persistence.NewPostgresCommentRepository(tx),
	}
}

func (s *stack) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser("Test "+email, email, "hash")
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *stack) history(t *testing.T, entity string, id int64) []*domain.AuditRecord {
	t.Helper()
	items, total, err := s.audit.Query(context.Background(), domain.AuditFilter{EntityType: &entity, EntityID: &id})
	require.NoError(t, err)
	require.Len(t, items, total)
	return items
}

func asActor(id int64) context.Context {
	ctx := requestctx.BeginScope(context.Background())
	requestctx.SetActor(ctx, id)
	return ctx
}

func TestPostgres_TaskLifecycleHistory(t *testing.T) {
	s := newStack(t)
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")

	task := &domain.Task{
		Title:     "Write report",
		Status:    domain.TaskStatusPending,
		Priority:  domain.TaskPriorityMedium,
		UserID:    alice.ID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.tasks.Create(asActor(alice.ID), task))
	require.NotZero(t, task.ID)

	task.Status = domain.TaskStatusDone
	task.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.tasks.Update(asActor(bob.ID), task))

	require.NoError(t, s.tasks.Delete(asActor(alice.ID), task.ID))

	records := s.history(t, domain.EntityTask, task.ID)
	require.Len(t, records, 3)

	del, upd, create := records[0], records[1], records[2]
	assert.Equal(t, domain.AuditActionCreate, create.Action)
	assert.Equal(t, alice.ID, create.ActorID)
	assert.Equal(t, "Write report", create.Details.New["title"])

	assert.Equal(t, domain.AuditActionUpdate, upd.Action)
	assert.Equal(t, bob.ID, upd.ActorID)
	assert.Equal(t, domain.Changes{
		"status": {Before: "pendiente", After: "completada"},
	}, upd.Details.Changes)

	assert.Equal(t, domain.AuditActionDelete, del.Action)
	assert.Equal(t, alice.ID, del.ActorID)
	assert.Equal(t, "completada", del.Details.Previous["status"])

	assert.False(t, create.Timestamp.After(upd.Timestamp))
	assert.False(t, upd.Timestamp.After(del.Timestamp))
}

func TestPostgres_RollbackLeavesNoHistory(t *testing.T) {
	s := newStack(t)
	alice := s.user(t, "alice@example.com")
	ctx := asActor(alice.ID)

	var created *domain.Task
	boom := errors.New("boom")
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created = &domain.Task{Title: "Temporary", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityLow, UserID: alice.ID}
		if err := s.tasks.Create(ctx, created); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.tasks.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Empty(t, s.history(t, domain.EntityTask, created.ID))
}

func TestPostgres_NoOpUpdateAndAssignment(t *testing.T) {
	s := newStack(t)
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")
	ctx := asActor(alice.ID)

	task := &domain.Task{Title: "Plan sprint", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityHigh, UserID: alice.ID}
	require.NoError(t, s.tasks.Create(ctx, task))

	// Only updatedAt moves, which is ignored
	task.UpdatedAt = time.Now().UTC().Add(time.Minute)
	require.NoError(t, s.tasks.Update(ctx, task))

	task.AssignedToID = &bob.ID
	require.NoError(t, s.tasks.Update(ctx, task))

	records := s.history(t, domain.EntityTask, task.ID)
	require.Len(t, records, 2)
	assert.Equal(t, domain.AuditActionAssign, records[0].Action)
	assert.Equal(t, domain.AuditActionCreate, records[1].Action)
}

func TestPostgres_TeamMembershipHistory(t *testing.T) {
	s := newStack(t)
	owner := s.user(t, "owner@example.com")
	member := s.user(t, "member@example.com")
	ctx := asActor(owner.ID)

	team, err := domain.NewTeam("Platform", "", owner.ID)
	require.NoError(t, err)
	require.NoError(t, s.teams.Create(ctx, team))

	link := &domain.TeamMember{TeamID: team.ID, UserID: member.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.teams.AddMember(ctx, link))
	assert.ErrorIs(t, s.teams.AddMember(ctx, &domain.TeamMember{TeamID: team.ID, UserID: member.ID}), domain.ErrAlreadyMember)

	members, err := s.teams.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)

	require.NoError(t, s.teams.Delete(ctx, team.ID))

	linkHistory := s.history(t, domain.EntityTeamMember, link.ID)
	require.Len(t, linkHistory, 2)
	assert.Equal(t, domain.AuditActionDelete, linkHistory[0].Action)
	assert.EqualValues(t, member.ID, mustInt(t, linkHistory[0].Details.Previous["userId"]))

	teamHistory := s.history(t, domain.EntityTeam, team.ID)
	require.Len(t, teamHistory, 2)
	assert.Equal(t, domain.AuditActionDelete, teamHistory[0].Action)
}

func TestPostgres_QueryPagingAndFilters(t *testing.T) {
	s := newStack(t)
	alice := s.user(t, "alice@example.com")
	ctx := asActor(alice.ID)

	task := &domain.Task{Title: "Commented", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityMedium, UserID: alice.ID}
	require.NoError(t, s.tasks.Create(ctx, task))
	for i := 0; i < 5; i++ {
		c, err := domain.NewComment(task.ID, alice.ID, "note")
		require.NoError(t, err)
		require.NoError(t, s.comments.Create(ctx, c))
	}

	entity := domain.EntityComment
	items, total, err := s.audit.Query(context.Background(), domain.AuditFilter{EntityType: &entity, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Greater(t, items[0].ID, items[1].ID)

	actor := alice.ID
	create := domain.AuditActionCreate
	_, total, err = s.audit.Query(context.Background(), domain.AuditFilter{ActorID: &actor, Action: &create})
	require.NoError(t, err)
	// one task plus five comments; alice's own registration had no actor
	assert.Equal(t, 6, total)
}

func mustInt(t *testing.T, v interface{}) int64 {
	t.Helper()
	switch n := v.(type) {
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		require.NoError(t, err)
		return i
	case int64:
		return n
	}
	t.Fatalf("unexpected numeric type %T", v)
	return 0
}
