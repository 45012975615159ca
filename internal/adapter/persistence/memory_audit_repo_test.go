package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAudit(t *testing.T, repo *MemoryAuditRepository, records ...domain.AuditRecord) {
	t.Helper()
	for i := range records {
		require.NoError(t, repo.Append(context.Background(), &records[i]))
	}
}

func TestMemoryAuditRepository_AppendAssignsIdentity(t *testing.T) {
	repo := NewMemoryAuditRepository()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	rec := &domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 7, Action: domain.AuditActionCreate, ActorID: 1}
	require.NoError(t, repo.Append(context.Background(), rec))

	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, fixed, rec.Timestamp)

	// Mutating the caller's copy never reaches the store
	rec.ActorID = 99
	items, _, err := repo.Query(context.Background(), domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ActorID)
}

func TestMemoryAuditRepository_QueryNewestFirst(t *testing.T) {
	repo := NewMemoryAuditRepository()
	seedAudit(t, repo,
		domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.AuditActionCreate, ActorID: 1},
		domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.AuditActionUpdate, ActorID: 2},
		domain.AuditRecord{EntityType: domain.EntityUser, EntityID: 5, Action: domain.AuditActionLogin, ActorID: 5},
		domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.AuditActionDelete, ActorID: 1},
	)

	entity := domain.EntityTask
	id := int64(1)
	items, total, err := repo.Query(context.Background(), domain.AuditFilter{EntityType: &entity, EntityID: &id})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, domain.AuditActionDelete, items[0].Action)
	assert.Equal(t, domain.AuditActionUpdate, items[1].Action)
	assert.Equal(t, domain.AuditActionCreate, items[2].Action)
}

func TestMemoryAuditRepository_QueryFilters(t *testing.T) {
	repo := NewMemoryAuditRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}
	seedAudit(t, repo,
		domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.AuditActionCreate, ActorID: 1},
		domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 2, Action: domain.AuditActionCreate, ActorID: 2},
		domain.AuditRecord{EntityType: domain.EntityComment, EntityID: 1, Action: domain.AuditActionCreate, ActorID: 2},
		domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.AuditActionUpdate, ActorID: 2},
	)

	actor := int64(2)
	update := domain.AuditActionUpdate
	from := base.Add(2 * time.Hour)
	to := base.Add(3 * time.Hour)

	tests := []struct {
		name    string
		filter  domain.AuditFilter
		wantIDs []int64
	}{
		{name: "no filter", filter: domain.AuditFilter{}, wantIDs: []int64{4, 3, 2, 1}},
		{name: "actor", filter: domain.AuditFilter{ActorID: &actor}, wantIDs: []int64{4, 3, 2}},
		{name: "action", filter: domain.AuditFilter{Action: &update}, wantIDs: []int64{4}},
		{name: "inclusive range", filter: domain.AuditFilter{From: &from, To: &to}, wantIDs: []int64{3, 2}},
		{name: "paged", filter: domain.AuditFilter{Limit: 2, Offset: 1}, wantIDs: []int64{3, 2}},
		{name: "offset past end", filter: domain.AuditFilter{Offset: 10}, wantIDs: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, _, err := repo.Query(context.Background(), tt.filter)
			require.NoError(t, err)
			ids := make([]int64, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryAuditRepository_LimitCapped(t *testing.T) {
	repo := NewMemoryAuditRepository()
	for i := 0; i < 130; i++ {
		seedAudit(t, repo, domain.AuditRecord{EntityType: domain.EntityTask, EntityID: int64(i + 1), Action: domain.AuditActionCreate, ActorID: 1})
	}

	items, total, err := repo.Query(context.Background(), domain.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 130, total)
	assert.Len(t, items, domain.DefaultAuditLimit)

	items, total, err = repo.Query(context.Background(), domain.AuditFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 130, total)
	assert.Len(t, items, domain.MaxAuditLimit)
}

func TestMemoryAuditRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryAuditRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Append(ctx, &domain.AuditRecord{EntityType: domain.EntityTask, EntityID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
