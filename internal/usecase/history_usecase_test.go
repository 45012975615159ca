package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixora/tasktrail/internal/adapter/persistence"
	"github.com/fixora/tasktrail/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHistory(t *testing.T, n int) *persistence.MemoryAuditRepository {
	t.Helper()
	store := persistence.NewMemoryAuditRepository()
	for i := 1; i <= n; i++ {
		require.NoError(t, store.Append(context.Background(), &domain.AuditRecord{
			EntityType: domain.EntityTask,
			EntityID:   int64(i),
			Action:     domain.AuditActionCreate,
			ActorID:    int64(i%2 + 1),
		}))
	}
	return store
}

func TestHistoryUseCase_Query(t *testing.T) {
	uc := NewHistoryUseCase(seedHistory(t, 120), domain.DefaultAuditLimit, domain.MaxAuditLimit)
	ctx := context.Background()

	page, err := uc.Query(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 120, page.Total)
	require.Len(t, page.Items, domain.DefaultAuditLimit)
	assert.Equal(t, int64(120), page.Items[0].EntityID)

	page, err = uc.Query(ctx, domain.AuditFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, domain.MaxAuditLimit)

	actor := int64(1)
	page, err = uc.Query(ctx, domain.AuditFilter{ActorID: &actor, Limit: 10, Offset: 55})
	require.NoError(t, err)
	assert.Equal(t, 60, page.Total)
	assert.Len(t, page.Items, 5)
}

func TestHistoryUseCase_EmptyPage(t *testing.T) {
	uc := NewHistoryUseCase(seedHistory(t, 0), domain.DefaultAuditLimit, domain.MaxAuditLimit)

	page, err := uc.Query(context.Background(), domain.AuditFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestHistoryUseCase_InvalidFilter(t *testing.T) {
	uc := NewHistoryUseCase(seedHistory(t, 1), domain.DefaultAuditLimit, domain.MaxAuditLimit)
	now := time.Now()
	earlier := now.Add(-time.Hour)
	bogus := domain.AuditAction("EXPLODE")

	tests := []struct {
		name   string
		filter domain.AuditFilter
	}{
		{"unknown action", domain.AuditFilter{Action: &bogus}},
		{"inverted range", domain.AuditFilter{From: &now, To: &earlier}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Query(context.Background(), tt.filter)
			assert.True(t, errors.Is(err, domain.ErrInvalidAuditFilter))
		})
	}
}
