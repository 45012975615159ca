package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// MemoryAuditRepository is an in-process AuditRepository used by tests
// and by the server when no database is configured for history
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	records []*domain.AuditRecord
	nextID  int64
	now     func() time.Time
}

// NewMemoryAuditRepository creates an empty in-memory audit repository
func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{now: func() time.Time { return time.Now().UTC() }}
}

var _ ports.AuditRepository = (*MemoryAuditRepository)(nil)

// Append stores a copy of record and fills in its ID and Timestamp
func (r *MemoryAuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	record.Timestamp = r.now()

	stored := *record
	r.records = append(r.records, &stored)
	return nil
}

// Query returns matching records newest first plus the total match count
func (r *MemoryAuditRepository) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	filter = filter.Normalize(domain.DefaultAuditLimit, domain.MaxAuditLimit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Records are appended in id order, so walking backwards is newest first
	var matched []*domain.AuditRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if filter.Matches(r.records[i]) {
			matched = append(matched, r.records[i])
		}
	}

	total := len(matched)
	if filter.Offset >= total {
		return []*domain.AuditRecord{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)

	page := make([]*domain.AuditRecord, 0, end-filter.Offset)
	for _, rec := range matched[filter.Offset:end] {
		cp := *rec
		page = append(page, &cp)
	}
	return page, total, nil
}
