package usecase

import (
	"context"
	"fmt"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// HistoryUseCase serves the change history
type HistoryUseCase struct {
	store        ports.AuditRepository
	defaultLimit int
	maxLimit     int
}

// NewHistoryUseCase creates a history use case with the configured page
// sizes; the store still enforces domain.MaxAuditLimit
func NewHistoryUseCase(store ports.AuditRepository, defaultLimit, maxLimit int) *HistoryUseCase {
	return &HistoryUseCase{store: store, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Query returns one page of matching records, newest first, with the
// total number of matches
func (uc *HistoryUseCase) Query(ctx context.Context, filter domain.AuditFilter) (*domain.AuditPage, error) {
	if filter.Action != nil && !filter.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidAuditFilter, *filter.Action)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from is after to", domain.ErrInvalidAuditFilter)
	}

	filter = filter.Normalize(uc.defaultLimit, uc.maxLimit)

	items, total, err := uc.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	if items == nil {
		items = []*domain.AuditRecord{}
	}

	return &domain.AuditPage{Total: total, Items: items}, nil
}
