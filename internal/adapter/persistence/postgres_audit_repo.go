package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/ports"
)

// PostgresAuditRepository implements AuditRepository using PostgreSQL.
// It always writes through the pool so a record never joins, or waits
// on, the business transaction that produced it.
type PostgresAuditRepository struct {
	db *sql.DB
}

// NewPostgresAuditRepository creates a new PostgreSQL audit repository
func NewPostgresAuditRepository(db *sql.DB) ports.AuditRepository {
	return &PostgresAuditRepository{db: db}
}

// Append inserts a record and fills in its ID and Timestamp
func (r *PostgresAuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	details, err := json.Marshal(record.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_records (entity_type, entity_id, action, actor_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		record.EntityType,
		record.EntityID,
		string(record.Action),
		record.ActorID,
		details,
	).Scan(&record.ID, &record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	record.Timestamp = record.Timestamp.UTC()

	return nil
}

// Query returns matching records newest first plus the total match count
func (r *PostgresAuditRepository) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, int, error) {
	filter = filter.Normalize(domain.DefaultAuditLimit, domain.MaxAuditLimit)
	where, args := buildAuditWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	argIndex := len(args) + 1
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, created_at, details
		FROM audit_records` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.AuditRecord, 0, filter.Limit)
	for rows.Next() {
		var rec domain.AuditRecord
		var details []byte
		if err := rows.Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &rec.Action, &rec.ActorID, &rec.Timestamp, &details); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		if err := decodeDetails(details, &rec.Details); err != nil {
			return nil, 0, fmt.Errorf("failed to decode audit details %d: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit records: %w", err)
	}

	return records, total, nil
}

func buildAuditWhere(filter domain.AuditFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.EntityType != nil {
		add("entity_type = $%d", *filter.EntityType)
	}
	if filter.EntityID != nil {
		add("entity_id = $%d", *filter.EntityID)
	}
	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.Action != nil {
		add("action = $%d", string(*filter.Action))
	}
	if filter.From != nil {
		add("created_at >= $%d", filter.From.UTC())
	}
	if filter.To != nil {
		add("created_at <= $%d", filter.To.UTC())
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// decodeDetails keeps numbers as json.Number so 64-bit ids survive
func decodeDetails(raw []byte, out *domain.AuditDetails) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
