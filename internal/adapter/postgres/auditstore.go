package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lexweave/depoflow/internal/domain/event"
)

// AppendAudit inserts an audit trail entry for the caller's firm. The table
// is append-only; nothing in the codebase updates or deletes its rows.
func (s *Store) AppendAudit(ctx context.Context, entry *event.AuditEntry) error {
	firmID := entry.FirmID
	if firmID == "" {
		firmID = firmFromCtx(ctx)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (firm_id, user_id, action, resource_type, resource_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		firmID, nullIfEmpty(entry.UserID), entry.Action, entry.ResourceType, entry.ResourceID, entry.Details)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// LoadAudit returns a cursor-paginated page of the caller firm's audit
// entries, newest first. The cursor is the sequence ID of the last entry on
// the previous page; rows written after the first page was read never shift
// earlier pages.
func (s *Store) LoadAudit(ctx context.Context, filter *event.AuditFilter, cursor string, limit int) (*event.AuditPage, error) {
	if limit <= 0 {
		limit = 50
	}

	args := []any{firmFromCtx(ctx)}
	conditions := []string{"firm_id = $1"}
	argIdx := 2

	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, filter.Action)
		argIdx++
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", argIdx))
		args = append(args, filter.ResourceType)
		argIdx++
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, fmt.Sprintf("resource_id = $%d", argIdx))
		args = append(args, filter.ResourceID)
		argIdx++
	}
	if filter.After != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argIdx))
		args = append(args, *filter.After)
		argIdx++
	}
	if filter.Before != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *filter.Before)
		argIdx++
	}
	if cursor != "" {
		last, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse audit cursor %q: %w", cursor, err)
		}
		conditions = append(conditions, fmt.Sprintf("id < $%d", argIdx))
		args = append(args, last)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM audit_log WHERE %s`, where)
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	// Fetch limit+1 to detect hasMore.
	fetchSQL := fmt.Sprintf(
		`SELECT id, firm_id, COALESCE(user_id::text, ''), action, resource_type, resource_id, details, created_at
		 FROM audit_log WHERE %s ORDER BY id DESC LIMIT $%d`, where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, fetchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}
	defer rows.Close()

	var entries []event.AuditEntry
	for rows.Next() {
		var e event.AuditEntry
		var id int64
		if err := rows.Scan(&id, &e.FirmID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = strconv.FormatInt(id, 10)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	var nextCursor string
	if hasMore && len(entries) > 0 {
		nextCursor = entries[len(entries)-1].ID
	}

	return &event.AuditPage{
		Entries: orEmpty(entries),
		Cursor:  nextCursor,
		HasMore: hasMore,
		Total:   total,
	}, nil
}
