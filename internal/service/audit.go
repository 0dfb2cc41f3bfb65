package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/port/database"
)

// AuditService serves the compliance surface over the append-only trail.
type AuditService struct {
	store database.Store
}

// NewAuditService creates a new AuditService.
func NewAuditService(store database.Store) *AuditService {
	return &AuditService{store: store}
}

// Query returns one cursor-paginated page of the firm's audit entries.
func (s *AuditService) Query(ctx context.Context, filter *event.AuditFilter, cursor string, limit int) (*event.AuditPage, error) {
	if filter == nil {
		filter = &event.AuditFilter{}
	}
	return s.store.LoadAudit(ctx, filter, cursor, limit)
}

// exportPageSize is the page size used when walking the trail for export.
const exportPageSize = 500

// Export streams every matching audit entry to w as a JSON array, walking
// the cursor pages so the full trail never sits in memory at once.
func (s *AuditService) Export(ctx context.Context, filter *event.AuditFilter, w io.Writer) error {
	if filter == nil {
		filter = &event.AuditFilter{}
	}

	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	cursor := ""
	first := true
	for {
		page, err := s.store.LoadAudit(ctx, filter, cursor, exportPageSize)
		if err != nil {
			return fmt.Errorf("export audit page: %w", err)
		}
		for i := range page.Entries {
			if !first {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			first = false
			if err := enc.Encode(page.Entries[i]); err != nil {
				return fmt.Errorf("encode audit entry: %w", err)
			}
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	_, err := io.WriteString(w, "]")
	return err
}
