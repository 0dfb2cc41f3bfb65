package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/lexweave/depoflow/internal/domain/event"
)

func TestAuditQuery(t *testing.T) {
	store := newMockStore()
	store.audits = []event.AuditEntry{
		{Action: event.ActionDocumentUploaded},
		{Action: event.ActionJobCompleted},
	}
	svc := NewAuditService(store)

	page, err := svc.Query(context.Background(), nil, "", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Entries) != 2 || page.Total != 2 {
		t.Fatalf("expected both entries, got %+v", page)
	}
}

func TestAuditExport_WalksPages(t *testing.T) {
	store := newMockStore()
	store.loadAuditPages = []*event.AuditPage{
		{
			Entries: []event.AuditEntry{{ID: "3", Action: event.ActionJobCompleted}, {ID: "2", Action: event.ActionJobClaimed}},
			Cursor:  "2",
			HasMore: true,
		},
		{
			Entries: []event.AuditEntry{{ID: "1", Action: event.ActionDocumentUploaded}},
		},
	}
	svc := NewAuditService(store)

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []event.AuditEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("export is not a valid JSON array: %v\n%s", err, buf.String())
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 exported entries, got %d", len(entries))
	}
	if entries[0].ID != "3" || entries[2].ID != "1" {
		t.Fatalf("expected page order preserved, got %v", entries)
	}
}

func TestAuditExport_Empty(t *testing.T) {
	svc := NewAuditService(newMockStore())

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []event.AuditEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("empty export is not a valid JSON array: %v\n%s", err, buf.String())
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
