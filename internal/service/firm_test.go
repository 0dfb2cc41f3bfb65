package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/domain/user"
	"github.com/lexweave/depoflow/internal/middleware"
)

func TestProvision(t *testing.T) {
	store := newMockStore()
	svc := NewFirmService(store, nil)

	ctx := middleware.WithActor(context.Background(), middleware.Actor{UserID: "user-1"})
	f, err := svc.Provision(ctx, firm.CreateRequest{Name: "Harmon & Associates"}, "owner@harmon.law")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Credits != 0 {
		t.Fatalf("new firms start with zero credits, got %d", f.Credits)
	}
	if f.MaxMembers != firm.DefaultMaxMembers {
		t.Fatalf("expected default member cap, got %d", f.MaxMembers)
	}
	if f.Settings.MaxUploadSize != firm.DefaultMaxUploadSize {
		t.Fatalf("expected default upload ceiling, got %d", f.Settings.MaxUploadSize)
	}
	if got := store.auditActions(); len(got) != 1 || got[0] != event.ActionFirmCreated {
		t.Fatalf("expected one firm_created audit entry, got %v", got)
	}
}

func TestProvision_MasterAllowList(t *testing.T) {
	store := newMockStore()
	svc := NewFirmService(store, []string{"Admin@LexWeave.com"})

	ctx := middleware.WithActor(context.Background(), middleware.Actor{UserID: "user-1"})
	f, err := svc.Provision(ctx, firm.CreateRequest{Name: "LexWeave Internal"}, "admin@lexweave.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Unlimited() {
		t.Fatalf("allow-listed owner must get the unlimited sentinel, got %d", f.Credits)
	}
	if f.MaxMembers != firm.MasterMaxMembers {
		t.Fatalf("expected master member cap, got %d", f.MaxMembers)
	}
}

func TestProvision_AlreadyInFirm(t *testing.T) {
	svc := NewFirmService(newMockStore(), nil)

	ctx := middleware.WithActor(context.Background(), middleware.Actor{UserID: "user-1", FirmID: "firm-a"})
	_, err := svc.Provision(ctx, firm.CreateRequest{Name: "Second Firm"}, "owner@x.law")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestProvision_EmptyName(t *testing.T) {
	svc := NewFirmService(newMockStore(), nil)

	ctx := middleware.WithActor(context.Background(), middleware.Actor{UserID: "user-1"})
	_, err := svc.Provision(ctx, firm.CreateRequest{Name: "  "}, "owner@x.law")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateSettings_AdminOnly(t *testing.T) {
	store := newMockStore()
	f := store.addFirm(&firm.Firm{Settings: firm.DefaultSettings()})
	svc := NewFirmService(store, nil)

	ctx := middleware.WithActor(context.Background(),
		middleware.Actor{UserID: "user-2", FirmID: f.ID, Role: user.RoleMember})
	size := int64(1024)
	_, err := svc.UpdateSettings(ctx, firm.UpdateSettingsRequest{MaxUploadSize: &size})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for non-admin, got %v", err)
	}
}

func TestUpdateSettings_Partial(t *testing.T) {
	store := newMockStore()
	f := store.addFirm(&firm.Firm{Settings: firm.DefaultSettings()})
	svc := NewFirmService(store, nil)

	ctx := middleware.WithActor(context.Background(),
		middleware.Actor{UserID: "user-1", FirmID: f.ID, Role: user.RoleAdmin})
	days := 30
	got, err := svc.UpdateSettings(ctx, firm.UpdateSettingsRequest{RetentionDays: &days})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Settings.RetentionDays != 30 {
		t.Fatalf("expected retention 30, got %d", got.Settings.RetentionDays)
	}
	// Untouched fields keep their values.
	if got.Settings.MaxUploadSize != firm.DefaultMaxUploadSize {
		t.Fatalf("upload ceiling changed unexpectedly to %d", got.Settings.MaxUploadSize)
	}
}

func TestUpdateSettings_RejectsNonPositive(t *testing.T) {
	store := newMockStore()
	f := store.addFirm(&firm.Firm{Settings: firm.DefaultSettings()})
	svc := NewFirmService(store, nil)

	ctx := middleware.WithActor(context.Background(),
		middleware.Actor{UserID: "user-1", FirmID: f.ID, Role: user.RoleAdmin})
	size := int64(0)
	if _, err := svc.UpdateSettings(ctx, firm.UpdateSettingsRequest{MaxUploadSize: &size}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
