// Package service contains the business logic between the HTTP surface and
// the ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/domain/user"
	"github.com/lexweave/depoflow/internal/middleware"
	"github.com/lexweave/depoflow/internal/port/database"
)

// FirmService manages firm provisioning, settings, and membership.
type FirmService struct {
	store        database.Store
	masterEmails map[string]bool
}

// NewFirmService creates a new FirmService. masterEmails is the configured
// allow-list of owner emails that provision with unlimited credits.
func NewFirmService(store database.Store, masterEmails []string) *FirmService {
	allow := make(map[string]bool, len(masterEmails))
	for _, e := range masterEmails {
		allow[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &FirmService{store: store, masterEmails: allow}
}

// ResolveUser upserts the user record for an authenticated principal. It
// implements middleware.UserResolver.
func (s *FirmService) ResolveUser(ctx context.Context, subject, email, name string) (*user.User, error) {
	return s.store.UpsertUser(ctx, subject, email, name)
}

// Provision creates a firm for the calling user, who becomes its admin. The
// master allow-list is consulted exactly once, here: a master owner's firm
// gets the unlimited credit sentinel and widened quotas.
func (s *FirmService) Provision(ctx context.Context, req firm.CreateRequest, ownerEmail string) (*firm.Firm, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("firm name is required: %w", domain.ErrValidation)
	}

	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if actor.FirmID != "" {
		return nil, fmt.Errorf("user already belongs to a firm: %w", domain.ErrConflict)
	}

	credits := int64(0)
	maxMembers := firm.DefaultMaxMembers
	settings := firm.DefaultSettings()
	if s.masterEmails[strings.ToLower(ownerEmail)] {
		credits = firm.UnlimitedCredits
		maxMembers = firm.MasterMaxMembers
		settings = firm.MasterSettings()
	}

	f, err := s.store.CreateFirm(ctx, req.Name, actor.UserID, credits, maxMembers, settings)
	if err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]any{"name": f.Name, "credits": f.Credits})
	if err := s.store.AppendAudit(ctx, &event.AuditEntry{
		FirmID:       f.ID,
		UserID:       actor.UserID,
		Action:       event.ActionFirmCreated,
		ResourceType: "firm",
		ResourceID:   f.ID,
		Details:      details,
	}); err != nil {
		slog.Error("audit append failed", "action", event.ActionFirmCreated, "firm_id", f.ID, "error", err)
	}
	return f, nil
}

// Get returns the caller's firm.
func (s *FirmService) Get(ctx context.Context) (*firm.Firm, error) {
	return s.store.GetFirm(ctx, middleware.FirmIDFromContext(ctx))
}

// UpdateSettings applies a partial settings update. Admin only.
func (s *FirmService) UpdateSettings(ctx context.Context, req firm.UpdateSettingsRequest) (*firm.Firm, error) {
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok || actor.Role != user.RoleAdmin {
		return nil, fmt.Errorf("settings require the admin role: %w", domain.ErrValidation)
	}

	f, err := s.store.GetFirm(ctx, actor.FirmID)
	if err != nil {
		return nil, err
	}

	settings := f.Settings
	if req.AllowMemberInvites != nil {
		settings.AllowMemberInvites = *req.AllowMemberInvites
	}
	if req.MaxUploadSize != nil {
		if *req.MaxUploadSize <= 0 {
			return nil, fmt.Errorf("max upload size must be positive: %w", domain.ErrValidation)
		}
		settings.MaxUploadSize = *req.MaxUploadSize
	}
	if req.RetentionDays != nil {
		if *req.RetentionDays <= 0 {
			return nil, fmt.Errorf("retention days must be positive: %w", domain.ErrValidation)
		}
		settings.RetentionDays = *req.RetentionDays
	}

	if err := s.store.UpdateFirmSettings(ctx, f.ID, settings); err != nil {
		return nil, err
	}
	f.Settings = settings

	details, _ := json.Marshal(settings)
	if err := s.store.AppendAudit(ctx, &event.AuditEntry{
		FirmID:       f.ID,
		UserID:       actor.UserID,
		Action:       event.ActionFirmSettingsUpdated,
		ResourceType: "firm",
		ResourceID:   f.ID,
		Details:      details,
	}); err != nil {
		slog.Error("audit append failed", "action", event.ActionFirmSettingsUpdated, "firm_id", f.ID, "error", err)
	}
	return f, nil
}

// Members lists the firm's members.
func (s *FirmService) Members(ctx context.Context) ([]user.Member, error) {
	return s.store.ListFirmMembers(ctx)
}
