// Package firm defines the Firm tenant entity and its credit ledger types.
// A firm is the billing and data-isolation boundary: every document, job,
// objection and audit entry belongs to exactly one firm.
package firm

import "time"

// UnlimitedCredits is the sentinel balance that marks a master firm.
// Firms pinned at this value bypass all credit checks and are never debited.
const UnlimitedCredits = 999999

// largeFileThreshold is the file size above which processing costs two
// credits instead of one.
const largeFileThreshold = 50 * 1024 * 1024

// Default quota values applied when a firm is provisioned.
const (
	DefaultMaxMembers    = 10
	DefaultMaxUploadSize = 3 * 1024 * 1024 * 1024
	DefaultRetentionDays = 365
)

// Master-firm quota values applied when the owner email is on the configured
// master allow-list.
const (
	MasterMaxMembers    = 999
	MasterMaxUploadSize = 10 * 1024 * 1024 * 1024
	MasterRetentionDays = 99999
)

// Firm represents a law firm tenant.
type Firm struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	Credits    int64     `json:"credits"`
	MaxMembers int       `json:"max_members"`
	Settings   Settings  `json:"settings"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Settings holds per-firm policy knobs adjustable by firm admins.
type Settings struct {
	AllowMemberInvites bool  `json:"allow_member_invites"`
	MaxUploadSize      int64 `json:"max_upload_size"`
	RetentionDays      int   `json:"retention_days"`
}

// Unlimited reports whether the firm bypasses credit accounting.
func (f *Firm) Unlimited() bool {
	return f.Credits == UnlimitedCredits
}

// ProcessingCost returns the credit cost for processing a file of the given
// size: files over 50 MiB cost two credits, everything else one.
func ProcessingCost(fileSize int64) int64 {
	if fileSize > largeFileThreshold {
		return 2
	}
	return 1
}

// DefaultSettings returns the settings applied to a newly provisioned firm.
func DefaultSettings() Settings {
	return Settings{
		AllowMemberInvites: true,
		MaxUploadSize:      DefaultMaxUploadSize,
		RetentionDays:      DefaultRetentionDays,
	}
}

// MasterSettings returns the settings applied to a master firm.
func MasterSettings() Settings {
	return Settings{
		AllowMemberInvites: true,
		MaxUploadSize:      MasterMaxUploadSize,
		RetentionDays:      MasterRetentionDays,
	}
}

// CreateRequest holds the fields needed to provision a firm.
type CreateRequest struct {
	Name string `json:"name"`
}

// UpdateSettingsRequest carries a partial settings update. Nil fields are
// left unchanged.
type UpdateSettingsRequest struct {
	AllowMemberInvites *bool  `json:"allow_member_invites,omitempty"`
	MaxUploadSize      *int64 `json:"max_upload_size,omitempty"`
	RetentionDays      *int   `json:"retention_days,omitempty"`
}
