// Package user defines the authenticated principal and its firm association.
package user

import "time"

// Role is a user's role within their firm.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User maps an identity-provider principal to a firm. FirmID is empty until
// the user provisions or joins a firm; no tenant-scoped operation may proceed
// without it.
type User struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	FirmID    string    `json:"firm_id,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is the firm-member projection returned to firm admins.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
