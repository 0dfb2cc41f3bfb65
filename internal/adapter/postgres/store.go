package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/domain/user"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Users ---

const userColumns = `id, subject, email, name, COALESCE(firm_id::text, ''), role, created_at, updated_at`

// UpsertUser creates the user row for an identity-provider subject on first
// sight, refreshing email and name on subsequent logins.
func (s *Store) UpsertUser(ctx context.Context, subject, email, name string) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO users (subject, email, name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (subject) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()
		 RETURNING %s`, userColumns),
		subject, email, name)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// AttachUserToFirm sets the user's firm membership and role.
func (s *Store) AttachUserToFirm(ctx context.Context, userID, firmID string, role user.Role) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET firm_id = $2, role = $3, updated_at = now() WHERE id = $1`,
		userID, firmID, string(role))
	return execExpectOne(tag, err, "attach user %s to firm", userID)
}

// ListFirmMembers returns the members of the caller's firm.
func (s *Store) ListFirmMembers(ctx context.Context) ([]user.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, role FROM users WHERE firm_id = $1 ORDER BY created_at ASC`,
		firmFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list firm members: %w", err)
	}
	defer rows.Close()

	var members []user.Member
	for rows.Next() {
		var m user.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Role); err != nil {
			return nil, fmt.Errorf("scan firm member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// --- Firms ---

const firmColumns = `id, name, COALESCE(owner_id::text, ''), credits, max_members, allow_member_invites, max_upload_size, retention_days, created_at, updated_at`

// CreateFirm provisions a firm and attaches the owner as its admin in one
// transaction.
func (s *Store) CreateFirm(ctx context.Context, name, ownerID string, credits int64, maxMembers int, settings firm.Settings) (*firm.Firm, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO firms (name, owner_id, credits, max_members, allow_member_invites, max_upload_size, retention_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING %s`, firmColumns),
		name, ownerID, credits, maxMembers, settings.AllowMemberInvites, settings.MaxUploadSize, settings.RetentionDays)

	f, err := scanFirm(row)
	if err != nil {
		return nil, fmt.Errorf("insert firm: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE users SET firm_id = $2, role = $3, updated_at = now() WHERE id = $1`,
		ownerID, f.ID, string(user.RoleAdmin))
	if err := execExpectOne(tag, err, "attach owner %s", ownerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit firm: %w", err)
	}
	return &f, nil
}

// GetFirm returns a firm by ID.
func (s *Store) GetFirm(ctx context.Context, id string) (*firm.Firm, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM firms WHERE id = $1`, firmColumns), id)

	f, err := scanFirm(row)
	if err != nil {
		return nil, notFoundWrap(err, "get firm %s", id)
	}
	return &f, nil
}

// UpdateFirmSettings replaces the firm's policy settings.
func (s *Store) UpdateFirmSettings(ctx context.Context, id string, settings firm.Settings) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE firms SET allow_member_invites = $2, max_upload_size = $3, retention_days = $4, updated_at = now()
		 WHERE id = $1`,
		id, settings.AllowMemberInvites, settings.MaxUploadSize, settings.RetentionDays)
	return execExpectOne(tag, err, "update firm settings %s", id)
}

// --- Scanners ---

func scanUser(row scannable) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.FirmID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func scanFirm(row scannable) (firm.Firm, error) {
	var f firm.Firm
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &f.Credits, &f.MaxMembers,
		&f.Settings.AllowMemberInvites, &f.Settings.MaxUploadSize, &f.Settings.RetentionDays,
		&f.CreatedAt, &f.UpdatedAt)
	return f, err
}
