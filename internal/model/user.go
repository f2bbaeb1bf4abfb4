package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleGuest    = "GUEST"
	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"
)

// User represents an application user record as stored in the
// `users` table.  Guests book for themselves; admins and operators may
// act on behalf of any guest.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name used in confirmation emails.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – GUEST, ADMIN or OPERATOR.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
