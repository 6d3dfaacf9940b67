package model

import "time"

// Role names carried in account records and token claims.
const (
	RoleAdmin     = "ADMIN"     // full access including catalog writes
	RoleLibrarian = "LIBRARIAN" // member administration
	RoleMember    = "MEMBER"    // borrow and return only
)

// Account represents a login identity stored in the `users` table.
// Accounts are independent of Member records: a member is someone who
// holds books, an account is someone who can call the API.  Roles are
// persisted as a comma separated list in a single column and exposed
// here as a slice; the set is never empty after registration.
//
// Fields:
//  ID           – primary key identifier.
//  Username     – unique login name.
//  PasswordHash – bcrypt hash of the password.
//  Email        – unique contact address.
//  Roles        – role names (ADMIN, LIBRARIAN, MEMBER).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Account struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique)
	PasswordHash string    // users.password_hash
	Email        string    // users.email (unique)
	Roles        []string  // users.roles (comma separated in the DB)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// HasRole reports whether the account carries the given role name.
func (a Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
