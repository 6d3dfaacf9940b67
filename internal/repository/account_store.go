package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/service"
)

// AccountStore implements service.AccountStore on the `users` table.
// Roles are stored as a comma separated list in a single column.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore returns an AccountStore bound to the given database.
func NewAccountStore(db *sql.DB) *AccountStore { return &AccountStore{db: db} }

const accountCols = `id, username, password_hash, email, roles, created_at, updated_at`

func scanAccount(row scanner) (model.Account, error) {
	var (
		a     model.Account
		roles string
	)
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &roles, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}
	a.Roles = splitRoles(roles)
	return a, nil
}

func splitRoles(s string) []string {
	parts := strings.Split(s, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// FindByUsername fetches an account by login name.
func (s *AccountStore) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM users WHERE username=? LIMIT 1", username)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, service.ErrAccountNotFound
	}
	return a, err
}

// ExistsByUsername reports whether the login name is taken.
func (s *AccountStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username=?)", username).Scan(&ok)
	return ok, err
}

// ExistsByEmail reports whether the email is taken.
func (s *AccountStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=?)", email).Scan(&ok)
	return ok, err
}

// Create inserts an account and reads the stored row back.  Unique
// violations surface as the matching duplicate sentinel.
func (s *AccountStore) Create(ctx context.Context, a model.Account) (model.Account, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, email, roles) VALUES (?,?,?,?)",
		a.Username, a.PasswordHash, a.Email, strings.Join(a.Roles, ","))
	if err != nil {
		return model.Account{}, dupErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, err
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+accountCols+" FROM users WHERE id=?", id)
	return scanAccount(row)
}
