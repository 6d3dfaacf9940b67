package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/library-lending/internal/config"
	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/utils"
)

// dummyHash is a bcrypt hash compared against the supplied password
// when the username does not exist, so login takes the same time on
// the unknown-user and wrong-password paths.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService verifies credentials against the account store and issues
// access tokens.  It never tells a caller whether a login failed on the
// username or on the password.
type AuthService struct {
	accounts AccountStore
	cfg      config.Config
}

// NewAuthService builds an AuthService.
func NewAuthService(accounts AccountStore, cfg config.Config) *AuthService {
	if accounts == nil {
		panic("nil account store passed to NewAuthService")
	}
	return &AuthService{accounts: accounts, cfg: cfg}
}

// AuthResult carries the issued token together with the account's
// public identity.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	Email     string
	Roles     []string
}

// Register creates an account with the default MEMBER role and returns
// a freshly issued token.  Duplicate usernames and emails are reported
// as conflicts; races on the unique columns are settled by the store
// and mapped to the same conflicts.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case username == "":
		return AuthResult{}, Invalid("username", "username is required")
	case len(username) < 3 || len(username) > 50:
		return AuthResult{}, Invalid("username", "username must be between 3 and 50 characters")
	case len(password) < 6:
		return AuthResult{}, Invalid("password", "password must be at least 6 characters")
	case email == "" || !strings.Contains(email, "@"):
		return AuthResult{}, Invalid("email", "email is invalid")
	}

	if taken, err := s.accounts.ExistsByUsername(ctx, username); err != nil {
		return AuthResult{}, Infra(err, "failed to check username")
	} else if taken {
		return AuthResult{}, Conflict(CodeDuplicateUser, "username is already taken")
	}
	if taken, err := s.accounts.ExistsByEmail(ctx, email); err != nil {
		return AuthResult{}, Infra(err, "failed to check email")
	} else if taken {
		return AuthResult{}, Conflict(CodeDuplicateEmail, "email is already in use")
	}

	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, Infra(err, "failed to hash password")
	}
	acc, err := s.accounts.Create(ctx, model.Account{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Roles:        []string{model.RoleMember},
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			return AuthResult{}, Conflict(CodeDuplicateUser, "username is already taken")
		case errors.Is(err, ErrDuplicateEmail):
			return AuthResult{}, Conflict(CodeDuplicateEmail, "email is already in use")
		}
		return AuthResult{}, Infra(err, "failed to create account")
	}
	return s.issue(acc)
}

// Login verifies a username/password pair and returns a fresh token.
// Unknown usernames and wrong passwords produce the identical error.
func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, Unauthenticated("invalid username or password")
	}

	acc, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Burn a comparison so the miss is not observably faster.
			utils.VerifyPassword(dummyHash, password)
			return AuthResult{}, Unauthenticated("invalid username or password")
		}
		return AuthResult{}, Infra(err, "failed to load account")
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return AuthResult{}, Unauthenticated("invalid username or password")
	}
	return s.issue(acc)
}

// EnsureAdmin creates the bootstrap ADMIN account from configuration if
// it does not exist yet.  It is safe to call on every startup.
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		return nil
	}
	if exists, err := s.accounts.ExistsByUsername(ctx, s.cfg.AdminUsername); err != nil {
		return Infra(err, "failed to check admin account")
	} else if exists {
		return nil
	}
	hash, err := utils.HashPassword(s.cfg.AdminPassword, s.cfg.BcryptCost)
	if err != nil {
		return Infra(err, "failed to hash admin password")
	}
	email := s.cfg.AdminEmail
	if email == "" {
		email = s.cfg.AdminUsername + "@" + memberEmailDomain
	}
	_, err = s.accounts.Create(ctx, model.Account{
		Username:     s.cfg.AdminUsername,
		PasswordHash: hash,
		Email:        email,
		Roles:        []string{model.RoleAdmin},
	})
	if err != nil && !errors.Is(err, ErrDuplicateUsername) && !errors.Is(err, ErrDuplicateEmail) {
		return Infra(err, "failed to create admin account")
	}
	return nil
}

func (s *AuthService) issue(acc model.Account) (AuthResult, error) {
	ttl := time.Duration(s.cfg.AccessTTLMin) * time.Minute
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, acc.Username, acc.Roles, ttl)
	if err != nil {
		return AuthResult{}, Infra(err, "failed to issue token")
	}
	return AuthResult{
		Token:     tok.Token,
		ExpiresAt: tok.Exp,
		Username:  acc.Username,
		Email:     acc.Email,
		Roles:     acc.Roles,
	}, nil
}
