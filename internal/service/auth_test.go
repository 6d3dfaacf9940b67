package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lending/internal/config"
	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/repository"
	"github.com/iliyamo/library-lending/internal/service"
	"github.com/iliyamo/library-lending/internal/utils"
)

func newAuthFixture(t *testing.T, cfg config.Config) (*service.AuthService, *repository.MemoryAccounts) {
	t.Helper()
	accounts := repository.NewMemoryAccounts()
	return service.NewAuthService(accounts, cfg), accounts
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	svc, _ := newAuthFixture(t, cfg)

	reg, err := svc.Register(ctx, "alice", "secret1", "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.Username)
	assert.Equal(t, "alice@example.com", reg.Email)
	assert.Equal(t, []string{model.RoleMember}, reg.Roles)
	require.NotEmpty(t, reg.Token)

	// The issued token verifies against the configured secret and
	// carries the account identity.
	claims, err := utils.ParseAccessToken(cfg.JWTSecret, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{model.RoleMember}, claims.Roles)

	login, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", login.Username)
	require.NotEmpty(t, login.Token)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture(t, testConfig())

	tests := []struct {
		name     string
		username string
		password string
		email    string
		field    string
	}{
		{"blank_username", "", "secret1", "a@b.com", "username"},
		{"short_username", "ab", "secret1", "a@b.com", "username"},
		{"short_password", "alice", "12345", "a@b.com", "password"},
		{"bad_email", "alice", "secret1", "not-an-email", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password, tt.email)
			var e *service.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, service.KindValidation, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture(t, testConfig())

	_, err := svc.Register(ctx, "alice", "secret1", "alice@example.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "secret1", "other@example.com")
	assert.Equal(t, service.CodeDuplicateUser, conflictCode(t, err))

	_, err = svc.Register(ctx, "alice2", "secret1", "alice@example.com")
	assert.Equal(t, service.CodeDuplicateEmail, conflictCode(t, err))
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture(t, testConfig())

	_, err := svc.Register(ctx, "alice", "secret1", "alice@example.com")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody", "secret1")
	_, wrongErr := svc.Login(ctx, "alice", "wrong-password")

	// An attacker must not be able to probe which usernames exist, so
	// both failures carry the identical kind and message.
	var e1, e2 *service.Error
	require.ErrorAs(t, unknownErr, &e1)
	require.ErrorAs(t, wrongErr, &e2)
	assert.Equal(t, service.KindUnauthenticated, e1.Kind)
	assert.Equal(t, service.KindUnauthenticated, e2.Kind)
	assert.Equal(t, e1.Message, e2.Message)

	_, err = svc.Login(ctx, "", "")
	var e *service.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, service.KindUnauthenticated, e.Kind)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.AdminUsername = "root"
	cfg.AdminPassword = "super-secret"
	svc, accounts := newAuthFixture(t, cfg)

	require.NoError(t, svc.EnsureAdmin(ctx))

	acc, err := accounts.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleAdmin}, acc.Roles)
	assert.Equal(t, "root@library.com", acc.Email)
	assert.True(t, utils.VerifyPassword(acc.PasswordHash, "super-secret"))

	// Second startup is a no-op.
	require.NoError(t, svc.EnsureAdmin(ctx))

	login, err := svc.Login(ctx, "root", "super-secret")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleAdmin}, login.Roles)
}

func TestEnsureAdminDisabledWithoutConfig(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newAuthFixture(t, testConfig())

	require.NoError(t, svc.EnsureAdmin(ctx))
	_, err := accounts.FindByUsername(ctx, "root")
	assert.ErrorIs(t, err, service.ErrAccountNotFound)
}
