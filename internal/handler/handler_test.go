package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lending/internal/config"
	"github.com/iliyamo/library-lending/internal/handler"
	"github.com/iliyamo/library-lending/internal/repository"
	"github.com/iliyamo/library-lending/internal/router"
	"github.com/iliyamo/library-lending/internal/service"
)

// envelope mirrors the JSON wrapper every endpoint responds with.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := config.Config{
		LibraryName:       "City Library",
		LoanPeriodDays:    14,
		MaxBooksPerMember: 5,
		LateFeePerDay:     0.5,
		JWTSecret:         "handler-test-secret",
		AccessTTLMin:      15,
		BcryptCost:        4,
		AdminUsername:     "admin",
		AdminPassword:     "admin-secret",
	}

	store := repository.NewMemoryStore()
	accounts := repository.NewMemoryAccounts()
	lending := service.NewLendingService(store, nil, cfg)
	members := service.NewMemberService(store)
	auth := service.NewAuthService(accounts, cfg)
	require.NoError(t, auth.EnsureAdmin(context.Background()))

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), nil)
	router.RegisterLibrary(e, handler.NewLibraryHandler(lending), cfg.JWTSecret, nil)
	router.RegisterMembers(e, handler.NewMemberHandler(members, lending), cfg.JWTSecret)
	return e
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func login(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func register(t *testing.T, e *echo.Echo, username, password, email string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/v1/auth/register", "",
		`{"username":"`+username+`","password":"`+password+`","email":"`+email+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLendingScenario(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, "admin", "admin-secret")
	member := register(t, e, "reader", "secret1", "reader@example.com")

	// The admin stocks the catalog.
	rec := doJSON(e, http.MethodPost, "/api/v1/library/books", admin,
		`{"title":"Clean Code","author":"Robert Martin"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var book struct {
		ID        uint64 `json:"id"`
		Available bool   `json:"available"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &book))
	assert.True(t, book.Available)

	// A signed-in user borrows it for John Doe.
	rec = doJSON(e, http.MethodPost, "/api/v1/library/books/1/borrow", member,
		`{"member_name":"John Doe"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loan struct {
		MemberName string     `json:"member_name"`
		DueDate    *time.Time `json:"due_date"`
	}
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &loan))
	assert.Equal(t, "John Doe", loan.MemberName)
	require.NotNil(t, loan.DueDate)
	assert.WithinDuration(t, time.Now().UTC().Add(14*24*time.Hour), *loan.DueDate, 5*time.Second)

	// A second borrow collides with the active loan.
	rec = doJSON(e, http.MethodPost, "/api/v1/library/books/1/borrow", member,
		`{"member_name":"Jane Smith"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "not available")

	// Anyone can see the book is out, without a token.
	rec = doJSON(e, http.MethodGet, "/api/v1/library/books/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var read struct {
		Available      bool    `json:"available"`
		BorrowedByName *string `json:"borrowed_by_member_name"`
	}
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &read))
	assert.False(t, read.Available)
	require.NotNil(t, read.BorrowedByName)
	assert.Equal(t, "John Doe", *read.BorrowedByName)

	// Returning restores availability.
	rec = doJSON(e, http.MethodPost, "/api/v1/library/books/1/return", member,
		`{"member_name":"John Doe"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/v1/library/books/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	// borrowed_by_member_name is omitted when nil, so Unmarshal would keep
	// the stale pointer from the previous decode; clear it first.
	read.BorrowedByName = nil
	require.NoError(t, json.Unmarshal(env.Data, &read))
	assert.True(t, read.Available)
	assert.Nil(t, read.BorrowedByName)

	// Returning twice is a conflict.
	rec = doJSON(e, http.MethodPost, "/api/v1/library/books/1/return", member,
		`{"member_name":"John Doe"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthorizationBoundaries(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, "admin", "admin-secret")
	member := register(t, e, "reader", "secret1", "reader@example.com")

	// No token at all on a protected route.
	rec := doJSON(e, http.MethodPost, "/api/v1/library/books", "",
		`{"title":"Clean Code","author":"Robert Martin"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A MEMBER token is authenticated but not allowed to write the catalog.
	rec = doJSON(e, http.MethodPost, "/api/v1/library/books", member,
		`{"title":"Clean Code","author":"Robert Martin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Nor to administer members.
	rec = doJSON(e, http.MethodGet, "/api/v1/members", member, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The admin can do both.
	rec = doJSON(e, http.MethodPost, "/api/v1/library/books", admin,
		`{"title":"Clean Code","author":"Robert Martin"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(e, http.MethodGet, "/api/v1/members", admin, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Garbage tokens are rejected before any permission check.
	rec = doJSON(e, http.MethodGet, "/api/v1/members", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidationResponses(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, "admin", "admin-secret")

	rec := doJSON(e, http.MethodPost, "/api/v1/library/books", admin,
		`{"title":"","author":"Robert Martin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	var data struct {
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "title", data.Field)

	// Non-numeric path ids never reach the service.
	rec = doJSON(e, http.MethodGet, "/api/v1/library/books/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberAdministrationEndpoints(t *testing.T) {
	e := newTestServer(t)
	admin := login(t, e, "admin", "admin-secret")

	rec := doJSON(e, http.MethodPost, "/api/v1/members", admin,
		`{"name":"John Doe","email":"john@example.com","phone":"555-0100"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     uint64 `json:"id"`
		Active bool   `json:"active"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.True(t, created.Active)

	rec = doJSON(e, http.MethodGet, "/api/v1/members/email/john@example.com", admin, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/members/search?name=john", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/members/stats/count", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Total    int64 `json:"total"`
		Active   int64 `json:"active"`
		Inactive int64 `json:"inactive"`
	}
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.Total)
	assert.EqualValues(t, 1, stats.Active)

	rec = doJSON(e, http.MethodPut, "/api/v1/members/1/deactivate", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/v1/members/1", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.False(t, created.Active)
}
