package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lending/internal/repository"
	"github.com/iliyamo/library-lending/internal/service"
)

func newMemberFixture(t *testing.T) (*service.MemberService, *service.LendingService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return service.NewMemberService(store), service.NewLendingService(store, nil, testConfig()), store
}

func TestMemberCreateAndGet(t *testing.T) {
	ctx := context.Background()
	members, _, _ := newMemberFixture(t)

	m, err := members.Create(ctx, "John Doe", "John@Example.com", "555-0100")
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", m.Email)
	assert.True(t, m.Active)
	assert.False(t, m.MembershipDate.IsZero())

	got, err := members.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	byEmail, err := members.GetByEmail(ctx, "JOHN@example.com")
	require.NoError(t, err)
	assert.Equal(t, m.ID, byEmail.ID)

	_, err = members.Get(ctx, 999)
	var e *service.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, service.KindNotFound, e.Kind)
}

func TestMemberCreateValidationAndDuplicates(t *testing.T) {
	ctx := context.Background()
	members, _, _ := newMemberFixture(t)

	_, err := members.Create(ctx, "J", "j@example.com", "")
	var e *service.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, service.KindValidation, e.Kind)
	assert.Equal(t, "name", e.Field)

	_, err = members.Create(ctx, "John Doe", "not-an-email", "")
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "email", e.Field)

	_, err = members.Create(ctx, "John Doe", "john@example.com", "")
	require.NoError(t, err)
	_, err = members.Create(ctx, "Other John", "john@example.com", "")
	assert.Equal(t, service.CodeDuplicateEmail, conflictCode(t, err))
}

func TestMemberListPagingAndSort(t *testing.T) {
	ctx := context.Background()
	members, _, _ := newMemberFixture(t)

	for _, name := range []string{"Charlie", "Alice", "Bob"} {
		_, err := members.Create(ctx, name, name+"@example.com", "")
		require.NoError(t, err)
	}

	page, err := members.List(ctx, 0, 2, "name", "asc")
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Members, 2)
	assert.Equal(t, "Alice", page.Members[0].Name)
	assert.Equal(t, "Bob", page.Members[1].Name)

	page, err = members.List(ctx, 1, 2, "name", "asc")
	require.NoError(t, err)
	require.Len(t, page.Members, 1)
	assert.Equal(t, "Charlie", page.Members[0].Name)

	// Out-of-range input falls back to sane paging defaults.
	page, err = members.List(ctx, -1, 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 10, page.Size)
	assert.Len(t, page.Members, 3)

	page, err = members.List(ctx, 0, 3, "name", "desc")
	require.NoError(t, err)
	assert.Equal(t, "Charlie", page.Members[0].Name)
}

func TestMemberSearch(t *testing.T) {
	ctx := context.Background()
	members, _, _ := newMemberFixture(t)

	_, err := members.Create(ctx, "John Doe", "john@example.com", "")
	require.NoError(t, err)
	_, err = members.Create(ctx, "Jane Doe", "jane@example.com", "")
	require.NoError(t, err)
	_, err = members.Create(ctx, "Bob Smith", "bob@example.com", "")
	require.NoError(t, err)

	found, err := members.Search(ctx, "doe")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = members.Search(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemberActiveAndStats(t *testing.T) {
	ctx := context.Background()
	members, lending, _ := newMemberFixture(t)

	a, err := members.Create(ctx, "Alice", "alice@example.com", "")
	require.NoError(t, err)
	_, err = members.Create(ctx, "Bob", "bob@example.com", "")
	require.NoError(t, err)

	require.NoError(t, lending.DeactivateMember(ctx, a.ID))

	active, err := members.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bob", active[0].Name)

	total, activeCount, err := members.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, activeCount)
}

func TestMemberBorrowedBooks(t *testing.T) {
	ctx := context.Background()
	members, lending, store := newMemberFixture(t)

	book, err := lending.CreateBook(ctx, "Clean Code", "Robert Martin", "")
	require.NoError(t, err)
	_, err = lending.Borrow(ctx, book.ID, "John Doe", "")
	require.NoError(t, err)

	m, err := store.GetMemberByEmail(ctx, "john.doe@library.com")
	require.NoError(t, err)

	books, err := members.BorrowedBooks(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Clean Code", books[0].Title)

	// Unknown members fail before the book lookup.
	_, err = members.BorrowedBooks(ctx, 999)
	var e *service.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, service.KindNotFound, e.Kind)
}
