package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/service"
)

// MemoryStore is an in-memory service.LendingStore used by tests and
// local experiments.  One store-wide mutex plays the role the row locks
// play in MySQL: WithinTx holds it for the whole callback, so engine
// operations are serialized and two concurrent borrows of the same book
// observe each other's commit.
type MemoryStore struct {
	mu      sync.Mutex
	books   map[uint64]model.Book
	members map[uint64]model.Member
	held    map[uint64][]uint64 // member id -> held book ids
	nextID  uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[uint64]model.Book),
		members: make(map[uint64]model.Member),
		held:    make(map[uint64][]uint64),
	}
}

func (s *MemoryStore) nextIdentity() uint64 {
	s.nextID++
	return s.nextID
}

// WithinTx serializes the callback under the store mutex.  There is no
// rollback of partial writes: the engine validates before mutating, and
// tests rely on the mutual exclusion, not on undo.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx service.LendingTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memoryTx{s: s})
}

func (s *MemoryStore) bookWithName(b model.Book) model.Book {
	if b.BorrowedByID != nil {
		if m, ok := s.members[*b.BorrowedByID]; ok {
			name := m.Name
			b.BorrowedByName = &name
		}
	}
	return b
}

func (s *MemoryStore) memberWithHeld(m model.Member) model.Member {
	ids := s.held[m.ID]
	m.BorrowedBookIDs = append([]uint64(nil), ids...)
	return m
}

// GetBook fetches a book by id.
func (s *MemoryStore) GetBook(ctx context.Context, id uint64) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, service.ErrBookNotFound
	}
	return s.bookWithName(b), nil
}

// ListBooks returns the catalog ordered by id.
func (s *MemoryStore) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := make([]model.Book, 0, len(s.books))
	for _, b := range s.books {
		if onlyAvailable && !b.Available {
			continue
		}
		books = append(books, s.bookWithName(b))
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// SearchBooks matches the keyword against title and author.
func (s *MemoryStore) SearchBooks(ctx context.Context, keyword string, page, size int) ([]model.Book, int64, error) {
	all, err := s.ListBooks(ctx, false)
	if err != nil {
		return nil, 0, err
	}
	kw := strings.ToLower(keyword)
	matched := make([]model.Book, 0, len(all))
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Title), kw) || strings.Contains(strings.ToLower(b.Author), kw) {
			matched = append(matched, b)
		}
	}
	total := int64(len(matched))
	start := page * size
	if start >= len(matched) {
		return []model.Book{}, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// BooksByAuthor returns all books with an exact author match.
func (s *MemoryStore) BooksByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	all, err := s.ListBooks(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.Book, 0)
	for _, b := range all {
		if b.Author == author {
			out = append(out, b)
		}
	}
	return out, nil
}

// CreateBook inserts a book with fresh timestamps.
func (s *MemoryStore) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ISBN != nil {
		for _, other := range s.books {
			if other.ISBN != nil && *other.ISBN == *b.ISBN {
				return model.Book{}, service.ErrDuplicateISBN
			}
		}
	}
	now := time.Now().UTC()
	b.ID = s.nextIdentity()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.books[b.ID] = b
	return b, nil
}

// ExistsBook reports whether a book exists.
func (s *MemoryStore) ExistsBook(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.books[id]
	return ok, nil
}

// DeleteBook removes a book.
func (s *MemoryStore) DeleteBook(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	return nil
}

// BookTotals counts all and available books.
func (s *MemoryStore) BookTotals(ctx context.Context) (total, available int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		total++
		if b.Available {
			available++
		}
	}
	return total, available, nil
}

// GetMember fetches a member with held book ids populated.
func (s *MemoryStore) GetMember(ctx context.Context, id uint64) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, service.ErrMemberNotFound
	}
	return s.memberWithHeld(m), nil
}

// GetMemberByEmail fetches a member by contact address.
func (s *MemoryStore) GetMemberByEmail(ctx context.Context, email string) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Email == email {
			return s.memberWithHeld(m), nil
		}
	}
	return model.Member{}, service.ErrMemberNotFound
}

// ListMembers returns one page of members plus the total count.
func (s *MemoryStore) ListMembers(ctx context.Context, page, size int, sortBy, sortDir string) ([]model.Member, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]model.Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, s.memberWithHeld(m))
	}
	desc := strings.EqualFold(sortDir, "desc")
	sort.Slice(members, func(i, j int) bool {
		var less bool
		switch strings.ToLower(sortBy) {
		case "name":
			less = members[i].Name < members[j].Name
		case "email":
			less = members[i].Email < members[j].Email
		default:
			less = members[i].ID < members[j].ID
		}
		if desc {
			return !less
		}
		return less
	})
	total := int64(len(members))
	start := page * size
	if start >= len(members) {
		return []model.Member{}, total, nil
	}
	end := start + size
	if end > len(members) {
		end = len(members)
	}
	return members[start:end], total, nil
}

// SearchMembers matches the name fragment case-insensitively.
func (s *MemoryStore) SearchMembers(ctx context.Context, name string) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frag := strings.ToLower(name)
	out := make([]model.Member, 0)
	for _, m := range s.members {
		if strings.Contains(strings.ToLower(m.Name), frag) {
			out = append(out, s.memberWithHeld(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveMembers lists active members.
func (s *MemoryStore) ActiveMembers(ctx context.Context) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Member, 0)
	for _, m := range s.members {
		if m.Active {
			out = append(out, s.memberWithHeld(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// OverdueMembers lists members holding at least one overdue book,
// evaluated against the current clock.
func (s *MemoryStore) OverdueMembers(ctx context.Context) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]model.Member, 0)
	for _, m := range s.members {
		for _, id := range s.held[m.ID] {
			if b, ok := s.books[id]; ok && b.OverdueAt(now) {
				out = append(out, s.memberWithHeld(m))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BorrowedBooks lists the books currently held by a member.
func (s *MemoryStore) BorrowedBooks(ctx context.Context, memberID uint64) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Book, 0)
	for _, id := range s.held[memberID] {
		if b, ok := s.books[id]; ok {
			out = append(out, s.bookWithName(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateMember inserts a member with fresh timestamps.
func (s *MemoryStore) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createMemberLocked(m)
}

func (s *MemoryStore) createMemberLocked(m model.Member) (model.Member, error) {
	for _, other := range s.members {
		if other.Email == m.Email {
			return model.Member{}, service.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	m.ID = s.nextIdentity()
	m.MembershipDate = now
	m.CreatedAt = now
	m.UpdatedAt = now
	s.members[m.ID] = m
	return m, nil
}

// MemberTotals counts all and active members.
func (s *MemoryStore) MemberTotals(ctx context.Context) (total, active int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		total++
		if m.Active {
			active++
		}
	}
	return total, active, nil
}

// memoryTx operates on the already-locked MemoryStore.  The held map is
// rebuilt from the member's BorrowedBookIDs on SaveMember so both sides
// of the relation stay mirrored exactly like the SQL foreign key does.
type memoryTx struct {
	s *MemoryStore
}

func (t *memoryTx) BookForUpdate(ctx context.Context, id uint64) (model.Book, error) {
	b, ok := t.s.books[id]
	if !ok {
		return model.Book{}, service.ErrBookNotFound
	}
	return b, nil
}

func (t *memoryTx) SaveBook(ctx context.Context, b model.Book) error {
	b.BorrowedByName = nil // joined field, derived on reads
	b.UpdatedAt = time.Now().UTC()
	t.s.books[b.ID] = b
	return nil
}

func (t *memoryTx) MemberByEmail(ctx context.Context, email string) (model.Member, error) {
	for _, m := range t.s.members {
		if m.Email == email {
			return t.s.memberWithHeld(m), nil
		}
	}
	return model.Member{}, service.ErrMemberNotFound
}

func (t *memoryTx) MemberForUpdate(ctx context.Context, id uint64) (model.Member, error) {
	m, ok := t.s.members[id]
	if !ok {
		return model.Member{}, service.ErrMemberNotFound
	}
	return t.s.memberWithHeld(m), nil
}

func (t *memoryTx) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	return t.s.createMemberLocked(m)
}

func (t *memoryTx) SaveMember(ctx context.Context, m model.Member) error {
	t.s.held[m.ID] = append([]uint64(nil), m.BorrowedBookIDs...)
	m.BorrowedBookIDs = nil
	m.UpdatedAt = time.Now().UTC()
	t.s.members[m.ID] = m
	return nil
}

func (t *memoryTx) HeldBookCount(ctx context.Context, memberID uint64) (int, error) {
	return len(t.s.held[memberID]), nil
}

// MemoryAccounts is an in-memory service.AccountStore for tests.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[uint64]model.Account
	nextID   uint64
}

// NewMemoryAccounts returns an empty MemoryAccounts.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[uint64]model.Account)}
}

// FindByUsername fetches an account by login name.
func (s *MemoryAccounts) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Account{}, service.ErrAccountNotFound
}

// ExistsByUsername reports whether the login name is taken.
func (s *MemoryAccounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// ExistsByEmail reports whether the email is taken.
func (s *MemoryAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// Create inserts an account, enforcing the unique columns.
func (s *MemoryAccounts) Create(ctx context.Context, a model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.accounts {
		if other.Username == a.Username {
			return model.Account{}, service.ErrDuplicateUsername
		}
		if other.Email == a.Email {
			return model.Account{}, service.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.ID] = a
	return a, nil
}
