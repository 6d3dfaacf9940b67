package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/library-lending/internal/model"
)

// MemberService covers member administration: listing, search, creation
// and the read-side views used by librarians.  Deactivation lives on
// LendingService because it has to check the held set atomically.
type MemberService struct {
	store LendingStore
}

// NewMemberService builds a MemberService.
func NewMemberService(store LendingStore) *MemberService {
	if store == nil {
		panic("nil store passed to NewMemberService")
	}
	return &MemberService{store: store}
}

// MemberPage is one page of the member listing.
type MemberPage struct {
	Members []model.Member
	Total   int64
	Page    int
	Size    int
}

// List returns a page of members sorted by the given column.  Unknown
// sort columns fall back to id; sortDir is asc unless "desc".
func (s *MemberService) List(ctx context.Context, page, size int, sortBy, sortDir string) (MemberPage, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 10
	}
	members, total, err := s.store.ListMembers(ctx, page, size, sortBy, sortDir)
	if err != nil {
		return MemberPage{}, Infra(err, "failed to list members")
	}
	return MemberPage{Members: members, Total: total, Page: page, Size: size}, nil
}

// Get loads a single member by id.
func (s *MemberService) Get(ctx context.Context, id uint64) (model.Member, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return model.Member{}, NotFound("member with ID %d not found", id)
		}
		return model.Member{}, Infra(err, "failed to load member")
	}
	return m, nil
}

// GetByEmail loads a single member by contact address.
func (s *MemberService) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m, err := s.store.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return model.Member{}, NotFound("member with email %s not found", email)
		}
		return model.Member{}, Infra(err, "failed to load member")
	}
	return m, nil
}

// Create registers a member explicitly (as opposed to the implicit
// creation on first borrow).  The contact address must be unique.
func (s *MemberService) Create(ctx context.Context, name, email, phone string) (model.Member, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || len(name) < 2 || len(name) > 50 {
		return model.Member{}, Invalid("name", "member name must be between 2 and 50 characters")
	}
	if email == "" || !strings.Contains(email, "@") {
		return model.Member{}, Invalid("email", "email is invalid")
	}
	m, err := s.store.CreateMember(ctx, model.Member{
		Name:   name,
		Email:  email,
		Phone:  strings.TrimSpace(phone),
		Active: true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return model.Member{}, Conflict(CodeDuplicateEmail, "member with email %s already exists", email)
		}
		return model.Member{}, Infra(err, "failed to create member")
	}
	return m, nil
}

// Search finds members whose name contains the fragment, case
// insensitively.
func (s *MemberService) Search(ctx context.Context, name string) ([]model.Member, error) {
	members, err := s.store.SearchMembers(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, Infra(err, "failed to search members")
	}
	return members, nil
}

// Active lists members whose membership is active.
func (s *MemberService) Active(ctx context.Context) ([]model.Member, error) {
	members, err := s.store.ActiveMembers(ctx)
	if err != nil {
		return nil, Infra(err, "failed to list active members")
	}
	return members, nil
}

// Overdue lists members currently holding at least one overdue book.
// Overdue status is computed against the clock at query time, never
// stored.
func (s *MemberService) Overdue(ctx context.Context) ([]model.Member, error) {
	members, err := s.store.OverdueMembers(ctx)
	if err != nil {
		return nil, Infra(err, "failed to list overdue members")
	}
	return members, nil
}

// BorrowedBooks lists the books a member currently holds.
func (s *MemberService) BorrowedBooks(ctx context.Context, memberID uint64) ([]model.Book, error) {
	if _, err := s.Get(ctx, memberID); err != nil {
		return nil, err
	}
	books, err := s.store.BorrowedBooks(ctx, memberID)
	if err != nil {
		return nil, Infra(err, "failed to list borrowed books")
	}
	return books, nil
}

// Stats reports total, active and inactive member counts.
func (s *MemberService) Stats(ctx context.Context) (total, active int64, err error) {
	total, active, err = s.store.MemberTotals(ctx)
	if err != nil {
		return 0, 0, Infra(err, "failed to count members")
	}
	return total, active, nil
}
