package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/library-lending/internal/config"
	"github.com/iliyamo/library-lending/internal/model"
)

// memberEmailDomain is appended when a borrow request carries only a
// display name and the contact key has to be derived from it.  Clients
// that send an explicit member_email bypass the derivation entirely.
const memberEmailDomain = "library.com"

// LendingService orchestrates borrow and return transitions against the
// lending store.  Every mutation runs inside one store transaction so
// the book side and the member side of the relation change together or
// not at all.  The loan duration is fixed at construction time and is
// never taken from the caller.
type LendingService struct {
	store    LendingStore
	notifier Notifier
	cfg      config.Config
	now      func() time.Time
}

// NewLendingService builds a LendingService.  The notifier may be nil,
// in which case events are silently dropped.
func NewLendingService(store LendingStore, notifier Notifier, cfg config.Config) *LendingService {
	if store == nil {
		panic("nil store passed to NewLendingService")
	}
	return &LendingService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LendingResult is the confirmation returned by Borrow and Return.
type LendingResult struct {
	BookID     uint64
	BookTitle  string
	MemberName string
	DueDate    *time.Time // set on borrow, nil on return
}

// Borrow lends a book to a member for the configured loan period.  The
// member is resolved by contact key (explicit memberEmail when given,
// otherwise derived from memberName) and created on first borrow.  The
// whole transition is atomic; concurrent borrows of the same available
// book produce exactly one success, the rest get an AlreadyBorrowed
// conflict.  The borrow notification is sent after the commit and its
// failure never fails the call.
func (s *LendingService) Borrow(ctx context.Context, bookID uint64, memberName, memberEmail string) (LendingResult, error) {
	name, err := validMemberName(memberName)
	if err != nil {
		return LendingResult{}, err
	}
	key, err := contactKey(name, memberEmail)
	if err != nil {
		return LendingResult{}, err
	}

	var res LendingResult
	txErr := s.store.WithinTx(ctx, func(tx LendingTx) error {
		b, err := tx.BookForUpdate(ctx, bookID)
		if err != nil {
			if errors.Is(err, ErrBookNotFound) {
				return NotFound("book with ID %d not found", bookID)
			}
			return Infra(err, "failed to load book")
		}
		if !b.Available {
			return Conflict(CodeAlreadyBorrowed, "book '%s' is not available for borrowing", b.Title)
		}

		m, err := s.resolveMember(ctx, tx, name, key)
		if err != nil {
			return err
		}

		now := s.now()
		due := now.Add(time.Duration(s.cfg.LoanPeriodDays) * 24 * time.Hour)
		b.Available = false
		b.BorrowedByID = &m.ID
		b.BorrowedDate = &now
		b.DueDate = &due
		if err := tx.SaveBook(ctx, b); err != nil {
			return Infra(err, "failed to save book")
		}
		// Keep the reverse side of the relation in lock-step.
		m.BorrowedBookIDs = append(m.BorrowedBookIDs, b.ID)
		if err := tx.SaveMember(ctx, m); err != nil {
			return Infra(err, "failed to save member")
		}

		res = LendingResult{BookID: b.ID, BookTitle: b.Title, MemberName: m.Name, DueDate: &due}
		return nil
	})
	if txErr != nil {
		return LendingResult{}, txErr
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyBorrowed(name, res.BookTitle); err != nil {
			log.Printf("notifier: borrow event dropped: %v", err)
		}
	}
	return res, nil
}

// Return gives a borrowed book back.  The supplied memberName is
// advisory: it flows into the notification message but the book is
// returned on behalf of whoever the store has recorded as the current
// borrower.  Returning an available book yields a NotBorrowed conflict
// and leaves state untouched.
func (s *LendingService) Return(ctx context.Context, bookID uint64, memberName string) (LendingResult, error) {
	name, err := validMemberName(memberName)
	if err != nil {
		return LendingResult{}, err
	}

	var res LendingResult
	txErr := s.store.WithinTx(ctx, func(tx LendingTx) error {
		b, err := tx.BookForUpdate(ctx, bookID)
		if err != nil {
			if errors.Is(err, ErrBookNotFound) {
				return NotFound("book with ID %d not found", bookID)
			}
			return Infra(err, "failed to load book")
		}
		if b.Available || b.BorrowedByID == nil {
			return Conflict(CodeNotBorrowed, "book '%s' was not borrowed", b.Title)
		}

		m, err := tx.MemberForUpdate(ctx, *b.BorrowedByID)
		if err != nil && !errors.Is(err, ErrMemberNotFound) {
			return Infra(err, "failed to load member")
		}
		if err == nil {
			m.BorrowedBookIDs = removeID(m.BorrowedBookIDs, b.ID)
			if err := tx.SaveMember(ctx, m); err != nil {
				return Infra(err, "failed to save member")
			}
		}

		b.Available = true
		b.BorrowedByID = nil
		b.BorrowedByName = nil
		b.BorrowedDate = nil
		b.DueDate = nil
		if err := tx.SaveBook(ctx, b); err != nil {
			return Infra(err, "failed to save book")
		}

		res = LendingResult{BookID: b.ID, BookTitle: b.Title, MemberName: name}
		return nil
	})
	if txErr != nil {
		return LendingResult{}, txErr
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyReturned(name, res.BookTitle); err != nil {
			log.Printf("notifier: return event dropped: %v", err)
		}
	}
	return res, nil
}

// DeactivateMember marks a member inactive.  Members holding books
// cannot be deactivated; repeating the call on an already inactive
// member succeeds.
func (s *LendingService) DeactivateMember(ctx context.Context, memberID uint64) error {
	return s.store.WithinTx(ctx, func(tx LendingTx) error {
		m, err := tx.MemberForUpdate(ctx, memberID)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				return NotFound("member with ID %d not found", memberID)
			}
			return Infra(err, "failed to load member")
		}
		n, err := tx.HeldBookCount(ctx, memberID)
		if err != nil {
			return Infra(err, "failed to count borrowed books")
		}
		if n > 0 {
			return Conflict(CodeHasBorrowedBooks, "cannot deactivate member with borrowed books")
		}
		m.Active = false
		if err := tx.SaveMember(ctx, m); err != nil {
			return Infra(err, "failed to save member")
		}
		return nil
	})
}

// CreateBook adds a book to the catalog after validating the request
// fields.  An optional ISBN must be unique across the catalog.
func (s *LendingService) CreateBook(ctx context.Context, title, author, isbn string) (model.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	isbn = strings.TrimSpace(isbn)
	if title == "" {
		return model.Book{}, Invalid("title", "title is required")
	}
	if len(title) > 100 {
		return model.Book{}, Invalid("title", "title must be less than 100 characters")
	}
	if author == "" {
		return model.Book{}, Invalid("author", "author is required")
	}
	if len(author) > 50 {
		return model.Book{}, Invalid("author", "author name must be less than 50 characters")
	}
	b := model.Book{Title: title, Author: author, Available: true}
	if isbn != "" {
		b.ISBN = &isbn
	}
	created, err := s.store.CreateBook(ctx, b)
	if err != nil {
		if errors.Is(err, ErrDuplicateISBN) {
			return model.Book{}, Conflict(CodeDuplicateISBN, "book with ISBN %s already exists", isbn)
		}
		return model.Book{}, Infra(err, "failed to create book")
	}
	return created, nil
}

// DeleteBook removes a book from the catalog.
func (s *LendingService) DeleteBook(ctx context.Context, id uint64) error {
	ok, err := s.store.ExistsBook(ctx, id)
	if err != nil {
		return Infra(err, "failed to check book")
	}
	if !ok {
		return NotFound("book with ID %d not found", id)
	}
	if err := s.store.DeleteBook(ctx, id); err != nil {
		return Infra(err, "failed to delete book")
	}
	return nil
}

// GetBook loads a single book.
func (s *LendingService) GetBook(ctx context.Context, id uint64) (model.Book, error) {
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return model.Book{}, NotFound("book with ID %d not found", id)
		}
		return model.Book{}, Infra(err, "failed to load book")
	}
	return b, nil
}

// ListBooks returns the catalog, optionally restricted to available books.
func (s *LendingService) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	books, err := s.store.ListBooks(ctx, onlyAvailable)
	if err != nil {
		return nil, Infra(err, "failed to list books")
	}
	return books, nil
}

// SearchBooks finds books whose title or author contains the keyword.
// Page numbering starts at zero; size is clamped to a sane range.
func (s *LendingService) SearchBooks(ctx context.Context, keyword string, page, size int) ([]model.Book, int64, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 10
	}
	books, total, err := s.store.SearchBooks(ctx, strings.TrimSpace(keyword), page, size)
	if err != nil {
		return nil, 0, Infra(err, "failed to search books")
	}
	return books, total, nil
}

// BooksByAuthor returns all books by the given author.
func (s *LendingService) BooksByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	books, err := s.store.BooksByAuthor(ctx, strings.TrimSpace(author))
	if err != nil {
		return nil, Infra(err, "failed to list books by author")
	}
	return books, nil
}

// LibraryInfo renders the welcome line with current catalog totals and
// the library's lending policy.
func (s *LendingService) LibraryInfo(ctx context.Context) (string, error) {
	total, available, err := s.store.BookTotals(ctx)
	if err != nil {
		return "", Infra(err, "failed to count books")
	}
	return fmt.Sprintf("Welcome to %s! We have %d books total, %d available. "+
		"You can borrow up to %d books. Late fee: $%.2f per day.",
		s.cfg.LibraryName, total, available, s.cfg.MaxBooksPerMember, s.cfg.LateFeePerDay), nil
}

// resolveMember finds the member for a contact key or creates one on
// first borrow.  Creation races are settled by the unique constraint on
// the contact key: the loser re-reads the winner's row instead of
// inserting a duplicate.
func (s *LendingService) resolveMember(ctx context.Context, tx LendingTx, name, key string) (model.Member, error) {
	m, err := tx.MemberByEmail(ctx, key)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrMemberNotFound) {
		return model.Member{}, Infra(err, "failed to load member")
	}
	created, err := tx.CreateMember(ctx, model.Member{Name: name, Email: key, Active: true})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrDuplicateEmail) {
		m, err = tx.MemberByEmail(ctx, key)
		if err == nil {
			return m, nil
		}
	}
	return model.Member{}, Infra(err, "failed to create member")
}

// validMemberName trims and checks the 2..50 character rule shared by
// borrow and return requests.
func validMemberName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid("member_name", "member name is required")
	}
	if len(name) < 2 || len(name) > 50 {
		return "", Invalid("member_name", "member name must be between 2 and 50 characters")
	}
	return name, nil
}

// contactKey picks the member lookup key.  An explicit email wins; a
// missing one falls back to the historical derivation from the display
// name, which keeps old clients working but can collide on common
// names.
func contactKey(name, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if !strings.Contains(email, "@") {
			return "", Invalid("member_email", "member email is invalid")
		}
		return email, nil
	}
	slug := strings.ToLower(strings.Join(strings.Fields(name), "."))
	return slug + "@" + memberEmailDomain, nil
}

// removeID drops one occurrence of id from ids.
func removeID(ids []uint64, id uint64) []uint64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
