package service

import (
	"context"
	"errors"

	"github.com/iliyamo/library-lending/internal/model"
)

// Sentinel errors that store implementations return so the services can
// translate them into domain failures.  Anything else coming out of a
// store is treated as retryable infrastructure trouble.
var (
	ErrBookNotFound      = errors.New("book not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateISBN     = errors.New("isbn already exists")
)

// LendingTx is the transactional view of the lending store.  Every
// method called on one LendingTx participates in the same atomic unit:
// either the whole engine operation commits or none of it does.
// Implementations must serialize concurrent mutations of the same book
// and the same member (row locks in SQL, a store-wide mutex in memory)
// so that two concurrent borrows of one available book produce exactly
// one winner.
type LendingTx interface {
	// BookForUpdate loads a book and locks it for the remainder of
	// the transaction.  Returns ErrBookNotFound when absent.
	BookForUpdate(ctx context.Context, id uint64) (model.Book, error)
	// SaveBook persists all mutable book fields including the
	// borrower reference and loan timestamps.
	SaveBook(ctx context.Context, b model.Book) error
	// MemberByEmail loads and locks a member by contact key.
	// Returns ErrMemberNotFound when absent.
	MemberByEmail(ctx context.Context, email string) (model.Member, error)
	// MemberForUpdate loads and locks a member by id.
	MemberForUpdate(ctx context.Context, id uint64) (model.Member, error)
	// CreateMember inserts a new member.  The contact key is guarded
	// by a unique constraint; a losing racer gets ErrDuplicateEmail
	// and must re-read instead of inserting a duplicate.
	CreateMember(ctx context.Context, m model.Member) (model.Member, error)
	// SaveMember persists mutable member fields (name, active flag,
	// held set on stores that materialize it).
	SaveMember(ctx context.Context, m model.Member) error
	// HeldBookCount reports how many books the member currently holds.
	HeldBookCount(ctx context.Context, memberID uint64) (int, error)
}

// LendingStore is the persistence contract consumed by the lending and
// member services.  Reads outside WithinTx see committed state only.
type LendingStore interface {
	// WithinTx runs fn inside one atomic unit.  A non-nil error from
	// fn rolls every change back.
	WithinTx(ctx context.Context, fn func(tx LendingTx) error) error

	GetBook(ctx context.Context, id uint64) (model.Book, error)
	ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error)
	SearchBooks(ctx context.Context, keyword string, page, size int) ([]model.Book, int64, error)
	BooksByAuthor(ctx context.Context, author string) ([]model.Book, error)
	CreateBook(ctx context.Context, b model.Book) (model.Book, error)
	ExistsBook(ctx context.Context, id uint64) (bool, error)
	DeleteBook(ctx context.Context, id uint64) error
	BookTotals(ctx context.Context) (total, available int64, err error)

	GetMember(ctx context.Context, id uint64) (model.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (model.Member, error)
	ListMembers(ctx context.Context, page, size int, sortBy, sortDir string) ([]model.Member, int64, error)
	SearchMembers(ctx context.Context, name string) ([]model.Member, error)
	ActiveMembers(ctx context.Context) ([]model.Member, error)
	OverdueMembers(ctx context.Context) ([]model.Member, error)
	BorrowedBooks(ctx context.Context, memberID uint64) ([]model.Book, error)
	CreateMember(ctx context.Context, m model.Member) (model.Member, error)
	MemberTotals(ctx context.Context) (total, active int64, err error)
}

// AccountStore is the credential store contract consumed by the
// authenticator.
type AccountStore interface {
	// FindByUsername returns ErrAccountNotFound when absent.
	FindByUsername(ctx context.Context, username string) (model.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create returns ErrDuplicateUsername or ErrDuplicateEmail when a
	// unique constraint fires.
	Create(ctx context.Context, a model.Account) (model.Account, error)
}

// Notifier receives borrow and return events.  Calls happen strictly
// after the transaction commits; errors are logged and never turn a
// successful lending operation into a failure.
type Notifier interface {
	NotifyBorrowed(memberName, bookTitle string) error
	NotifyReturned(memberName, bookTitle string) error
}
