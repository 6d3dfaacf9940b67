// Package repository contains the MySQL-backed stores consumed by the
// service layer, plus in-memory counterparts used in tests.  Tables:
//
//	books(id, title, author, isbn UNIQUE NULL, is_available,
//	      borrowed_by_member_id NULL REFERENCES members(id),
//	      borrowed_date NULL, due_date NULL, created_at, updated_at)
//	members(id, name, email UNIQUE, phone, is_active,
//	        membership_date, created_at, updated_at)
//	users(id, username UNIQUE, password_hash, email UNIQUE, roles,
//	      created_at, updated_at)
//
// All timestamps are stored in UTC.  The member side of the lending
// relation is the borrowed_by_member_id column, so referential symmetry
// between a book and its borrower holds by construction; held sets are
// derived from it on reads.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/service"
)

// LendingStore implements service.LendingStore on MySQL.
type LendingStore struct {
	db *sql.DB
}

// NewLendingStore returns a LendingStore bound to the given database.
func NewLendingStore(db *sql.DB) *LendingStore { return &LendingStore{db: db} }

// bookCols is the column list shared by all book selects that join the
// borrower's name.
const bookCols = `b.id, b.title, b.author, b.isbn, b.is_available,
       b.borrowed_by_member_id, m.name, b.borrowed_date, b.due_date,
       b.created_at, b.updated_at`

const bookFrom = ` FROM books b LEFT JOIN members m ON m.id = b.borrowed_by_member_id`

// memberCols is the column list shared by all member selects.
const memberCols = `id, name, email, phone, is_active, membership_date, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row scanner) (model.Book, error) {
	var (
		b      model.Book
		isbn   sql.NullString
		byID   sql.NullInt64
		byName sql.NullString
		bDate  sql.NullTime
		dDate  sql.NullTime
	)
	err := row.Scan(&b.ID, &b.Title, &b.Author, &isbn, &b.Available,
		&byID, &byName, &bDate, &dDate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Book{}, err
	}
	if isbn.Valid {
		v := isbn.String
		b.ISBN = &v
	}
	if byID.Valid {
		v := uint64(byID.Int64)
		b.BorrowedByID = &v
	}
	if byName.Valid {
		v := byName.String
		b.BorrowedByName = &v
	}
	if bDate.Valid {
		v := bDate.Time
		b.BorrowedDate = &v
	}
	if dDate.Valid {
		v := dDate.Time
		b.DueDate = &v
	}
	return b, nil
}

func scanMember(row scanner) (model.Member, error) {
	var (
		m     model.Member
		phone sql.NullString
	)
	err := row.Scan(&m.ID, &m.Name, &m.Email, &phone, &m.Active,
		&m.MembershipDate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Member{}, err
	}
	if phone.Valid {
		m.Phone = phone.String
	}
	return m, nil
}

// dupErr translates a MySQL duplicate-key error (1062) into the store
// sentinel matching the violated unique column.  Non-duplicate errors
// pass through unchanged.
func dupErr(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	switch {
	case strings.Contains(msg, "username"):
		return service.ErrDuplicateUsername
	case strings.Contains(msg, "isbn"):
		return service.ErrDuplicateISBN
	case strings.Contains(msg, "email"):
		return service.ErrDuplicateEmail
	}
	return err
}

// WithinTx runs fn inside a single database transaction.  Row locks
// taken by the tx methods (FOR UPDATE) serialize concurrent mutations
// of the same book or member until commit or rollback.
func (s *LendingStore) WithinTx(ctx context.Context, fn func(tx service.LendingTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&lendingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetBook fetches a book with its borrower's name joined in.
func (s *LendingStore) GetBook(ctx context.Context, id uint64) (model.Book, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookCols+bookFrom+" WHERE b.id=?", id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, service.ErrBookNotFound
	}
	return b, err
}

// ListBooks returns the catalog ordered by id.
func (s *LendingStore) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	q := "SELECT " + bookCols + bookFrom
	if onlyAvailable {
		q += " WHERE b.is_available=1"
	}
	q += " ORDER BY b.id"
	return s.queryBooks(ctx, q)
}

// SearchBooks matches the keyword against title and author with a
// paged LIKE query and returns the total match count alongside.
func (s *LendingStore) SearchBooks(ctx context.Context, keyword string, page, size int) ([]model.Book, int64, error) {
	like := "%" + keyword + "%"
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books WHERE title LIKE ? OR author LIKE ?", like, like).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(ctx,
		"SELECT "+bookCols+bookFrom+" WHERE b.title LIKE ? OR b.author LIKE ? ORDER BY b.id LIMIT ? OFFSET ?",
		like, like, size, page*size)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// BooksByAuthor returns all books with an exact author match.
func (s *LendingStore) BooksByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	return s.queryBooks(ctx, "SELECT "+bookCols+bookFrom+" WHERE b.author=? ORDER BY b.id", author)
}

// CreateBook inserts a book and reads the stored row back so defaults
// and timestamps are populated.
func (s *LendingStore) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	var isbn interface{}
	if b.ISBN != nil {
		isbn = *b.ISBN
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO books (title, author, isbn, is_available) VALUES (?,?,?,1)",
		b.Title, b.Author, isbn)
	if err != nil {
		return model.Book{}, dupErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Book{}, err
	}
	return s.GetBook(ctx, uint64(id))
}

// ExistsBook reports whether a book row exists.
func (s *LendingStore) ExistsBook(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM books WHERE id=?)", id).Scan(&ok)
	return ok, err
}

// DeleteBook removes a book row.
func (s *LendingStore) DeleteBook(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id=?", id)
	return err
}

// BookTotals counts all and available books in one pass.
func (s *LendingStore) BookTotals(ctx context.Context) (total, available int64, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_available),0) FROM books").Scan(&total, &available)
	return total, available, err
}

// GetMember fetches a member with the held book ids populated.
func (s *LendingStore) GetMember(ctx context.Context, id uint64) (model.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberCols+" FROM members WHERE id=?", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, service.ErrMemberNotFound
	}
	if err != nil {
		return model.Member{}, err
	}
	m.BorrowedBookIDs, err = s.heldIDs(ctx, m.ID)
	return m, err
}

// GetMemberByEmail fetches a member by contact address.
func (s *LendingStore) GetMemberByEmail(ctx context.Context, email string) (model.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberCols+" FROM members WHERE email=?", email)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, service.ErrMemberNotFound
	}
	if err != nil {
		return model.Member{}, err
	}
	m.BorrowedBookIDs, err = s.heldIDs(ctx, m.ID)
	return m, err
}

// memberSortCols whitelists the ORDER BY columns for ListMembers.
var memberSortCols = map[string]string{
	"id":              "id",
	"name":            "name",
	"email":           "email",
	"membership_date": "membership_date",
	"created_at":      "created_at",
}

// ListMembers returns one page of members plus the total count.
func (s *LendingStore) ListMembers(ctx context.Context, page, size int, sortBy, sortDir string) ([]model.Member, int64, error) {
	col, ok := memberSortCols[strings.ToLower(sortBy)]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		dir = "DESC"
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&total); err != nil {
		return nil, 0, err
	}
	members, err := s.queryMembers(ctx,
		"SELECT "+memberCols+" FROM members ORDER BY "+col+" "+dir+" LIMIT ? OFFSET ?",
		size, page*size)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// SearchMembers matches the name fragment case-insensitively.
func (s *LendingStore) SearchMembers(ctx context.Context, name string) ([]model.Member, error) {
	return s.queryMembers(ctx,
		"SELECT "+memberCols+" FROM members WHERE LOWER(name) LIKE LOWER(?) ORDER BY id",
		"%"+name+"%")
}

// ActiveMembers lists members whose membership is active.
func (s *LendingStore) ActiveMembers(ctx context.Context) ([]model.Member, error) {
	return s.queryMembers(ctx, "SELECT "+memberCols+" FROM members WHERE is_active=1 ORDER BY id")
}

// OverdueMembers lists members holding at least one book whose due date
// has passed; overdue status is evaluated against the database clock at
// query time.
func (s *LendingStore) OverdueMembers(ctx context.Context) ([]model.Member, error) {
	return s.queryMembers(ctx,
		`SELECT DISTINCT m.id, m.name, m.email, m.phone, m.is_active, m.membership_date, m.created_at, m.updated_at
		   FROM members m
		   JOIN books b ON b.borrowed_by_member_id = m.id
		  WHERE b.due_date IS NOT NULL AND b.due_date < UTC_TIMESTAMP()
		  ORDER BY m.id`)
}

// BorrowedBooks lists the books currently held by a member.
func (s *LendingStore) BorrowedBooks(ctx context.Context, memberID uint64) ([]model.Book, error) {
	return s.queryBooks(ctx,
		"SELECT "+bookCols+bookFrom+" WHERE b.borrowed_by_member_id=? ORDER BY b.id", memberID)
}

// CreateMember inserts a member and reads the stored row back.
func (s *LendingStore) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO members (name, email, phone, is_active, membership_date) VALUES (?,?,?,?,UTC_TIMESTAMP())",
		m.Name, m.Email, m.Phone, m.Active)
	if err != nil {
		return model.Member{}, dupErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Member{}, err
	}
	return s.GetMember(ctx, uint64(id))
}

// MemberTotals counts all and active members in one pass.
func (s *LendingStore) MemberTotals(ctx context.Context) (total, active int64, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_active),0) FROM members").Scan(&total, &active)
	return total, active, err
}

func (s *LendingStore) heldIDs(ctx context.Context, memberID uint64) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM books WHERE borrowed_by_member_id=? ORDER BY id", memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *LendingStore) queryBooks(ctx context.Context, q string, args ...interface{}) ([]model.Book, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *LendingStore) queryMembers(ctx context.Context, q string, args ...interface{}) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]model.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// lendingTx implements service.LendingTx on one *sql.Tx.  Book and
// member loads use FOR UPDATE so the rows stay locked until the engine
// operation commits.
type lendingTx struct {
	tx *sql.Tx
}

const bookColsNoJoin = `id, title, author, isbn, is_available, borrowed_by_member_id, borrowed_date, due_date, created_at, updated_at`

func scanBookNoJoin(row scanner) (model.Book, error) {
	var (
		b     model.Book
		isbn  sql.NullString
		byID  sql.NullInt64
		bDate sql.NullTime
		dDate sql.NullTime
	)
	err := row.Scan(&b.ID, &b.Title, &b.Author, &isbn, &b.Available,
		&byID, &bDate, &dDate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Book{}, err
	}
	if isbn.Valid {
		v := isbn.String
		b.ISBN = &v
	}
	if byID.Valid {
		v := uint64(byID.Int64)
		b.BorrowedByID = &v
	}
	if bDate.Valid {
		v := bDate.Time
		b.BorrowedDate = &v
	}
	if dDate.Valid {
		v := dDate.Time
		b.DueDate = &v
	}
	return b, nil
}

// BookForUpdate locks a single book row for the transaction.  The join
// to members is skipped here on purpose: FOR UPDATE with a JOIN would
// widen the lock to the member row before we know we need it.
func (t *lendingTx) BookForUpdate(ctx context.Context, id uint64) (model.Book, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+bookColsNoJoin+" FROM books WHERE id=? FOR UPDATE", id)
	b, err := scanBookNoJoin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, service.ErrBookNotFound
	}
	return b, err
}

// SaveBook writes every mutable book column including the borrower
// reference and the loan timestamps.
func (t *lendingTx) SaveBook(ctx context.Context, b model.Book) error {
	var (
		isbn  interface{}
		byID  interface{}
		bDate interface{}
		dDate interface{}
	)
	if b.ISBN != nil {
		isbn = *b.ISBN
	}
	if b.BorrowedByID != nil {
		byID = *b.BorrowedByID
	}
	if b.BorrowedDate != nil {
		bDate = *b.BorrowedDate
	}
	if b.DueDate != nil {
		dDate = *b.DueDate
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE books SET title=?, author=?, isbn=?, is_available=?,
		        borrowed_by_member_id=?, borrowed_date=?, due_date=?,
		        updated_at=UTC_TIMESTAMP()
		  WHERE id=?`,
		b.Title, b.Author, isbn, b.Available, byID, bDate, dDate, b.ID)
	return err
}

// MemberByEmail locks the member row for the contact key.
func (t *lendingTx) MemberByEmail(ctx context.Context, email string) (model.Member, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE email=? FOR UPDATE", email)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, service.ErrMemberNotFound
	}
	return m, err
}

// MemberForUpdate locks the member row by id.
func (t *lendingTx) MemberForUpdate(ctx context.Context, id uint64) (model.Member, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE id=? FOR UPDATE", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, service.ErrMemberNotFound
	}
	return m, err
}

// CreateMember inserts inside the transaction; the unique index on
// email turns a concurrent first-borrow race into ErrDuplicateEmail for
// the loser.
func (t *lendingTx) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO members (name, email, phone, is_active, membership_date) VALUES (?,?,?,?,UTC_TIMESTAMP())",
		m.Name, m.Email, m.Phone, m.Active)
	if err != nil {
		return model.Member{}, dupErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Member{}, err
	}
	return t.MemberForUpdate(ctx, uint64(id))
}

// SaveMember writes the member's own columns.  The held set is the FK
// side on books and needs no write here.
func (t *lendingTx) SaveMember(ctx context.Context, m model.Member) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE members SET name=?, phone=?, is_active=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		m.Name, m.Phone, m.Active, m.ID)
	return err
}

// HeldBookCount counts the books currently pointing at the member.
func (t *lendingTx) HeldBookCount(ctx context.Context, memberID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books WHERE borrowed_by_member_id=?", memberID).Scan(&n)
	return n, err
}
