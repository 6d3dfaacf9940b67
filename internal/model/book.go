package model

import "time"

// Book represents a catalog entry stored in the `books` table.
// Availability and the borrower reference move together: a book is
// available exactly when borrowed_by_member_id is NULL, and the
// borrowed/due timestamps are set exactly when it is not.  The
// lending service is the only writer allowed to change these fields,
// and it always changes both sides of the relation in one transaction.
//
// Fields:
//  ID             – primary key identifier of the book.
//  Title          – book title (non-blank, at most 100 characters).
//  Author         – book author (non-blank, at most 50 characters).
//  ISBN           – optional unique catalog code (nullable).
//  Available      – whether the book can currently be borrowed.
//  BorrowedByID   – member currently holding the book (nullable).
//  BorrowedByName – display name of that member, populated on reads.
//  BorrowedDate   – when the current loan started (nullable).
//  DueDate        – when the current loan is due back (nullable).
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Book struct {
	ID             uint64     // books.id
	Title          string     // books.title
	Author         string     // books.author
	ISBN           *string    // books.isbn (nullable, unique when set)
	Available      bool       // books.is_available
	BorrowedByID   *uint64    // books.borrowed_by_member_id (nullable)
	BorrowedByName *string    // joined from members.name, not a column
	BorrowedDate   *time.Time // books.borrowed_date (nullable)
	DueDate        *time.Time // books.due_date (nullable)
	CreatedAt      time.Time  // books.created_at
	UpdatedAt      time.Time  // books.updated_at
}

// OverdueAt reports whether the book is overdue at the given instant.
// A book is overdue when it has a due date strictly before now.  The
// result is recomputed on every call and never stored.
func (b Book) OverdueAt(now time.Time) bool {
	return b.DueDate != nil && now.After(*b.DueDate)
}

// Overdue reports whether the book is overdue right now (UTC).
func (b Book) Overdue() bool {
	return b.OverdueAt(time.Now().UTC())
}
