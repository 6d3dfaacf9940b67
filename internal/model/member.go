package model

import "time"

// Member represents a library member stored in the `members` table.
// The set of books a member currently holds is the reverse side of
// Book.BorrowedByID; the two are maintained in lock-step inside the
// lending service's transactions so that every book in BorrowedBookIDs
// points back at this member.
//
// Fields:
//  ID              – primary key identifier of the member.
//  Name            – display name (2 to 50 characters).
//  Email           – unique contact address used as the lookup key.
//  Phone           – optional phone number.
//  Active          – whether the membership is active.  A member can
//                    only be deactivated while holding no books.
//  MembershipDate  – when the membership started.
//  BorrowedBookIDs – ids of books currently held, populated on reads.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Member struct {
	ID              uint64    // members.id
	Name            string    // members.name
	Email           string    // members.email (unique)
	Phone           string    // members.phone (may be empty)
	Active          bool      // members.is_active
	MembershipDate  time.Time // members.membership_date
	BorrowedBookIDs []uint64  // derived from books.borrowed_by_member_id
	CreatedAt       time.Time // members.created_at
	UpdatedAt       time.Time // members.updated_at
}
