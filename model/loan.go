package model

import "time"

type LoanStatus string

const (
	LoanOpen     LoanStatus = "OPEN"
	LoanOverdue  LoanStatus = "OVERDUE" // materialized by the sweep, never by request paths
	LoanReturned LoanStatus = "RETURNED"
)

// Loan is one borrow episode. return_at IS NULL is the authoritative "open"
// predicate; Status exists for display and indexed admin queries.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	CopyID     int64      `db:"copy_id" json:"copy_id"`
	BorrowerID int64      `db:"borrower_id" json:"borrower_id"`
	BorrowedAt time.Time  `db:"borrowed_at" json:"borrowed_at"`
	DueAt      time.Time  `db:"due_at" json:"due_at"`
	ReturnAt   *time.Time `db:"return_at" json:"return_at,omitempty"`
	Status     LoanStatus `db:"status" json:"status"`
}

func (l Loan) Open() bool { return l.ReturnAt == nil }

func (l Loan) OverdueAt(now time.Time) bool {
	return l.Open() && now.After(l.DueAt)
}
