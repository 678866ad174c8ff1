package stats

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Overview struct {
	Users           int64   `db:"users" json:"users"`
	Books           int64   `db:"books" json:"books"`
	Copies          int64   `db:"copies" json:"copies"`
	OpenLoans       int64   `db:"open_loans" json:"open_loans"`
	OverdueLoans    int64   `db:"overdue_loans" json:"overdue_loans"`
	UnpaidFineTotal float64 `db:"unpaid_fine_total" json:"unpaid_fine_total"`
}

type CategoryRow struct {
	Category    string `db:"category" json:"category"`
	BorrowCount int64  `db:"borrow_count" json:"borrow_count"`
	BookCount   int64  `db:"book_count" json:"book_count"`
}

type TopBookRow struct {
	BookID      int64    `db:"book_id" json:"book_id"`
	Title       string   `db:"title" json:"title"`
	Author      *string  `db:"author" json:"author,omitempty"`
	Category    *string  `db:"category" json:"category,omitempty"`
	BorrowCount int64    `db:"borrow_count" json:"borrow_count"`
	AvgLoanDays *float64 `db:"avg_loan_days" json:"avg_loan_days,omitempty"`
}

type LoanRecord struct {
	LoanID     int64      `db:"loan_id" json:"loan_id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	Title      string     `db:"title" json:"title"`
	BorrowerID int64      `db:"borrower_id" json:"borrower_id"`
	Borrower   string     `db:"borrower" json:"borrower"`
	BorrowedAt time.Time  `db:"borrowed_at" json:"borrowed_at"`
	DueAt      time.Time  `db:"due_at" json:"due_at"`
	ReturnAt   *time.Time `db:"return_at" json:"return_at,omitempty"`
	Status     string     `db:"status" json:"status"`
}

type Repo interface {
	Overview(ctx context.Context) (*Overview, error)
	CategoryStats(ctx context.Context) ([]CategoryRow, error)
	TopBooks(ctx context.Context, category string, limit int) ([]TopBookRow, error)
	LoanRecords(ctx context.Context, limit, offset int) ([]LoanRecord, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) Overview(ctx context.Context) (*Overview, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM users)  AS users,
			(SELECT COUNT(*) FROM books)  AS books,
			(SELECT COUNT(*) FROM copies WHERE removed_at IS NULL) AS copies,
			(SELECT COUNT(*) FROM loans WHERE return_at IS NULL) AS open_loans,
			(SELECT COUNT(*) FROM loans WHERE return_at IS NULL AND due_at < NOW()) AS overdue_loans,
			(SELECT COALESCE(SUM(amount), 0) FROM fines WHERE NOT paid) AS unpaid_fine_total`
	var o Overview
	if err := r.db.GetContext(ctx, &o, q); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) CategoryStats(ctx context.Context) ([]CategoryRow, error) {
	const q = `
		SELECT
			COALESCE(b.category, 'Uncategorized') AS category,
			COUNT(l.id) AS borrow_count,
			COUNT(DISTINCT b.id) AS book_count
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id
		LEFT JOIN loans l ON l.copy_id = c.id
		GROUP BY b.category
		ORDER BY borrow_count DESC`
	var out []CategoryRow
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) TopBooks(ctx context.Context, category string, limit int) ([]TopBookRow, error) {
	q := `
		SELECT
			b.id AS book_id,
			b.title, b.author, b.category,
			COUNT(l.id) AS borrow_count,
			AVG(CASE
				WHEN l.return_at IS NOT NULL
				THEN EXTRACT(EPOCH FROM (l.return_at - l.borrowed_at)) / 86400
			END) AS avg_loan_days
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id
		LEFT JOIN loans l ON l.copy_id = c.id`
	var args []any
	if category != "" && category != "all" {
		q += ` WHERE b.category = $1
		GROUP BY b.id
		ORDER BY borrow_count DESC
		LIMIT $2`
		args = []any{category, limit}
	} else {
		q += `
		GROUP BY b.id
		ORDER BY borrow_count DESC
		LIMIT $1`
		args = []any{limit}
	}

	var out []TopBookRow
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) LoanRecords(ctx context.Context, limit, offset int) ([]LoanRecord, error) {
	const q = `
		SELECT
			l.id AS loan_id,
			c.book_id,
			b.title,
			l.borrower_id,
			u.username AS borrower,
			l.borrowed_at, l.due_at, l.return_at,
			CASE
				WHEN l.return_at IS NOT NULL THEN 'returned'
				WHEN l.due_at < NOW() THEN 'overdue'
				ELSE 'borrowed'
			END AS status
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		JOIN users u ON u.id = l.borrower_id
		ORDER BY l.borrowed_at DESC, l.id DESC
		LIMIT $1 OFFSET $2`
	var out []LoanRecord
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}
