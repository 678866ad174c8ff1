package loan

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
)

// LockedLoan is the row shape used by return/renew: the loan plus the book
// it resolves to through its copy. Only the loan row itself is locked.
type LockedLoan struct {
	model.Loan
	BookID    int64  `db:"book_id"`
	BookTitle string `db:"book_title"`
}

type HistoryRow struct {
	LoanID        int64      `db:"loan_id" json:"loan_id"`
	BookID        int64      `db:"book_id" json:"book_id"`
	Title         string     `db:"title" json:"title"`
	Author        *string    `db:"author" json:"author,omitempty"`
	BorrowedAt    time.Time  `db:"borrowed_at" json:"borrowed_at"`
	DueAt         time.Time  `db:"due_at" json:"due_at"`
	ReturnAt      *time.Time `db:"return_at" json:"return_at,omitempty"`
	DisplayStatus string     `db:"display_status" json:"status"`
}

type Repo interface {
	Insert(ctx context.Context, tx *sqlx.Tx, copyID, borrowerID int64, borrowedAt, dueAt time.Time) (int64, error)
	HasOpenLoanForBook(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)

	GetForUpdate(ctx context.Context, tx *sqlx.Tx, loanID int64) (*LockedLoan, error)
	MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnAt time.Time) error
	UpdateDueAt(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error

	ListMine(ctx context.Context, userID int64) ([]HistoryRow, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, copyID, borrowerID int64, borrowedAt, dueAt time.Time) (int64, error) {
	const q = `
		INSERT INTO loans (copy_id, borrower_id, borrowed_at, due_at, status)
		VALUES ($1, $2, $3, $4, 'OPEN')
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, copyID, borrowerID, borrowedAt, dueAt).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) HasOpenLoanForBook(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM loans l
			JOIN copies c ON c.id = l.copy_id
			WHERE l.borrower_id = $1 AND c.book_id = $2 AND l.return_at IS NULL
		)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, loanID int64) (*LockedLoan, error) {
	// Row lock on the loan serializes concurrent return/renew on the same
	// loan; the second caller observes the first's committed state.
	const q = `
		SELECT l.id, l.copy_id, l.borrower_id, l.borrowed_at, l.due_at, l.return_at, l.status,
		       c.book_id AS book_id, b.title AS book_title
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		WHERE l.id = $1
		FOR UPDATE OF l`
	var row LockedLoan
	if err := tx.GetContext(ctx, &row, q, loanID); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnAt time.Time) error {
	const q = `
		UPDATE loans
		SET return_at = $2, status = 'RETURNED'
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, loanID, returnAt)
	return err
}

func (r *repo) UpdateDueAt(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error {
	// A renewal pushes the deadline out, so any OVERDUE flag a sweep
	// materialized against the old deadline is stale. Reset it here rather
	// than waiting for the next sweep.
	const q = `
		UPDATE loans
		SET due_at = $2, status = 'OPEN'
		WHERE id = $1 AND return_at IS NULL`
	_, err := tx.ExecContext(ctx, q, loanID, dueAt)
	return err
}

func (r *repo) ListMine(ctx context.Context, userID int64) ([]HistoryRow, error) {
	const q = `
		SELECT
			l.id          AS loan_id,
			c.book_id     AS book_id,
			b.title       AS title,
			b.author      AS author,
			l.borrowed_at AS borrowed_at,
			l.due_at      AS due_at,
			l.return_at   AS return_at,
			CASE
				WHEN l.return_at IS NOT NULL THEN 'returned'
				WHEN l.due_at < NOW() THEN 'overdue'
				ELSE 'borrowed'
			END AS display_status
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		JOIN books b ON b.id = c.book_id
		WHERE l.borrower_id = $1
		ORDER BY l.borrowed_at DESC, l.id DESC`
	var out []HistoryRow
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOverdue is the idempotent sweep: it recomputes the materialized flag
// from return_at/due_at in both directions, so a loan renewed after a sweep
// drops back to OPEN on the next pass and rerunning is always harmless.
// Decision paths never read the flag; it exists for admin-side SQL only.
func (r *repo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE loans
		SET status = CASE WHEN due_at < $1 THEN 'OVERDUE' ELSE 'OPEN' END
		WHERE return_at IS NULL
		  AND status <> CASE WHEN due_at < $1 THEN 'OVERDUE' ELSE 'OPEN' END`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
