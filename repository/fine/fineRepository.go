package fine

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
)

type Row struct {
	FineID   int64      `db:"fine_id" json:"fine_id"`
	LoanID   int64      `db:"loan_id" json:"loan_id"`
	Amount   float64    `db:"amount" json:"amount"`
	Paid     bool       `db:"paid" json:"paid"`
	IssuedAt time.Time  `db:"issued_at" json:"issued_at"`
	PaidAt   *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	BookID   *int64     `db:"book_id" json:"book_id,omitempty"`
	Title    *string    `db:"title" json:"title,omitempty"`
	Author   *string    `db:"author" json:"author,omitempty"`
}

type Repo interface {
	// UnpaidTotal reads inside the borrow transaction so the gate check and
	// the loan insert share one consistent snapshot.
	UnpaidTotal(ctx context.Context, tx *sqlx.Tx, userID int64) (float64, error)
	Insert(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error

	GetForUpdate(ctx context.Context, tx *sqlx.Tx, fineID int64) (*model.Fine, error)
	MarkPaid(ctx context.Context, tx *sqlx.Tx, fineID int64, paidAt time.Time) error

	ListMine(ctx context.Context, userID int64) ([]Row, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) UnpaidTotal(ctx context.Context, tx *sqlx.Tx, userID int64) (float64, error) {
	const q = `
		SELECT COALESCE(SUM(amount), 0)
		FROM fines
		WHERE user_id = $1 AND NOT paid`
	var total float64
	err := tx.QueryRowContext(ctx, q, userID).Scan(&total)
	return total, err
}

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error {
	const q = `
		INSERT INTO fines (loan_id, user_id, amount, paid, issued_at)
		VALUES ($1, $2, $3, FALSE, $4)`
	_, err := tx.ExecContext(ctx, q, loanID, userID, amount, issuedAt)
	return err
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, fineID int64) (*model.Fine, error) {
	const q = `
		SELECT id, loan_id, user_id, amount, paid, issued_at, paid_at
		FROM fines
		WHERE id = $1
		FOR UPDATE`
	var f model.Fine
	if err := tx.GetContext(ctx, &f, q, fineID); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repo) MarkPaid(ctx context.Context, tx *sqlx.Tx, fineID int64, paidAt time.Time) error {
	const q = `
		UPDATE fines
		SET paid = TRUE, paid_at = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, fineID, paidAt)
	return err
}

func (r *repo) ListMine(ctx context.Context, userID int64) ([]Row, error) {
	const q = `
		SELECT
			f.id        AS fine_id,
			f.loan_id   AS loan_id,
			f.amount    AS amount,
			f.paid      AS paid,
			f.issued_at AS issued_at,
			f.paid_at   AS paid_at,
			c.book_id   AS book_id,
			b.title     AS title,
			b.author    AS author
		FROM fines f
		LEFT JOIN loans l ON l.id = f.loan_id
		LEFT JOIN copies c ON c.id = l.copy_id
		LEFT JOIN books b ON b.id = c.book_id
		WHERE f.user_id = $1
		ORDER BY f.issued_at DESC`
	var out []Row
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}
