package review

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
)

type Row struct {
	ReviewID  int64     `db:"review_id" json:"review_id"`
	BookID    int64     `db:"book_id" json:"book_id"`
	Title     string    `db:"title" json:"title"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Repo interface {
	// HasReturnedLoan gates reviewing: only borrowers who returned the book
	// may review it.
	HasReturnedLoan(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
	Upsert(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, rating int, comment *string) error
	Get(ctx context.Context, tx *sqlx.Tx, reviewID int64) (*model.Review, error)
	Update(ctx context.Context, tx *sqlx.Tx, reviewID int64, rating *int, comment *string) error
	Delete(ctx context.Context, tx *sqlx.Tx, reviewID int64) error

	// RecalcAverage rewrites book_statistics.average_rating from the review
	// rows, the single source of truth.
	RecalcAverage(ctx context.Context, tx *sqlx.Tx, bookID int64) error

	ListForBook(ctx context.Context, bookID int64) ([]model.Review, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) HasReturnedLoan(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM loans l
			JOIN copies c ON c.id = l.copy_id
			WHERE l.borrower_id = $1 AND c.book_id = $2 AND l.return_at IS NOT NULL
		)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) Upsert(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, rating int, comment *string) error {
	const q = `
		INSERT INTO reviews (reviewer_id, book_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reviewer_id, book_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = NOW()`
	_, err := tx.ExecContext(ctx, q, userID, bookID, rating, comment)
	return err
}

func (r *repo) Get(ctx context.Context, tx *sqlx.Tx, reviewID int64) (*model.Review, error) {
	const q = `
		SELECT id, reviewer_id, book_id, rating, comment, created_at
		FROM reviews
		WHERE id = $1`
	var rv model.Review
	if err := tx.GetContext(ctx, &rv, q, reviewID); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *repo) Update(ctx context.Context, tx *sqlx.Tx, reviewID int64, rating *int, comment *string) error {
	const q = `
		UPDATE reviews
		SET rating = COALESCE($2, rating),
		    comment = COALESCE($3, comment)
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, reviewID, rating, comment)
	return err
}

func (r *repo) Delete(ctx context.Context, tx *sqlx.Tx, reviewID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	return err
}

func (r *repo) RecalcAverage(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	const q = `
		INSERT INTO book_statistics (book_id, times_borrowed, average_rating)
		VALUES ($1, 0, (SELECT AVG(rating) FROM reviews WHERE book_id = $1))
		ON CONFLICT (book_id)
		DO UPDATE SET average_rating = (SELECT AVG(rating) FROM reviews WHERE book_id = $1)`
	_, err := tx.ExecContext(ctx, q, bookID)
	return err
}

func (r *repo) ListForBook(ctx context.Context, bookID int64) ([]model.Review, error) {
	const q = `
		SELECT id, reviewer_id, book_id, rating, comment, created_at
		FROM reviews
		WHERE book_id = $1
		ORDER BY created_at DESC`
	var out []model.Review
	if err := r.db.SelectContext(ctx, &out, q, bookID); err != nil {
		return nil, err
	}
	return out, nil
}
