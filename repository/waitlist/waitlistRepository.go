package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
)

type Row struct {
	WaitlistID  int64     `db:"waitlist_id" json:"waitlist_id"`
	BookID      int64     `db:"book_id" json:"book_id"`
	Title       string    `db:"title" json:"title"`
	Author      *string   `db:"author" json:"author,omitempty"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}

type Repo interface {
	Insert(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, requestedAt time.Time) (int64, error)
	Exists(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)

	// HasEntryForBook gates renewal: any active entry blocks it.
	HasEntryForBook(ctx context.Context, tx *sqlx.Tx, bookID int64) (bool, error)

	// PeekHead returns the earliest entry for the book, or nil. Advisory
	// read used by the return path; the entry is not consumed.
	PeekHead(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error)

	GetForUpdate(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error)
	Delete(ctx context.Context, tx *sqlx.Tx, entryID int64) error

	ListMine(ctx context.Context, userID int64) ([]Row, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, requestedAt time.Time) (int64, error) {
	const q = `
		INSERT INTO waitlist (user_id, book_id, requested_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, bookID, requestedAt).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) Exists(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM waitlist WHERE user_id = $1 AND book_id = $2)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) HasEntryForBook(ctx context.Context, tx *sqlx.Tx, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM waitlist WHERE book_id = $1)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) PeekHead(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error) {
	const q = `
		SELECT id, user_id, book_id, requested_at
		FROM waitlist
		WHERE book_id = $1
		ORDER BY requested_at, id
		LIMIT 1`
	var e model.WaitlistEntry
	err := tx.GetContext(ctx, &e, q, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error) {
	const q = `
		SELECT id, user_id, book_id, requested_at
		FROM waitlist
		WHERE id = $1
		FOR UPDATE`
	var e model.WaitlistEntry
	if err := tx.GetContext(ctx, &e, q, entryID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) Delete(ctx context.Context, tx *sqlx.Tx, entryID int64) error {
	const q = `DELETE FROM waitlist WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, entryID)
	return err
}

func (r *repo) ListMine(ctx context.Context, userID int64) ([]Row, error) {
	const q = `
		SELECT
			w.id           AS waitlist_id,
			w.book_id      AS book_id,
			b.title        AS title,
			b.author       AS author,
			w.requested_at AS requested_at
		FROM waitlist w
		JOIN books b ON b.id = w.book_id
		WHERE w.user_id = $1
		ORDER BY w.requested_at DESC`
	var out []Row
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}
