package favorite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type Row struct {
	FavoriteID int64     `db:"favorite_id" json:"favorite_id"`
	BookID     int64     `db:"book_id" json:"book_id"`
	Title      string    `db:"title" json:"title"`
	Author     *string   `db:"author" json:"author,omitempty"`
	Category   *string   `db:"category" json:"category,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Repo interface {
	Insert(ctx context.Context, userID, bookID int64) (int64, error)
	DeleteByBook(ctx context.Context, userID, bookID int64) (bool, error)
	Find(ctx context.Context, userID, bookID int64) (int64, bool, error)
	ListMine(ctx context.Context, userID int64) ([]Row, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, userID, bookID int64) (int64, error) {
	const q = `
		INSERT INTO favorites (user_id, book_id)
		VALUES ($1, $2)
		RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) DeleteByBook(ctx context.Context, userID, bookID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) Find(ctx context.Context, userID, bookID int64) (int64, bool, error) {
	const q = `SELECT id FROM favorites WHERE user_id = $1 AND book_id = $2`
	var id int64
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *repo) ListMine(ctx context.Context, userID int64) ([]Row, error) {
	const q = `
		SELECT f.id AS favorite_id, f.book_id, b.title, b.author, b.category, f.created_at
		FROM favorites f
		JOIN books b ON b.id = f.book_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`
	var out []Row
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}
