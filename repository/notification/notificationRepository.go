package notification

import (
	"context"

	"github.com/jmoiron/sqlx"

	"booklend/model"
)

type Repo interface {
	// Insert is the whole delivery guarantee: one durable row. Callers
	// treat failures as non-fatal.
	Insert(ctx context.Context, userID int64, message string) error
	ListMine(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, userID int64, message string) error {
	const q = `INSERT INTO notifications (user_id, message) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, q, userID, message)
	return err
}

func (r *repo) ListMine(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	const q = `
		SELECT id, user_id, message, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	var out []model.Notification
	if err := r.db.SelectContext(ctx, &out, q, userID, limit); err != nil {
		return nil, err
	}
	return out, nil
}
