package inventory

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repo interface {
	// FindAvailableCopy locks and returns one free copy of the book.
	// Returns sql.ErrNoRows when every copy is on loan. The row lock is
	// held until the surrounding transaction commits or aborts, so two
	// borrowers racing for the last copy can never both win: the loser
	// either skips to another free copy or sees none.
	FindAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) FindAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) {
	// Availability is derived: a copy is free iff no open loan references
	// it. SKIP LOCKED keeps concurrent borrowers from queuing on the same
	// candidate row.
	const q = `
		SELECT c.id
		FROM copies c
		WHERE c.book_id = $1
		  AND c.removed_at IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM loans l
			WHERE l.copy_id = c.id AND l.return_at IS NULL
		  )
		ORDER BY c.id
		FOR UPDATE OF c SKIP LOCKED
		LIMIT 1`
	var copyID int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&copyID)
	return copyID, err
}
