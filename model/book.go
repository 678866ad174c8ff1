package model

import "time"

type Book struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Author    *string   `db:"author" json:"author,omitempty"`
	ISBN      *string   `db:"isbn" json:"isbn,omitempty"`
	Category  *string   `db:"category" json:"category,omitempty"`
	Condition *string   `db:"condition" json:"condition,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Copy is one physical lendable instance of a book, owned by one user.
// It has no stored status: a copy is available iff no open loan references
// it and it has not been delisted. Copies with loan history are delisted
// via RemovedAt rather than deleted, keeping the history intact.
type Copy struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	OwnerID    int64      `db:"owner_id" json:"owner_id"`
	CopyNumber int        `db:"copy_number" json:"copy_number"`
	Location   *string    `db:"location" json:"location,omitempty"`
	RemovedAt  *time.Time `db:"removed_at" json:"removed_at,omitempty"`
}

type BookStatistics struct {
	BookID        int64    `db:"book_id" json:"book_id"`
	TimesBorrowed int64    `db:"times_borrowed" json:"times_borrowed"`
	AverageRating *float64 `db:"average_rating" json:"average_rating,omitempty"`
}
