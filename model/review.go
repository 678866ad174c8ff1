package model

import "time"

type Review struct {
	ID         int64     `db:"id" json:"id"`
	ReviewerID int64     `db:"reviewer_id" json:"reviewer_id"`
	BookID     int64     `db:"book_id" json:"book_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Favorite struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	BookID    int64     `db:"book_id" json:"book_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
