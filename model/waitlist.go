package model

import "time"

type WaitlistEntry struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	BookID      int64     `db:"book_id" json:"book_id"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}
