package model

import "time"

type Fine struct {
	ID       int64      `db:"id" json:"id"`
	LoanID   int64      `db:"loan_id" json:"loan_id"`
	UserID   int64      `db:"user_id" json:"user_id"`
	Amount   float64    `db:"amount" json:"amount"`
	Paid     bool       `db:"paid" json:"paid"`
	IssuedAt time.Time  `db:"issued_at" json:"issued_at"`
	PaidAt   *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}
