package fine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
	finerepo "booklend/repository/fine"
)

type ErrCode string

const (
	ErrNotFound           ErrCode = "NOT_FOUND"
	ErrNotOwner           ErrCode = "NOT_OWNER"
	ErrAlreadyPaid        ErrCode = "ALREADY_PAID"
	ErrInsufficientAmount ErrCode = "INSUFFICIENT_AMOUNT"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Row = finerepo.Row

type MyFines struct {
	Fines       []Row   `json:"fines"`
	TotalUnpaid float64 `json:"total_unpaid"`
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Fines interface {
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, fineID int64) (*model.Fine, error)
	MarkPaid(ctx context.Context, tx *sqlx.Tx, fineID int64, paidAt time.Time) error
	ListMine(ctx context.Context, userID int64) ([]Row, error)
}

type Service interface {
	// Pay settles a fine all-or-nothing: tendering less than the amount due
	// is rejected outright, nothing is partially applied.
	Pay(ctx context.Context, userID, fineID int64, amount float64) (time.Time, error)
	MyFines(ctx context.Context, userID int64) (*MyFines, error)
}

type service struct {
	db    TxRunner
	fines Fines
	now   func() time.Time
}

func New(db TxRunner, fines Fines) Service {
	return &service{db: db, fines: fines, now: time.Now}
}

func (s *service) Pay(ctx context.Context, userID, fineID int64, amount float64) (time.Time, error) {
	var paidAt time.Time

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		f, err := s.fines.GetForUpdate(ctx, tx, fineID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if f.UserID != userID {
			return makeErr(ErrNotOwner)
		}
		if f.Paid {
			return makeErr(ErrAlreadyPaid)
		}
		if amount < f.Amount {
			return makeErr(ErrInsufficientAmount)
		}

		paidAt = s.now().UTC()
		return s.fines.MarkPaid(ctx, tx, fineID, paidAt)
	})
	if err != nil {
		return time.Time{}, err
	}
	return paidAt, nil
}

func (s *service) MyFines(ctx context.Context, userID int64) (*MyFines, error) {
	rows, err := s.fines.ListMine(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &MyFines{Fines: rows}
	for _, r := range rows {
		if !r.Paid {
			out.TotalUnpaid += r.Amount
		}
	}
	return out, nil
}
