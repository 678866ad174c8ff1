package review

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"booklend/model"
	reviewrepo "booklend/repository/review"
)

type ErrCode string

const (
	ErrBookNotFound ErrCode = "BOOK_NOT_FOUND"
	ErrNotReturned  ErrCode = "NOT_RETURNED"
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrNotOwner     ErrCode = "NOT_OWNER"
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

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Books interface {
	TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error)
}

type Service interface {
	// Add upserts the caller's review; only borrowers who returned the book
	// may review. The book's average rating is recomputed in the same unit.
	Add(ctx context.Context, userID, bookID int64, rating int, comment *string) error
	Update(ctx context.Context, userID, reviewID int64, rating *int, comment *string) error
	Delete(ctx context.Context, userID, reviewID int64) error
	ListForBook(ctx context.Context, bookID int64) ([]model.Review, error)
}

type service struct {
	db    TxRunner
	books Books
	r     reviewrepo.Repo
}

func New(db TxRunner, books Books, r reviewrepo.Repo) Service {
	return &service{db: db, books: books, r: r}
}

func (s *service) Add(ctx context.Context, userID, bookID int64, rating int, comment *string) error {
	return s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.books.TitleTx(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrBookNotFound)
			}
			return err
		}

		returned, err := s.r.HasReturnedLoan(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if !returned {
			return makeErr(ErrNotReturned)
		}

		if err := s.r.Upsert(ctx, tx, userID, bookID, rating, comment); err != nil {
			return err
		}
		return s.r.RecalcAverage(ctx, tx, bookID)
	})
}

func (s *service) Update(ctx context.Context, userID, reviewID int64, rating *int, comment *string) error {
	return s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		rv, err := s.r.Get(ctx, tx, reviewID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if rv.ReviewerID != userID {
			return makeErr(ErrNotOwner)
		}

		if err := s.r.Update(ctx, tx, reviewID, rating, comment); err != nil {
			return err
		}
		return s.r.RecalcAverage(ctx, tx, rv.BookID)
	})
}

func (s *service) Delete(ctx context.Context, userID, reviewID int64) error {
	return s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		rv, err := s.r.Get(ctx, tx, reviewID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if rv.ReviewerID != userID {
			return makeErr(ErrNotOwner)
		}

		if err := s.r.Delete(ctx, tx, reviewID); err != nil {
			return err
		}
		return s.r.RecalcAverage(ctx, tx, rv.BookID)
	})
}

func (s *service) ListForBook(ctx context.Context, bookID int64) ([]model.Review, error) {
	return s.r.ListForBook(ctx, bookID)
}
