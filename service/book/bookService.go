package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"booklend/model"
	bookrepo "booklend/repository/book"
)

type ErrCode string

const (
	ErrBadInput     ErrCode = "BAD_INPUT"
	ErrISBNTaken    ErrCode = "ISBN_TAKEN"
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrCopiesOnLoan ErrCode = "COPIES_ON_LOAN"
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

type (
	SearchFilter = bookrepo.SearchFilter
	SearchRow    = bookrepo.SearchRow
	DetailRow    = bookrepo.DetailRow
	MyBookRow    = bookrepo.MyBookRow
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Service interface {
	// AddOwned lists a book the caller owns: creates the catalog row, the
	// first owned copy, and the statistics row in one unit.
	AddOwned(ctx context.Context, ownerID int64, b *model.Book) (int64, error)
	AddCopies(ctx context.Context, ownerID, bookID int64, n int) (int64, error)
	DeleteOwned(ctx context.Context, ownerID, bookID int64) error

	Search(ctx context.Context, f SearchFilter) ([]SearchRow, int64, error)
	Detail(ctx context.Context, bookID int64) (*DetailRow, error)
	MyBooks(ctx context.Context, ownerID int64) ([]MyBookRow, error)
}

type service struct {
	db TxRunner
	r  bookrepo.Repo
}

func New(db TxRunner, r bookrepo.Repo) Service { return &service{db: db, r: r} }

func (s *service) AddOwned(ctx context.Context, ownerID int64, b *model.Book) (int64, error) {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return 0, makeErr(ErrBadInput)
	}

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if b.ISBN != nil && strings.TrimSpace(*b.ISBN) != "" {
			taken, err := s.r.ISBNExistsTx(ctx, tx, strings.TrimSpace(*b.ISBN))
			if err != nil {
				return err
			}
			if taken {
				return makeErr(ErrISBNTaken)
			}
		}
		if _, err := s.r.Create(ctx, tx, b); err != nil {
			return err
		}
		if _, err := s.r.InsertCopy(ctx, tx, b.ID, ownerID); err != nil {
			return err
		}
		return s.r.InitStatistics(ctx, tx, b.ID)
	})
	if err != nil {
		return 0, err
	}
	return b.ID, nil
}

func (s *service) AddCopies(ctx context.Context, ownerID, bookID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, makeErr(ErrBadInput)
	}
	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.r.TitleTx(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		for i := 0; i < n; i++ {
			if _, err := s.r.InsertCopy(ctx, tx, bookID, ownerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (s *service) DeleteOwned(ctx context.Context, ownerID, bookID int64) error {
	return s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		owned, err := s.r.OwnedCopyCount(ctx, tx, bookID, ownerID)
		if err != nil {
			return err
		}
		if owned == 0 {
			return makeErr(ErrNotFound)
		}

		onLoan, err := s.r.OwnedCopiesOnLoan(ctx, tx, bookID, ownerID)
		if err != nil {
			return err
		}
		if onLoan > 0 {
			return makeErr(ErrCopiesOnLoan)
		}

		if err := s.r.RemoveOwnedCopies(ctx, tx, bookID, ownerID); err != nil {
			return err
		}
		// Delisted copies keep their row for loan history, so the book is
		// hard-deleted only when no copy row is left at all.
		remaining, err := s.r.RemainingCopies(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.r.DeleteBook(ctx, tx, bookID)
		}
		return nil
	})
}

func (s *service) Search(ctx context.Context, f SearchFilter) ([]SearchRow, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.r.Search(ctx, f)
}

func (s *service) Detail(ctx context.Context, bookID int64) (*DetailRow, error) {
	row, err := s.r.Detail(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return row, nil
}

func (s *service) MyBooks(ctx context.Context, ownerID int64) ([]MyBookRow, error) {
	return s.r.MyBooks(ctx, ownerID)
}
