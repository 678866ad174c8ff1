package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
	wlrepo "booklend/repository/waitlist"
)

type ErrCode string

const (
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrAlreadyWaitlisted ErrCode = "ALREADY_WAITLISTED"
	ErrAlreadyHolding    ErrCode = "ALREADY_HOLDING"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrNotOwner          ErrCode = "NOT_OWNER"
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

type Row = wlrepo.Row

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Books interface {
	TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error)
}

type Loans interface {
	HasOpenLoanForBook(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
}

type Entries interface {
	Insert(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, requestedAt time.Time) (int64, error)
	Exists(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error)
	Delete(ctx context.Context, tx *sqlx.Tx, entryID int64) error
	ListMine(ctx context.Context, userID int64) ([]Row, error)
}

type Service interface {
	// Join appends the user to the book's FIFO queue. Holding an open loan
	// for the book disqualifies joining.
	Join(ctx context.Context, userID, bookID int64) (int64, error)
	Cancel(ctx context.Context, userID, entryID int64) error
	MyWaitlist(ctx context.Context, userID int64) ([]Row, error)
}

type service struct {
	db      TxRunner
	books   Books
	loans   Loans
	entries Entries
	now     func() time.Time
}

func New(db TxRunner, books Books, loans Loans, entries Entries) Service {
	return &service{db: db, books: books, loans: loans, entries: entries, now: time.Now}
}

func (s *service) Join(ctx context.Context, userID, bookID int64) (int64, error) {
	var entryID int64

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.books.TitleTx(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrBookNotFound)
			}
			return err
		}

		exists, err := s.entries.Exists(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if exists {
			return makeErr(ErrAlreadyWaitlisted)
		}

		holding, err := s.loans.HasOpenLoanForBook(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if holding {
			return makeErr(ErrAlreadyHolding)
		}

		entryID, err = s.entries.Insert(ctx, tx, userID, bookID, s.now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	return entryID, nil
}

func (s *service) Cancel(ctx context.Context, userID, entryID int64) error {
	return s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.entries.GetForUpdate(ctx, tx, entryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if entry.UserID != userID {
			return makeErr(ErrNotOwner)
		}
		return s.entries.Delete(ctx, tx, entryID)
	})
}

func (s *service) MyWaitlist(ctx context.Context, userID int64) ([]Row, error) {
	return s.entries.ListMine(ctx, userID)
}
