package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
	loanrepo "booklend/repository/loan"
)

const (
	// LoanPeriod is the fixed borrow window; Renew extends due by the same
	// amount from the prior due date.
	LoanPeriod = 30 * 24 * time.Hour

	// FinePerDay is charged per started day of lateness.
	FinePerDay = 0.5
)

type Created struct {
	LoanID     int64     `json:"loan_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
}

type Returned struct {
	ReturnAt   time.Time `json:"return_at"`
	FineIssued bool      `json:"fine_issued"`
	FineAmount float64   `json:"fine_amount,omitempty"`
}

type HistoryRow = loanrepo.HistoryRow

// TxRunner runs fn inside one database transaction; the whole unit commits
// or rolls back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Books interface {
	TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error)
	IncrementTimesBorrowed(ctx context.Context, tx *sqlx.Tx, bookID int64) error
}

type Copies interface {
	FindAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error)
}

type Loans interface {
	Insert(ctx context.Context, tx *sqlx.Tx, copyID, borrowerID int64, borrowedAt, dueAt time.Time) (int64, error)
	HasOpenLoanForBook(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error)
	MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnAt time.Time) error
	UpdateDueAt(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error
	ListMine(ctx context.Context, userID int64) ([]HistoryRow, error)
}

type Fines interface {
	UnpaidTotal(ctx context.Context, tx *sqlx.Tx, userID int64) (float64, error)
	Insert(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error
}

type Waitlist interface {
	HasEntryForBook(ctx context.Context, tx *sqlx.Tx, bookID int64) (bool, error)
	PeekHead(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error)
}

// Sink is the notification inbox. Best-effort: the engine never fails an
// operation because a notification could not be written.
type Sink interface {
	Insert(ctx context.Context, userID int64, message string) error
}

type Service interface {
	// Borrow locks a free copy and opens a loan, all-or-nothing.
	Borrow(ctx context.Context, userID, bookID int64) (*Created, error)

	// Return closes the loan, issues a fine when late, and notifies the
	// waitlist head (advisory, after commit).
	Return(ctx context.Context, userID, loanID int64) (*Returned, error)

	// Renew pushes the due date forward unless the book is contended.
	Renew(ctx context.Context, userID, loanID int64) (time.Time, error)

	MyHistory(ctx context.Context, userID int64) ([]HistoryRow, error)
}

type service struct {
	db       TxRunner
	books    Books
	copies   Copies
	loans    Loans
	fines    Fines
	waitlist Waitlist
	sink     Sink
	log      *slog.Logger
	now      func() time.Time
}

func New(db TxRunner, books Books, copies Copies, loans Loans, fines Fines, wl Waitlist, sink Sink, log *slog.Logger) Service {
	return &service{
		db:       db,
		books:    books,
		copies:   copies,
		loans:    loans,
		fines:    fines,
		waitlist: wl,
		sink:     sink,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Borrow(ctx context.Context, userID, bookID int64) (*Created, error) {
	var out Created

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.books.TitleTx(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrBookNotFound)
			}
			return err
		}

		copyID, err := s.copies.FindAvailableCopy(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNoCopyAvailable)
			}
			return err
		}

		dup, err := s.loans.HasOpenLoanForBook(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return makeErr(ErrDuplicateOpenLoan)
		}

		unpaid, err := s.fines.UnpaidTotal(ctx, tx, userID)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return makeErr(ErrUnpaidFine)
		}

		borrowedAt := s.now().UTC()
		dueAt := borrowedAt.Add(LoanPeriod)

		loanID, err := s.loans.Insert(ctx, tx, copyID, userID, borrowedAt, dueAt)
		if err != nil {
			return err
		}
		if err := s.books.IncrementTimesBorrowed(ctx, tx, bookID); err != nil {
			return err
		}

		out = Created{LoanID: loanID, BorrowedAt: borrowedAt, DueAt: dueAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Return(ctx context.Context, userID, loanID int64) (*Returned, error) {
	var out Returned
	var notifyUser int64
	var notifyMsg string

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.loans.GetForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if row.BorrowerID != userID {
			return makeErr(ErrNotOwner)
		}
		if !row.Open() {
			return makeErr(ErrAlreadyReturned)
		}

		returnAt := s.now().UTC()
		if err := s.loans.MarkReturned(ctx, tx, loanID, returnAt); err != nil {
			return err
		}
		out = Returned{ReturnAt: returnAt}

		if returnAt.After(row.DueAt) {
			amount := LateFine(returnAt, row.DueAt)
			if err := s.fines.Insert(ctx, tx, loanID, userID, amount, returnAt); err != nil {
				return err
			}
			out.FineIssued = true
			out.FineAmount = amount
		}

		// Advisory peek: consistent with the state that freed the copy,
		// but no hold is placed for the notified user.
		head, err := s.waitlist.PeekHead(ctx, tx, row.BookID)
		if err != nil {
			return err
		}
		if head != nil {
			notifyUser = head.UserID
			notifyMsg = fmt.Sprintf("The book %q you are waiting for is now available", row.BookTitle)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyUser != 0 {
		if err := s.sink.Insert(ctx, notifyUser, notifyMsg); err != nil {
			s.log.Warn("waitlist notification dropped", "user_id", notifyUser, "loan_id", loanID, "err", err)
		}
	}
	return &out, nil
}

func (s *service) Renew(ctx context.Context, userID, loanID int64) (time.Time, error) {
	var newDue time.Time

	err := s.db.WithinTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.loans.GetForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if row.BorrowerID != userID {
			return makeErr(ErrNotOwner)
		}
		if !row.Open() {
			return makeErr(ErrAlreadyReturned)
		}

		contended, err := s.waitlist.HasEntryForBook(ctx, tx, row.BookID)
		if err != nil {
			return err
		}
		if contended {
			return makeErr(ErrReserved)
		}

		// Extends from the prior due date, not from now. No renewal cap.
		newDue = row.DueAt.Add(LoanPeriod)
		return s.loans.UpdateDueAt(ctx, tx, loanID, newDue)
	})
	if err != nil {
		return time.Time{}, err
	}
	return newDue, nil
}

func (s *service) MyHistory(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return s.loans.ListMine(ctx, userID)
}

// LateFine charges FinePerDay per started day past due.
func LateFine(returnAt, dueAt time.Time) float64 {
	days := math.Ceil(returnAt.Sub(dueAt).Hours() / 24)
	return days * FinePerDay
}
