package loan

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"booklend/model"
	loanrepo "booklend/repository/loan"
)

// txMock runs the unit directly; repo mocks ignore the nil tx.
type txMock struct{}

func (txMock) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error { return fn(nil) }

type booksMock struct {
	titleFn func(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error)
	incFn   func(ctx context.Context, tx *sqlx.Tx, bookID int64) error
}

func (m *booksMock) TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error) {
	if m.titleFn == nil {
		return "Some Title", nil
	}
	return m.titleFn(ctx, tx, bookID)
}

func (m *booksMock) IncrementTimesBorrowed(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	if m.incFn == nil {
		return nil
	}
	return m.incFn(ctx, tx, bookID)
}

type copiesMock struct {
	findFn func(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error)
}

func (m *copiesMock) FindAvailableCopy(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) {
	return m.findFn(ctx, tx, bookID)
}

type loansMock struct {
	insertFn  func(ctx context.Context, tx *sqlx.Tx, copyID, borrowerID int64, borrowedAt, dueAt time.Time) (int64, error)
	hasOpenFn func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
	getFn     func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error)
	returnFn  func(ctx context.Context, tx *sqlx.Tx, loanID int64, returnAt time.Time) error
	dueFn     func(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error
	listFn    func(ctx context.Context, userID int64) ([]HistoryRow, error)
}

func (m *loansMock) Insert(ctx context.Context, tx *sqlx.Tx, copyID, borrowerID int64, borrowedAt, dueAt time.Time) (int64, error) {
	return m.insertFn(ctx, tx, copyID, borrowerID, borrowedAt, dueAt)
}

func (m *loansMock) HasOpenLoanForBook(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
	if m.hasOpenFn == nil {
		return false, nil
	}
	return m.hasOpenFn(ctx, tx, userID, bookID)
}

func (m *loansMock) GetForUpdate(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
	return m.getFn(ctx, tx, loanID)
}

func (m *loansMock) MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnAt time.Time) error {
	if m.returnFn == nil {
		return nil
	}
	return m.returnFn(ctx, tx, loanID, returnAt)
}

func (m *loansMock) UpdateDueAt(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error {
	if m.dueFn == nil {
		return nil
	}
	return m.dueFn(ctx, tx, loanID, dueAt)
}

func (m *loansMock) ListMine(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return m.listFn(ctx, userID)
}

type finesMock struct {
	unpaidFn func(ctx context.Context, tx *sqlx.Tx, userID int64) (float64, error)
	insertFn func(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error
}

func (m *finesMock) UnpaidTotal(ctx context.Context, tx *sqlx.Tx, userID int64) (float64, error) {
	if m.unpaidFn == nil {
		return 0, nil
	}
	return m.unpaidFn(ctx, tx, userID)
}

func (m *finesMock) Insert(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error {
	if m.insertFn == nil {
		return nil
	}
	return m.insertFn(ctx, tx, loanID, userID, amount, issuedAt)
}

type waitlistMock struct {
	hasFn  func(ctx context.Context, tx *sqlx.Tx, bookID int64) (bool, error)
	peekFn func(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error)
}

func (m *waitlistMock) HasEntryForBook(ctx context.Context, tx *sqlx.Tx, bookID int64) (bool, error) {
	if m.hasFn == nil {
		return false, nil
	}
	return m.hasFn(ctx, tx, bookID)
}

func (m *waitlistMock) PeekHead(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error) {
	if m.peekFn == nil {
		return nil, nil
	}
	return m.peekFn(ctx, tx, bookID)
}

type sinkMock struct {
	insertFn func(ctx context.Context, userID int64, message string) error
	calls    int
}

func (m *sinkMock) Insert(ctx context.Context, userID int64, message string) error {
	m.calls++
	if m.insertFn == nil {
		return nil
	}
	return m.insertFn(ctx, userID, message)
}

func newTestService(books *booksMock, copies *copiesMock, loans *loansMock, fines *finesMock, wl *waitlistMock, sink *sinkMock, now time.Time) *service {
	if books == nil {
		books = &booksMock{}
	}
	if fines == nil {
		fines = &finesMock{}
	}
	if wl == nil {
		wl = &waitlistMock{}
	}
	if sink == nil {
		sink = &sinkMock{}
	}
	s := New(txMock{}, books, copies, loans, fines, wl, sink, slog.Default()).(*service)
	s.now = func() time.Time { return now }
	return s
}

// --- Borrow ---

func TestBorrow_Success(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	copies := &copiesMock{
		findFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) { return 301, nil },
	}
	loans := &loansMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, copyID, borrowerID int64, borrowedAt, dueAt time.Time) (int64, error) {
			require.Equal(t, int64(301), copyID)
			require.Equal(t, int64(7), borrowerID)
			require.Equal(t, now, borrowedAt)
			require.Equal(t, now.Add(LoanPeriod), dueAt)
			return 900, nil
		},
	}
	s := newTestService(nil, copies, loans, nil, nil, nil, now)

	out, err := s.Borrow(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, int64(900), out.LoanID)
	require.Equal(t, now.Add(LoanPeriod), out.DueAt)
}

func TestBorrow_BookNotFound(t *testing.T) {
	books := &booksMock{
		titleFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error) {
			return "", sql.ErrNoRows
		},
	}
	s := newTestService(books, &copiesMock{}, &loansMock{}, nil, nil, nil, time.Now())

	_, err := s.Borrow(context.Background(), 7, 999)
	require.Error(t, err)
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestBorrow_NoCopyAvailable(t *testing.T) {
	copies := &copiesMock{
		findFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) {
			return 0, sql.ErrNoRows
		},
	}
	s := newTestService(nil, copies, &loansMock{}, nil, nil, nil, time.Now())

	_, err := s.Borrow(context.Background(), 7, 1)
	require.Error(t, err)
	require.Equal(t, ErrNoCopyAvailable, Code(err))
}

func TestBorrow_DuplicateOpenLoan(t *testing.T) {
	copies := &copiesMock{
		findFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) { return 301, nil },
	}
	loans := &loansMock{
		hasOpenFn: func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
			return true, nil
		},
	}
	s := newTestService(nil, copies, loans, nil, nil, nil, time.Now())

	_, err := s.Borrow(context.Background(), 7, 1)
	require.Error(t, err)
	require.Equal(t, ErrDuplicateOpenLoan, Code(err))
}

func TestBorrow_UnpaidFineBlocks(t *testing.T) {
	copies := &copiesMock{
		findFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) { return 301, nil },
	}
	fines := &finesMock{
		unpaidFn: func(ctx context.Context, tx *sqlx.Tx, userID int64) (float64, error) { return 1.5, nil },
	}
	s := newTestService(nil, copies, &loansMock{}, fines, nil, nil, time.Now())

	_, err := s.Borrow(context.Background(), 7, 1)
	require.Error(t, err)
	require.Equal(t, ErrUnpaidFine, Code(err))
}

// --- Return ---

func openLoan(borrowerID int64, dueAt time.Time) *loanrepo.LockedLoan {
	return &loanrepo.LockedLoan{
		Loan: model.Loan{
			ID:         900,
			CopyID:     301,
			BorrowerID: borrowerID,
			BorrowedAt: dueAt.Add(-LoanPeriod),
			DueAt:      dueAt,
			Status:     model.LoanOpen,
		},
		BookID:    1,
		BookTitle: "The Go Programming Language",
	}
}

func TestReturn_OnTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sink := &sinkMock{}
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(7, now.Add(24*time.Hour)), nil
		},
	}
	fines := &finesMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error {
			t.Fatal("no fine expected for an on-time return")
			return nil
		},
	}
	s := newTestService(nil, nil, loans, fines, nil, sink, now)

	out, err := s.Return(context.Background(), 7, 900)
	require.NoError(t, err)
	require.False(t, out.FineIssued)
	require.Equal(t, now, out.ReturnAt)
	require.Zero(t, sink.calls)
}

func TestReturn_LateIssuesFine(t *testing.T) {
	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := due.Add(5 * 24 * time.Hour)

	var gotAmount float64
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(7, due), nil
		},
	}
	fines := &finesMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, loanID, userID int64, amount float64, issuedAt time.Time) error {
			gotAmount = amount
			return nil
		},
	}
	s := newTestService(nil, nil, loans, fines, nil, nil, now)

	out, err := s.Return(context.Background(), 7, 900)
	require.NoError(t, err)
	require.True(t, out.FineIssued)
	require.Equal(t, 2.5, out.FineAmount)
	require.Equal(t, 2.5, gotAmount)
}

func TestReturn_NotOwner(t *testing.T) {
	now := time.Now().UTC()
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(8, now.Add(time.Hour)), nil
		},
	}
	s := newTestService(nil, nil, loans, nil, nil, nil, now)

	_, err := s.Return(context.Background(), 7, 900)
	require.Error(t, err)
	require.Equal(t, ErrNotOwner, Code(err))
}

func TestReturn_NotFound(t *testing.T) {
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return nil, sql.ErrNoRows
		},
	}
	s := newTestService(nil, nil, loans, nil, nil, nil, time.Now())

	_, err := s.Return(context.Background(), 7, 900)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestReturn_AlreadyReturned(t *testing.T) {
	now := time.Now().UTC()
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			row := openLoan(7, now)
			ret := now.Add(-time.Hour)
			row.ReturnAt = &ret
			row.Status = model.LoanReturned
			return row, nil
		},
	}
	s := newTestService(nil, nil, loans, nil, nil, nil, now)

	_, err := s.Return(context.Background(), 7, 900)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyReturned, Code(err))
}

func TestReturn_NotifiesWaitlistHead(t *testing.T) {
	now := time.Now().UTC()
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(7, now.Add(time.Hour)), nil
		},
	}
	wl := &waitlistMock{
		peekFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error) {
			return &model.WaitlistEntry{ID: 5, UserID: 42, BookID: bookID}, nil
		},
	}
	var notified int64
	sink := &sinkMock{
		insertFn: func(ctx context.Context, userID int64, message string) error {
			notified = userID
			require.Contains(t, message, "The Go Programming Language")
			return nil
		},
	}
	s := newTestService(nil, nil, loans, nil, wl, sink, now)

	_, err := s.Return(context.Background(), 7, 900)
	require.NoError(t, err)
	require.Equal(t, int64(42), notified)
}

func TestReturn_SinkFailureIsNonFatal(t *testing.T) {
	now := time.Now().UTC()
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(7, now.Add(time.Hour)), nil
		},
	}
	wl := &waitlistMock{
		peekFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.WaitlistEntry, error) {
			return &model.WaitlistEntry{ID: 5, UserID: 42, BookID: bookID}, nil
		},
	}
	sink := &sinkMock{
		insertFn: func(ctx context.Context, userID int64, message string) error {
			return errors.New("inbox write failed")
		},
	}
	s := newTestService(nil, nil, loans, nil, wl, sink, now)

	out, err := s.Return(context.Background(), 7, 900)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, 1, sink.calls)
}

// --- Renew ---

func TestRenew_ExtendsFromPriorDue(t *testing.T) {
	due := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := due.Add(-48 * time.Hour)

	var gotDue time.Time
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(7, due), nil
		},
		dueFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error {
			gotDue = dueAt
			return nil
		},
	}
	s := newTestService(nil, nil, loans, nil, nil, nil, now)

	newDue, err := s.Renew(context.Background(), 7, 900)
	require.NoError(t, err)
	require.Equal(t, due.Add(LoanPeriod), newDue)
	require.Equal(t, due.Add(LoanPeriod), gotDue)
}

// A sweep may have materialized OVERDUE on a still-open loan. The flag is
// display state only: the loan stays renewable, and the due-date update
// resets the row to OPEN.
func TestRenew_OverdueFlaggedLoanStillRenews(t *testing.T) {
	due := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := due.Add(72 * time.Hour)

	var gotDue time.Time
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			row := openLoan(7, due)
			row.Status = model.LoanOverdue
			return row, nil
		},
		dueFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64, dueAt time.Time) error {
			gotDue = dueAt
			return nil
		},
	}
	s := newTestService(nil, nil, loans, nil, nil, nil, now)

	newDue, err := s.Renew(context.Background(), 7, 900)
	require.NoError(t, err)
	require.Equal(t, due.Add(LoanPeriod), newDue)
	require.Equal(t, newDue, gotDue)
}

func TestRenew_BlockedWhenReserved(t *testing.T) {
	now := time.Now().UTC()
	loans := &loansMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, loanID int64) (*loanrepo.LockedLoan, error) {
			return openLoan(7, now.Add(time.Hour)), nil
		},
	}
	wl := &waitlistMock{
		hasFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (bool, error) { return true, nil },
	}
	s := newTestService(nil, nil, loans, nil, wl, nil, now)

	_, err := s.Renew(context.Background(), 7, 900)
	require.Error(t, err)
	require.Equal(t, ErrReserved, Code(err))
}

// --- LateFine ---

func TestLateFine(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		late time.Duration
		want float64
	}{
		{"one hour late", time.Hour, 0.5},
		{"exactly one day", 24 * time.Hour, 0.5},
		{"one day one hour", 25 * time.Hour, 1.0},
		{"five days", 5 * 24 * time.Hour, 2.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, LateFine(due.Add(tc.late), due))
		})
	}
}
