package waitlist

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"booklend/model"
)

type txMock struct{}

func (txMock) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error { return fn(nil) }

type booksMock struct {
	titleFn func(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error)
}

func (m *booksMock) TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error) {
	if m.titleFn == nil {
		return "Some Title", nil
	}
	return m.titleFn(ctx, tx, bookID)
}

type loansMock struct {
	hasOpenFn func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
}

func (m *loansMock) HasOpenLoanForBook(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
	if m.hasOpenFn == nil {
		return false, nil
	}
	return m.hasOpenFn(ctx, tx, userID, bookID)
}

type entriesMock struct {
	insertFn func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, requestedAt time.Time) (int64, error)
	existsFn func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error)
	getFn    func(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error)
	deleteFn func(ctx context.Context, tx *sqlx.Tx, entryID int64) error
	listFn   func(ctx context.Context, userID int64) ([]Row, error)
}

func (m *entriesMock) Insert(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, requestedAt time.Time) (int64, error) {
	if m.insertFn == nil {
		return 1, nil
	}
	return m.insertFn(ctx, tx, userID, bookID, requestedAt)
}

func (m *entriesMock) Exists(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
	if m.existsFn == nil {
		return false, nil
	}
	return m.existsFn(ctx, tx, userID, bookID)
}

func (m *entriesMock) GetForUpdate(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error) {
	return m.getFn(ctx, tx, entryID)
}

func (m *entriesMock) Delete(ctx context.Context, tx *sqlx.Tx, entryID int64) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, tx, entryID)
}

func (m *entriesMock) ListMine(ctx context.Context, userID int64) ([]Row, error) {
	return m.listFn(ctx, userID)
}

func TestJoin_Success(t *testing.T) {
	e := &entriesMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64, requestedAt time.Time) (int64, error) {
			if userID != 7 || bookID != 1 {
				t.Fatalf("unexpected insert args: user=%d book=%d", userID, bookID)
			}
			return 55, nil
		},
	}
	s := New(txMock{}, &booksMock{}, &loansMock{}, e)

	id, err := s.Join(context.Background(), 7, 1)
	if err != nil || id != 55 {
		t.Fatalf("got id=%v err=%v; want 55 nil", id, err)
	}
}

func TestJoin_BookNotFound(t *testing.T) {
	b := &booksMock{
		titleFn: func(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error) {
			return "", sql.ErrNoRows
		},
	}
	s := New(txMock{}, b, &loansMock{}, &entriesMock{})

	if _, err := s.Join(context.Background(), 7, 999); Code(err) != ErrBookNotFound {
		t.Fatalf("got %v; want BOOK_NOT_FOUND", err)
	}
}

func TestJoin_AlreadyWaitlisted(t *testing.T) {
	e := &entriesMock{
		existsFn: func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
			return true, nil
		},
	}
	s := New(txMock{}, &booksMock{}, &loansMock{}, e)

	if _, err := s.Join(context.Background(), 7, 1); Code(err) != ErrAlreadyWaitlisted {
		t.Fatalf("got %v; want ALREADY_WAITLISTED", err)
	}
}

func TestJoin_AlreadyHolding(t *testing.T) {
	l := &loansMock{
		hasOpenFn: func(ctx context.Context, tx *sqlx.Tx, userID, bookID int64) (bool, error) {
			return true, nil
		},
	}
	s := New(txMock{}, &booksMock{}, l, &entriesMock{})

	if _, err := s.Join(context.Background(), 7, 1); Code(err) != ErrAlreadyHolding {
		t.Fatalf("got %v; want ALREADY_HOLDING", err)
	}
}

func TestCancel_Success(t *testing.T) {
	deleted := false
	e := &entriesMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error) {
			return &model.WaitlistEntry{ID: entryID, UserID: 7, BookID: 1}, nil
		},
		deleteFn: func(ctx context.Context, tx *sqlx.Tx, entryID int64) error {
			deleted = true
			return nil
		},
	}
	s := New(txMock{}, &booksMock{}, &loansMock{}, e)

	if err := s.Cancel(context.Background(), 7, 55); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !deleted {
		t.Fatal("entry was not deleted")
	}
}

func TestCancel_NotOwner(t *testing.T) {
	e := &entriesMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error) {
			return &model.WaitlistEntry{ID: entryID, UserID: 8, BookID: 1}, nil
		},
	}
	s := New(txMock{}, &booksMock{}, &loansMock{}, e)

	if err := s.Cancel(context.Background(), 7, 55); Code(err) != ErrNotOwner {
		t.Fatalf("got %v; want NOT_OWNER", err)
	}
}

func TestCancel_NotFound(t *testing.T) {
	e := &entriesMock{
		getFn: func(ctx context.Context, tx *sqlx.Tx, entryID int64) (*model.WaitlistEntry, error) {
			return nil, sql.ErrNoRows
		},
	}
	s := New(txMock{}, &booksMock{}, &loansMock{}, e)

	if err := s.Cancel(context.Background(), 7, 55); Code(err) != ErrNotFound {
		t.Fatalf("got %v; want NOT_FOUND", err)
	}
}
