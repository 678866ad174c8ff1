package favorite

import (
	"context"
	"errors"

	favrepo "booklend/repository/favorite"
)

type ErrCode string

const (
	ErrBookNotFound ErrCode = "BOOK_NOT_FOUND"
	ErrAlreadyAdded ErrCode = "ALREADY_ADDED"
	ErrNotFound     ErrCode = "NOT_FOUND"
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

type Row = favrepo.Row

type Books interface {
	Exists(ctx context.Context, bookID int64) (bool, error)
}

type Service interface {
	Add(ctx context.Context, userID, bookID int64) (int64, error)
	Remove(ctx context.Context, userID, bookID int64) error
	Check(ctx context.Context, userID, bookID int64) (int64, bool, error)
	ListMine(ctx context.Context, userID int64) ([]Row, error)
}

type service struct {
	books Books
	r     favrepo.Repo
}

func New(books Books, r favrepo.Repo) Service { return &service{books: books, r: r} }

func (s *service) Add(ctx context.Context, userID, bookID int64) (int64, error) {
	exists, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, makeErr(ErrBookNotFound)
	}

	if _, found, err := s.r.Find(ctx, userID, bookID); err != nil {
		return 0, err
	} else if found {
		return 0, makeErr(ErrAlreadyAdded)
	}
	return s.r.Insert(ctx, userID, bookID)
}

func (s *service) Remove(ctx context.Context, userID, bookID int64) error {
	removed, err := s.r.DeleteByBook(ctx, userID, bookID)
	if err != nil {
		return err
	}
	if !removed {
		return makeErr(ErrNotFound)
	}
	return nil
}

func (s *service) Check(ctx context.Context, userID, bookID int64) (int64, bool, error) {
	return s.r.Find(ctx, userID, bookID)
}

func (s *service) ListMine(ctx context.Context, userID int64) ([]Row, error) {
	return s.r.ListMine(ctx, userID)
}
