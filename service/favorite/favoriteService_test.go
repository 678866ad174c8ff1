package favorite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	favrepo "booklend/repository/favorite"
)

type booksMock struct {
	existsFn func(ctx context.Context, bookID int64) (bool, error)
}

func (m *booksMock) Exists(ctx context.Context, bookID int64) (bool, error) {
	if m.existsFn == nil {
		return true, nil
	}
	return m.existsFn(ctx, bookID)
}

type repoMock struct {
	insertFn func(ctx context.Context, userID, bookID int64) (int64, error)
	deleteFn func(ctx context.Context, userID, bookID int64) (bool, error)
	findFn   func(ctx context.Context, userID, bookID int64) (int64, bool, error)
	listFn   func(ctx context.Context, userID int64) ([]favrepo.Row, error)
}

func (m *repoMock) Insert(ctx context.Context, userID, bookID int64) (int64, error) {
	return m.insertFn(ctx, userID, bookID)
}

func (m *repoMock) DeleteByBook(ctx context.Context, userID, bookID int64) (bool, error) {
	return m.deleteFn(ctx, userID, bookID)
}

func (m *repoMock) Find(ctx context.Context, userID, bookID int64) (int64, bool, error) {
	if m.findFn == nil {
		return 0, false, nil
	}
	return m.findFn(ctx, userID, bookID)
}

func (m *repoMock) ListMine(ctx context.Context, userID int64) ([]favrepo.Row, error) {
	return m.listFn(ctx, userID)
}

func TestAdd_Success(t *testing.T) {
	r := &repoMock{
		insertFn: func(ctx context.Context, userID, bookID int64) (int64, error) { return 33, nil },
	}
	s := New(&booksMock{}, r)

	id, err := s.Add(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Equal(t, int64(33), id)
}

func TestAdd_BookNotFound(t *testing.T) {
	b := &booksMock{
		existsFn: func(ctx context.Context, bookID int64) (bool, error) { return false, nil },
	}
	s := New(b, &repoMock{})

	_, err := s.Add(context.Background(), 7, 999)
	require.Error(t, err)
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestAdd_Duplicate(t *testing.T) {
	r := &repoMock{
		findFn: func(ctx context.Context, userID, bookID int64) (int64, bool, error) { return 33, true, nil },
	}
	s := New(&booksMock{}, r)

	_, err := s.Add(context.Background(), 7, 1)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyAdded, Code(err))
}

func TestRemove_NotFound(t *testing.T) {
	r := &repoMock{
		deleteFn: func(ctx context.Context, userID, bookID int64) (bool, error) { return false, nil },
	}
	s := New(&booksMock{}, r)

	err := s.Remove(context.Background(), 7, 1)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}
