package recommend

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	bookrepo "booklend/repository/book"
	"booklend/repository/recommender"
)

type scorerMock struct {
	fn func(ctx context.Context, userID int64, limit int) ([]recommender.ScoredBook, error)
}

func (m *scorerMock) Score(ctx context.Context, userID int64, limit int) ([]recommender.ScoredBook, error) {
	return m.fn(ctx, userID, limit)
}

type popularityMock struct {
	fn func(ctx context.Context, userID int64, limit int) ([]bookrepo.PopularRow, error)
}

func (m *popularityMock) PopularAvailable(ctx context.Context, userID int64, limit int) ([]bookrepo.PopularRow, error) {
	return m.fn(ctx, userID, limit)
}

func TestRecommend_UsesScorer(t *testing.T) {
	scorer := &scorerMock{
		fn: func(ctx context.Context, userID int64, limit int) ([]recommender.ScoredBook, error) {
			return []recommender.ScoredBook{
				{BookID: 1, Title: "A", PredictedRating: 4.7},
				{BookID: 2, Title: "B", PredictedRating: 4.1},
			}, nil
		},
	}
	books := &popularityMock{
		fn: func(ctx context.Context, userID int64, limit int) ([]bookrepo.PopularRow, error) {
			t.Fatal("fallback must not run when the scorer answers")
			return nil, nil
		},
	}
	s := New(scorer, books, slog.Default())

	items, source, err := s.Recommend(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Equal(t, SourceModel, source)
	require.Len(t, items, 2)
	require.Equal(t, 4.7, items[0].PredictedRating)
}

func TestRecommend_FallsBackOnScorerError(t *testing.T) {
	scorer := &scorerMock{
		fn: func(ctx context.Context, userID int64, limit int) ([]recommender.ScoredBook, error) {
			return nil, errors.New("connection refused")
		},
	}
	books := &popularityMock{
		fn: func(ctx context.Context, userID int64, limit int) ([]bookrepo.PopularRow, error) {
			return []bookrepo.PopularRow{
				{BookID: 3, Title: "C", Popularity: 12},
			}, nil
		},
	}
	s := New(scorer, books, slog.Default())

	items, source, err := s.Recommend(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Equal(t, SourcePopularity, source)
	require.Len(t, items, 1)
	require.Equal(t, int64(12), items[0].Popularity)
}

func TestRecommend_ClampsLimit(t *testing.T) {
	var gotLimit int
	scorer := &scorerMock{
		fn: func(ctx context.Context, userID int64, limit int) ([]recommender.ScoredBook, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	s := New(scorer, &popularityMock{}, slog.Default())

	_, _, err := s.Recommend(context.Background(), 7, 9999)
	require.NoError(t, err)
	require.Equal(t, 10, gotLimit)
}
