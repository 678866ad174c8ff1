package recommend

import (
	"context"
	"log/slog"

	bookrepo "booklend/repository/book"
	"booklend/repository/recommender"
)

const (
	SourceModel      = "ml_model"
	SourcePopularity = "fallback_popularity"
)

type Item struct {
	BookID          int64   `json:"book_id"`
	Title           string  `json:"title"`
	Author          *string `json:"author,omitempty"`
	Category        *string `json:"category,omitempty"`
	ISBN            *string `json:"isbn,omitempty"`
	PredictedRating float64 `json:"predicted_rating"`
	Popularity      int64   `json:"popularity,omitempty"`
}

type Popularity interface {
	PopularAvailable(ctx context.Context, userID int64, limit int) ([]bookrepo.PopularRow, error)
}

type Service interface {
	// Recommend asks the external scorer first; any scorer failure falls
	// back to the popularity query without surfacing an error.
	Recommend(ctx context.Context, userID int64, limit int) ([]Item, string, error)
}

type service struct {
	scorer recommender.Repo
	books  Popularity
	log    *slog.Logger
}

func New(scorer recommender.Repo, books Popularity, log *slog.Logger) Service {
	return &service{scorer: scorer, books: books, log: log}
}

func (s *service) Recommend(ctx context.Context, userID int64, limit int) ([]Item, string, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	scored, err := s.scorer.Score(ctx, userID, limit)
	if err == nil {
		items := make([]Item, 0, len(scored))
		for _, b := range scored {
			items = append(items, Item{
				BookID:          b.BookID,
				Title:           b.Title,
				Author:          b.Author,
				Category:        b.Category,
				ISBN:            b.ISBN,
				PredictedRating: b.PredictedRating,
			})
		}
		return items, SourceModel, nil
	}
	s.log.Debug("scorer unavailable, using popularity fallback", "err", err)

	popular, err := s.books.PopularAvailable(ctx, userID, limit)
	if err != nil {
		return nil, "", err
	}
	items := make([]Item, 0, len(popular))
	for _, b := range popular {
		items = append(items, Item{
			BookID:          b.BookID,
			Title:           b.Title,
			Author:          b.Author,
			Category:        b.Category,
			ISBN:            b.ISBN,
			PredictedRating: b.PredictedRating,
			Popularity:      b.Popularity,
		})
	}
	return items, SourcePopularity, nil
}
