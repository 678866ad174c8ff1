package recommender

import "context"

type ScoredBook struct {
	BookID          int64   `json:"book_id"`
	Title           string  `json:"title"`
	Author          *string `json:"author,omitempty"`
	Category        *string `json:"category,omitempty"`
	ISBN            *string `json:"isbn,omitempty"`
	PredictedRating float64 `json:"predicted_rating"`
}

// Repo is the consumed scorer interface. Implementations must come back
// fast; callers fall back to a popularity query on any error.
type Repo interface {
	Score(ctx context.Context, userID int64, limit int) ([]ScoredBook, error)
}
