package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"booklend/util/httpx"
)

type httpRepo struct {
	url    string
	client *http.Client
}

// NewHTTP builds a scorer client with its own short timeout so a slow model
// server can never stall a user request past the budget.
func NewHTTP(url string, timeout time.Duration) Repo {
	return &httpRepo{url: url, client: httpx.ClientWithTimeout(timeout)}
}

type scoreReq struct {
	UserID          int64 `json:"user_id"`
	TopN            int   `json:"top_n"`
	ExcludeBorrowed bool  `json:"exclude_borrowed"`
}

type scoreResp struct {
	Status          string       `json:"status"`
	Recommendations []ScoredBook `json:"recommendations"`
}

func (r *httpRepo) Score(ctx context.Context, userID int64, limit int) ([]ScoredBook, error) {
	b, _ := json.Marshal(scoreReq{UserID: userID, TopN: limit, ExcludeBorrowed: true})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scorer responded %s", resp.Status)
	}

	var out scoreResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, errors.New("scorer returned non-success status")
	}
	return out.Recommendations, nil
}
