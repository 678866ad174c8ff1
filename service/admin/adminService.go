package admin

import (
	"context"

	statsrepo "booklend/repository/stats"
)

type (
	Overview    = statsrepo.Overview
	CategoryRow = statsrepo.CategoryRow
	TopBookRow  = statsrepo.TopBookRow
	LoanRecord  = statsrepo.LoanRecord
)

type Service interface {
	Overview(ctx context.Context) (*Overview, error)
	CategoryStats(ctx context.Context) ([]CategoryRow, error)
	TopBooks(ctx context.Context, category string, limit int) ([]TopBookRow, error)
	LoanRecords(ctx context.Context, limit, offset int) ([]LoanRecord, error)
}

type service struct{ r statsrepo.Repo }

func New(r statsrepo.Repo) Service { return &service{r: r} }

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	return s.r.Overview(ctx)
}

func (s *service) CategoryStats(ctx context.Context) ([]CategoryRow, error) {
	return s.r.CategoryStats(ctx)
}

func (s *service) TopBooks(ctx context.Context, category string, limit int) ([]TopBookRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.r.TopBooks(ctx, category, limit)
}

func (s *service) LoanRecords(ctx context.Context, limit, offset int) ([]LoanRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.r.LoanRecords(ctx, limit, offset)
}
