package loan

import (
	"context"
	"time"
)

// Sweeper reconciles the materialized overdue flag on open loans in both
// directions: past-due rows become OVERDUE, renewed rows fall back to OPEN.
// The flag is display/index state only; every decision path recomputes
// overdue from return_at and due_at, so the sweep can run at any cadence
// and is safe to rerun.
type Sweeper interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type sweeper struct {
	r   OverdueMarker
	now func() time.Time
}

func NewSweeper(r OverdueMarker) Sweeper {
	return &sweeper{r: r, now: time.Now}
}

func (s *sweeper) MarkOverdue(ctx context.Context) (int64, error) {
	return s.r.MarkOverdue(ctx, s.now().UTC())
}
