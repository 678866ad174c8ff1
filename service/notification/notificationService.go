package notification

import (
	"context"

	"booklend/model"
	notifrepo "booklend/repository/notification"
)

const inboxLimit = 50

type Service interface {
	Inbox(ctx context.Context, userID int64) ([]model.Notification, error)
}

type service struct{ r notifrepo.Repo }

func New(r notifrepo.Repo) Service { return &service{r: r} }

func (s *service) Inbox(ctx context.Context, userID int64) ([]model.Notification, error) {
	return s.r.ListMine(ctx, userID, inboxLimit)
}
