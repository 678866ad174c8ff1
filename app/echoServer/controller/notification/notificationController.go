package notification

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/jwtx"
	notifsvc "booklend/service/notification"
)

type Controller struct {
	Svc notifsvc.Service
	Log *slog.Logger
}

// GET /v1/users/me/notifications
func (ct *Controller) Inbox(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.Inbox(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("inbox", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
