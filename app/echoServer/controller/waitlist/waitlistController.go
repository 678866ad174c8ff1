package waitlist

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/jwtx"
	wlsvc "booklend/service/waitlist"
)

type JoinReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type Controller struct {
	Svc wlsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/waitlist
// @Summary      Join a book's waitlist
// @Tags         waitlist
// @Accept       json
// @Produce      json
// @Param        payload  body  JoinReq  true  "Join payload"
// @Success      201  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any "already waiting / already holding"
// @Router       /v1/waitlist [post]
func (ct *Controller) Join(c echo.Context) error {
	var req JoinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	entryID, err := ct.Svc.Join(c.Request().Context(), uid, req.BookID)
	if err != nil {
		switch wlsvc.Code(err) {
		case wlsvc.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case wlsvc.ErrAlreadyWaitlisted:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already on the waitlist"})
		case wlsvc.ErrAlreadyHolding:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already borrowing this book"})
		default:
			ct.Log.Error("waitlist join", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"entry_id": entryID})
}

// DELETE /v1/waitlist/:id
func (ct *Controller) Cancel(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	if err := ct.Svc.Cancel(c.Request().Context(), uid, id); err != nil {
		switch wlsvc.Code(err) {
		case wlsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "entry not found"})
		case wlsvc.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			ct.Log.Error("waitlist cancel", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
}

// GET /v1/users/me/waitlist
func (ct *Controller) MyWaitlist(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.MyWaitlist(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("my waitlist", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
