package favorite

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/jwtx"
	favsvc "booklend/service/favorite"
)

type AddReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type Controller struct {
	Svc favsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/favorites
func (ct *Controller) Add(c echo.Context) error {
	var req AddReq
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

	id, err := ct.Svc.Add(c.Request().Context(), uid, req.BookID)
	if err != nil {
		switch favsvc.Code(err) {
		case favsvc.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case favsvc.ErrAlreadyAdded:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already in favorites"})
		default:
			ct.Log.Error("favorite add", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"favorite_id": id})
}

// DELETE /v1/favorites/:bookId
func (ct *Controller) Remove(c echo.Context) error {
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil || bookID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	if err := ct.Svc.Remove(c.Request().Context(), uid, bookID); err != nil {
		switch favsvc.Code(err) {
		case favsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "not in favorites"})
		default:
			ct.Log.Error("favorite remove", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "removed"})
}

// GET /v1/favorites/check/:bookId
func (ct *Controller) Check(c echo.Context) error {
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil || bookID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	id, found, err := ct.Svc.Check(c.Request().Context(), uid, bookID)
	if err != nil {
		ct.Log.Error("favorite check", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	resp := echo.Map{"is_favorite": found}
	if found {
		resp["favorite_id"] = id
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /v1/users/me/favorites
func (ct *Controller) ListMine(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.ListMine(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("favorites", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
