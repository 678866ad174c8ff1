package fine

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/jwtx"
	finesvc "booklend/service/fine"
)

type PayReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type Controller struct {
	Svc finesvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/fines/:id/pay
// @Summary      Pay a fine in full
// @Description  Payment is all-or-nothing; tendering less than the amount due is rejected
// @Tags         fines
// @Accept       json
// @Produce      json
// @Param        id       path  int     true  "Fine ID"
// @Param        payload  body  PayReq  true  "Payment payload"
// @Success      200  {object}  map[string]any
// @Failure      402  {object}  map[string]any "insufficient amount"
// @Failure      409  {object}  map[string]any "already paid"
// @Router       /v1/fines/{id}/pay [post]
func (ct *Controller) Pay(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req PayReq
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

	paidAt, err := ct.Svc.Pay(c.Request().Context(), uid, id, req.Amount)
	if err != nil {
		switch finesvc.Code(err) {
		case finesvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "fine not found"})
		case finesvc.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case finesvc.ErrAlreadyPaid:
			return c.JSON(http.StatusConflict, echo.Map{"message": "fine already paid"})
		case finesvc.ErrInsufficientAmount:
			return c.JSON(http.StatusPaymentRequired, echo.Map{"message": "amount does not cover the fine"})
		default:
			ct.Log.Error("fine pay", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "paid", "paid_at": paidAt})
}

// GET /v1/users/me/fines
func (ct *Controller) MyFines(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	out, err := ct.Svc.MyFines(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("my fines", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}
