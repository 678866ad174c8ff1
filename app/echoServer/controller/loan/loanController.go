package loan

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/jwtx"
	loansvc "booklend/service/loan"
)

type Controller struct {
	Svc loansvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/loans
// @Summary      Borrow a book
// @Description  Locks a free copy and opens a 30-day loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        payload  body  BorrowReq  true  "Borrow payload"
// @Success      201  {object}  map[string]any
// @Failure      404  {object}  map[string]any "book not found"
// @Failure      409  {object}  map[string]any "no copy / duplicate loan / unpaid fines"
// @Router       /v1/loans [post]
func (ct *Controller) Borrow(c echo.Context) error {
	var req BorrowReq
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

	out, err := ct.Svc.Borrow(c.Request().Context(), uid, req.BookID)
	if err != nil {
		switch loansvc.Code(err) {
		case loansvc.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case loansvc.ErrNoCopyAvailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no copy available"})
		case loansvc.ErrDuplicateOpenLoan:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already borrowing this book"})
		case loansvc.ErrUnpaidFine:
			return c.JSON(http.StatusConflict, echo.Map{"message": "unpaid fines outstanding"})
		default:
			ct.Log.Error("borrow", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"loan_id":     out.LoanID,
		"borrowed_at": out.BorrowedAt,
		"due_at":      out.DueAt,
	})
}

// POST /v1/loans/:id/return
// @Summary      Return a borrowed book
// @Tags         loans
// @Produce      json
// @Param        id  path  int  true  "Loan ID"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any "already returned"
// @Router       /v1/loans/{id}/return [post]
func (ct *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Return(c.Request().Context(), uid, id)
	if err != nil {
		switch loansvc.Code(err) {
		case loansvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
		case loansvc.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case loansvc.ErrAlreadyReturned:
			return c.JSON(http.StatusConflict, echo.Map{"message": "loan already returned"})
		default:
			ct.Log.Error("return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	resp := echo.Map{"message": "returned", "return_at": out.ReturnAt}
	if out.FineIssued {
		resp["fine_amount"] = out.FineAmount
	}
	return c.JSON(http.StatusOK, resp)
}

// POST /v1/loans/:id/renew
// @Summary      Renew a loan
// @Description  Extends the due date by one loan period from the prior due date
// @Tags         loans
// @Produce      json
// @Param        id  path  int  true  "Loan ID"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any "book is reserved by a waiting user"
// @Router       /v1/loans/{id}/renew [post]
func (ct *Controller) Renew(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	newDue, err := ct.Svc.Renew(c.Request().Context(), uid, id)
	if err != nil {
		switch loansvc.Code(err) {
		case loansvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
		case loansvc.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case loansvc.ErrAlreadyReturned:
			return c.JSON(http.StatusConflict, echo.Map{"message": "loan already returned"})
		case loansvc.ErrReserved:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book is reserved"})
		default:
			ct.Log.Error("renew", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "renewed", "due_at": newDue})
}

// GET /v1/users/me/loans
func (ct *Controller) MyHistory(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.MyHistory(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("loan history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
