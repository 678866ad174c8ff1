package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	adminsvc "booklend/service/admin"
)

type Controller struct {
	Svc adminsvc.Service
	Log *slog.Logger
}

// GET /v1/admin/stats
func (ct *Controller) Overview(c echo.Context) error {
	out, err := ct.Svc.Overview(c.Request().Context())
	if err != nil {
		ct.Log.Error("admin overview", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/admin/stats/categories
func (ct *Controller) CategoryStats(c echo.Context) error {
	rows, err := ct.Svc.CategoryStats(c.Request().Context())
	if err != nil {
		ct.Log.Error("category stats", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/admin/stats/top-books
func (ct *Controller) TopBooks(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := ct.Svc.TopBooks(c.Request().Context(), c.QueryParam("category"), limit)
	if err != nil {
		ct.Log.Error("top books", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/admin/loans
func (ct *Controller) LoanRecords(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	rows, err := ct.Svc.LoanRecords(c.Request().Context(), limit, offset)
	if err != nil {
		ct.Log.Error("loan records", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
