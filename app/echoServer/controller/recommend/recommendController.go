package recommend

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/jwtx"
	recsvc "booklend/service/recommend"
)

type Controller struct {
	Svc recsvc.Service
	Log *slog.Logger
}

// GET /v1/recommendations
// @Summary      Personalized recommendations
// @Description  Scored by the ML service when reachable, popularity otherwise
// @Tags         recommendations
// @Produce      json
// @Param        limit  query  int  false  "Max items"
// @Success      200  {object}  map[string]any
// @Router       /v1/recommendations [get]
func (ct *Controller) Recommend(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, source, err := ct.Svc.Recommend(c.Request().Context(), uid, limit)
	if err != nil {
		ct.Log.Error("recommend", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "source": source})
}
