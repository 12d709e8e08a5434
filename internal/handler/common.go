package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/booking"
)

// getUserID extracts the user_id set by the JWT middleware and
// converts it to uint64.  JWT numeric claims decode as float64, so
// several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// bookingError maps the engine's typed errors onto HTTP responses so
// every handler reports them uniformly.  Unknown errors fall through
// to a 500.
func bookingError(c echo.Context, err error) error {
	var (
		validation *booking.ValidationError
		notFound   *booking.NotFoundError
		unauth     *booking.UnauthorizedError
		transition *booking.InvalidTransitionError
		capacity   *booking.CapacityExceededError
		noSlot     *booking.NoTimeSlotError
	)
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validation.Error()})
	case errors.As(err, &capacity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": capacity.Error()})
	case errors.As(err, &noSlot):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": noSlot.Error()})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound.Error()})
	case errors.As(err, &unauth):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &transition):
		return c.JSON(http.StatusConflict, echo.Map{"error": transition.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
