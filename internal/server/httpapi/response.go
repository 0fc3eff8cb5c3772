package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avolkovs/authapi/internal/server/accounts"
)

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func httpStatus(s accounts.Status) int {
	switch s {
	case accounts.StatusSuccess:
		return http.StatusOK
	case accounts.StatusBadRequest:
		return http.StatusBadRequest
	case accounts.StatusConflict:
		return http.StatusConflict
	case accounts.StatusUnauthorized:
		return http.StatusUnauthorized
	case accounts.StatusForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respond(c echo.Context, res accounts.Result, data any) error {
	return c.JSON(httpStatus(res.Status), apiResponse{
		Status:  string(res.Status),
		Message: res.Message,
		Data:    data,
	})
}
