package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers and monitoring.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Index describes the service and its endpoints.
func Index(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Cloud Asset Metadata API",
		"endpoints": echo.Map{
			"register": "POST /auth/register",
			"token":    "POST /auth/token",
			"me":       "GET /auth/me",
			"create":   "POST /assets",
			"list":     "GET /assets",
			"get":      "GET /assets/{id}",
			"update":   "PUT /assets/{id}",
			"delete":   "DELETE /assets/{id}",
		},
	})
}
