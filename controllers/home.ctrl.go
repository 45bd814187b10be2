package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HomeController : HomeController struct
type HomeController struct{}

func NewHomeController() *HomeController {
	return &HomeController{}
}

type HealthResponse struct {
	Result string `json:"result"`
}

func (controller *HomeController) Home(c echo.Context) error {
	return c.String(http.StatusOK, "Hello World")
}

func (controller *HomeController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, &HealthResponse{
		Result: "OK",
	})
}
