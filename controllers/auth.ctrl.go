package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/lib/responses"
	"github.com/makbank/bankhub.go/lib/service"
)

// AuthController : AuthController struct
type AuthController struct {
	svc *service.BankService
}

func NewAuthController(svc *service.BankService) *AuthController {
	return &AuthController{
		svc: svc,
	}
}

type RegisterRequestBody struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequestBody struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponseBody struct {
	Token string           `json:"token"`
	User  UserResponseBody `json:"user"`
}

// Register : Register Controller
func (controller *AuthController) Register(c echo.Context) error {
	var body RegisterRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load register request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid register request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	account, err := controller.svc.CreateAccount(c.Request().Context(), body.Name, body.Email, body.Password)
	if err != nil {
		return respondWithError(c, err)
	}
	token, err := controller.svc.GenerateToken(account)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &AuthResponseBody{
		Token: token,
		User:  newUserResponseBody(account),
	})
}

// Login : Login Controller
func (controller *AuthController) Login(c echo.Context) error {
	var body LoginRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load login request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.InvalidCredentialsError)
	}

	token, account, err := controller.svc.Login(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return respondWithError(c, err)
	}

	return c.JSON(http.StatusOK, &AuthResponseBody{
		Token: token,
		User:  newUserResponseBody(account),
	})
}
