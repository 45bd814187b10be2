package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/makbank/bankhub.go/lib/service"
)

// UserController : UserController struct
type UserController struct {
	svc *service.BankService
}

func NewUserController(svc *service.BankService) *UserController {
	return &UserController{svc: svc}
}

type UserResponseBody struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	AccountNumber string    `json:"accountNumber"`
	Balance       int64     `json:"balance"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newUserResponseBody(account *models.Account) UserResponseBody {
	return UserResponseBody{
		ID:            account.ID,
		Name:          account.Name,
		Email:         account.Email,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		CreatedAt:     account.CreatedAt,
	}
}

// GetUser : Get the authenticated account holder
func (controller *UserController) GetUser(c echo.Context) error {
	userId := c.Get("UserID").(int64)

	account, err := controller.svc.FindAccount(c.Request().Context(), userId)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(http.StatusOK, newUserResponseBody(account))
}
