package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/lib/responses"
	"github.com/makbank/bankhub.go/lib/service"
)

// TransactionsController : TransactionsController struct
type TransactionsController struct {
	svc *service.BankService
}

func NewTransactionsController(svc *service.BankService) *TransactionsController {
	return &TransactionsController{svc: svc}
}

type TransferRequestBody struct {
	RecipientAccount string `json:"recipientAccount" validate:"required"`
	Amount           int64  `json:"amount"`
	Description      string `json:"description" validate:"max=255"`
}

type WithdrawRequestBody struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description" validate:"max=255"`
}

type BalanceResponseBody struct {
	Message string `json:"message"`
	Balance int64  `json:"balance"`
}

type TransactionResponseBody struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Direction   string    `json:"direction"`
	Amount      int64     `json:"amount"`
	Recipient   string    `json:"recipient,omitempty"`
	TransferID  string    `json:"transferId,omitempty"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// GetTransactions : List the account's transactions, newest first
func (controller *TransactionsController) GetTransactions(c echo.Context) error {
	userId := c.Get("UserID").(int64)

	entries, err := controller.svc.TransactionEntriesFor(c.Request().Context(), userId)
	if err != nil {
		return respondWithError(c, err)
	}

	response := make([]TransactionResponseBody, len(entries))
	for i, entry := range entries {
		response[i] = TransactionResponseBody{
			ID:          entry.ID,
			Type:        entry.Type,
			Direction:   entry.Direction,
			Amount:      entry.Amount,
			Recipient:   entry.Recipient,
			TransferID:  entry.TransferID,
			Description: entry.Description,
			Date:        entry.Date,
		}
	}
	return c.JSON(http.StatusOK, &response)
}

// Transfer : Move funds to another account
func (controller *TransactionsController) Transfer(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	var body TransferRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load transfer request body: user_id:%v error: %v", userId, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid transfer request body user_id:%v error: %v", userId, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	balance, err := controller.svc.Transfer(c.Request().Context(), userId, body.RecipientAccount, body.Amount, body.Description)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(http.StatusOK, &BalanceResponseBody{
		Message: "Transfer successful",
		Balance: balance,
	})
}

// Withdraw : Withdraw funds from the account
func (controller *TransactionsController) Withdraw(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	var body WithdrawRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load withdraw request body: user_id:%v error: %v", userId, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid withdraw request body user_id:%v error: %v", userId, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	balance, err := controller.svc.Withdraw(c.Request().Context(), userId, body.Amount, body.Description)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(http.StatusOK, &BalanceResponseBody{
		Message: "Withdrawal successful",
		Balance: balance,
	})
}
