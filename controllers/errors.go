package controllers

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/lib/responses"
	"github.com/makbank/bankhub.go/lib/service"
)

func errorResponseFor(err error) responses.ErrorResponse {
	switch {
	// checked first, an integrity error wraps the failure that triggered the rollback
	case errors.Is(err, service.ErrIntegrity):
		return responses.IntegrityError
	case errors.Is(err, service.ErrStorageTimeout):
		return responses.StorageTimeoutError
	case errors.Is(err, service.ErrInvalidAmount):
		return responses.InvalidAmountError
	case errors.Is(err, service.ErrMissingField):
		return responses.BadArgumentsError
	case errors.Is(err, service.ErrWeakPassword):
		return responses.WeakPasswordError
	case errors.Is(err, service.ErrInsufficientFunds):
		return responses.NotEnoughBalanceError
	case errors.Is(err, service.ErrRecipientNotFound):
		return responses.RecipientNotFoundError
	case errors.Is(err, service.ErrAccountNotFound):
		return responses.AccountNotFoundError
	case errors.Is(err, service.ErrEmailTaken):
		return responses.UserAlreadyExistsError
	case errors.Is(err, service.ErrSelfTransfer):
		return responses.SelfTransferError
	case errors.Is(err, service.ErrBadCredentials):
		return responses.InvalidCredentialsError
	}
	return responses.GeneralServerError
}

func respondWithError(c echo.Context, err error) error {
	resp := errorResponseFor(err)
	if resp.HttpStatusCode >= 500 {
		c.Logger().Errorf("Request failed user_id:%v error: %v", c.Get("UserID"), err)
	}
	return c.JSON(resp.HttpStatusCode, resp)
}
