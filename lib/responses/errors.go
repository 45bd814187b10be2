package responses

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var StorageTimeoutError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "The request timed out. Please try again",
	HttpStatusCode: 500,
}

// IntegrityError is returned when a failed transaction could not be rolled back.
var IntegrityError = ErrorResponse{
	Error:          true,
	Code:           9,
	Message:        "The transaction could not be completed. Please contact support",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var InvalidAmountError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Amount must be a positive integer",
	HttpStatusCode: 400,
}

var WeakPasswordError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Password is too weak",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var InvalidCredentialsError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "Invalid credentials",
	HttpStatusCode: 400,
}

var NotEnoughBalanceError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "Insufficient balance",
	HttpStatusCode: 400,
}

var UserAlreadyExistsError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "User already exists",
	HttpStatusCode: 400,
}

var RecipientNotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "Recipient not found",
	HttpStatusCode: 400,
}

var AccountNotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "Account not found",
	HttpStatusCode: 400,
}

var SelfTransferError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "Cannot transfer to your own account",
	HttpStatusCode: 400,
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil && isErrAllowedForSentry(err) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}

// bad auth responses are expected noise and are not reported
func isErrAllowedForSentry(err error) bool {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return true
	}
	if message, ok := he.Message.(echo.Map); ok {
		return message["code"] != BadAuthError.Code
	}
	return true
}
