package transport

import (
	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/controllers"
	"github.com/makbank/bankhub.go/lib/service"
	"github.com/makbank/bankhub.go/lib/tokens"
)

// Middlewares groups the middleware the routes are assembled from.
type Middlewares struct {
	Auth            echo.MiddlewareFunc
	Log             echo.MiddlewareFunc
	StrictRateLimit echo.MiddlewareFunc
	// Idempotency is optional, it is only set when redis is configured
	Idempotency echo.MiddlewareFunc
}

func RegisterEndpoints(svc *service.BankService, e *echo.Echo, mw Middlewares) {
	secured := e.Group("", mw.Auth, mw.Log)
	moneyMovement := []echo.MiddlewareFunc{mw.Auth, mw.StrictRateLimit, mw.Log}
	if mw.Idempotency != nil {
		moneyMovement = append(moneyMovement, mw.Idempotency)
	}
	securedWithStrictRateLimit := e.Group("", moneyMovement...)

	// Public endpoints for account creation and authentication
	authCtrl := controllers.NewAuthController(svc)
	if svc.Config.AllowAccountCreation {
		e.POST("/auth/register", authCtrl.Register, mw.StrictRateLimit, mw.Log)
	}
	e.POST("/auth/login", authCtrl.Login, mw.StrictRateLimit, mw.Log)

	// Secured endpoints which require a token (JWT)
	secured.GET("/user", controllers.NewUserController(svc).GetUser)
	transactionsCtrl := controllers.NewTransactionsController(svc)
	secured.GET("/transactions", transactionsCtrl.GetTransactions)
	securedWithStrictRateLimit.POST("/transactions/transfer", transactionsCtrl.Transfer)
	securedWithStrictRateLimit.POST("/transactions/withdraw", transactionsCtrl.Withdraw)

	//require admin token for operator endpoints
	if svc.Config.AdminToken != "" {
		e.GET("/admin/reconcile", controllers.NewAdminController(svc).Reconcile, tokens.AdminTokenMiddleware(svc.Config.AdminToken), mw.Log)
	}

	//Index page endpoints, no Authorization required
	homeCtrl := controllers.NewHomeController()
	e.GET("/", homeCtrl.Home)
	e.GET("/health", homeCtrl.Health)
}
