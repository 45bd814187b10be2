package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/lib/service"
)

// AdminController : operator endpoints, guarded by the admin token
type AdminController struct {
	svc *service.BankService
}

func NewAdminController(svc *service.BankService) *AdminController {
	return &AdminController{svc: svc}
}

type ReconcileResponseBody struct {
	Consistent bool                     `json:"consistent"`
	Mismatches []service.Reconciliation `json:"mismatches"`
}

// Reconcile : compare every balance with the transaction log
func (controller *AdminController) Reconcile(c echo.Context) error {
	mismatches, err := controller.svc.ReconcileAll(c.Request().Context())
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(http.StatusOK, &ReconcileResponseBody{
		Consistent: len(mismatches) == 0,
		Mismatches: mismatches,
	})
}
