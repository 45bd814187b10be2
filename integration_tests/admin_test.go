package integration_tests

import (
	"context"
	"log"
	"net/http"
	"testing"

	"github.com/makbank/bankhub.go/controllers"
	"github.com/makbank/bankhub.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AdminTestSuite struct {
	TestSuite
	Service *service.BankService
}

func (suite *AdminTestSuite) SetupSuite() {
	svc, err := BankTestServiceInit()
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.Service = svc
	suite.echo = newTestEcho(svc, nil)
}

func (suite *AdminTestSuite) TearDownSuite() {
	suite.Service.Store.Close()
}

func (suite *AdminTestSuite) TestReconcile() {
	users, err := createUsers(suite.Service, 2)
	assert.NoError(suite.T(), err)
	_, err = suite.Service.Transfer(context.Background(), users[0].ID, users[1].AccountNumber, 123, "")
	assert.NoError(suite.T(), err)

	rec := suite.doRequest(http.MethodGet, "/admin/reconcile", testAdminToken, nil)
	resp := &controllers.ReconcileResponseBody{}
	suite.decode(rec, resp)
	assert.True(suite.T(), resp.Consistent)
	assert.Empty(suite.T(), resp.Mismatches)
}

func (suite *AdminTestSuite) TestReconcileRequiresAdminToken() {
	rec := suite.doRequest(http.MethodGet, "/admin/reconcile", "wrong-token", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	// user tokens are not admin tokens
	users, err := createUsers(suite.Service, 1)
	assert.NoError(suite.T(), err)
	rec = suite.doRequest(http.MethodGet, "/admin/reconcile", users[0].Token, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func TestAdminTestSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}
