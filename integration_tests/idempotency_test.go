package integration_tests

import (
	"log"
	"net/http"
	"testing"

	"github.com/makbank/bankhub.go/controllers"
	"github.com/makbank/bankhub.go/lib/middlewares"
	"github.com/makbank/bankhub.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type IdempotencyTestSuite struct {
	TestSuite
	Service *service.BankService
}

func (suite *IdempotencyTestSuite) SetupSuite() {
	svc, err := BankTestServiceInit()
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.Service = svc
	suite.echo = newTestEcho(svc, newMemoryIdempotencyStore())
}

func (suite *IdempotencyTestSuite) TearDownSuite() {
	suite.Service.Store.Close()
}

func (suite *IdempotencyTestSuite) TestRetriedTransferIsAppliedOnce() {
	users, err := createUsers(suite.Service, 2)
	assert.NoError(suite.T(), err)
	sender, recipient := users[0], users[1]
	body := &controllers.TransferRequestBody{RecipientAccount: recipient.AccountNumber, Amount: 1000}

	first := suite.doRequest(http.MethodPost, "/transactions/transfer", sender.Token, body, middlewares.IdempotencyHeader, "transfer-1")
	assert.Equal(suite.T(), http.StatusOK, first.Code)
	assert.Empty(suite.T(), first.Header().Get(middlewares.IdempotencyHitHeader))

	second := suite.doRequest(http.MethodPost, "/transactions/transfer", sender.Token, body, middlewares.IdempotencyHeader, "transfer-1")
	assert.Equal(suite.T(), http.StatusOK, second.Code)
	assert.Equal(suite.T(), "true", second.Header().Get(middlewares.IdempotencyHitHeader))
	assert.JSONEq(suite.T(), first.Body.String(), second.Body.String())

	rec := suite.doRequest(http.MethodGet, "/user", sender.Token, nil)
	user := &controllers.UserResponseBody{}
	suite.decode(rec, user)
	assert.Equal(suite.T(), int64(9000), user.Balance)

	// a new key is a new transfer
	third := suite.doRequest(http.MethodPost, "/transactions/transfer", sender.Token, body, middlewares.IdempotencyHeader, "transfer-2")
	resp := &controllers.BalanceResponseBody{}
	suite.decode(third, resp)
	assert.Equal(suite.T(), int64(8000), resp.Balance)
}

func (suite *IdempotencyTestSuite) TestFailedRequestIsNotCached() {
	users, err := createUsers(suite.Service, 1)
	assert.NoError(suite.T(), err)
	token := users[0].Token

	rec := suite.doRequest(http.MethodPost, "/transactions/withdraw", token, &controllers.WithdrawRequestBody{Amount: 20000}, middlewares.IdempotencyHeader, "withdraw-1")
	suite.checkErrResponse(rec, http.StatusBadRequest, 2)

	rec = suite.doRequest(http.MethodPost, "/transactions/withdraw", token, &controllers.WithdrawRequestBody{Amount: 2000}, middlewares.IdempotencyHeader, "withdraw-1")
	resp := &controllers.BalanceResponseBody{}
	suite.decode(rec, resp)
	assert.Equal(suite.T(), int64(8000), resp.Balance)
}

func (suite *IdempotencyTestSuite) TestKeysAreScopedToTheUser() {
	users, err := createUsers(suite.Service, 2)
	assert.NoError(suite.T(), err)

	for _, user := range users {
		rec := suite.doRequest(http.MethodPost, "/transactions/withdraw", user.Token, &controllers.WithdrawRequestBody{Amount: 100}, middlewares.IdempotencyHeader, "shared-key")
		resp := &controllers.BalanceResponseBody{}
		suite.decode(rec, resp)
		assert.Equal(suite.T(), int64(9900), resp.Balance)
		assert.Empty(suite.T(), rec.Header().Get(middlewares.IdempotencyHitHeader))
	}
}

func TestIdempotencyTestSuite(t *testing.T) {
	suite.Run(t, new(IdempotencyTestSuite))
}
