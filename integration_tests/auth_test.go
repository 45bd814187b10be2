package integration_tests

import (
	"log"
	"net/http"
	"regexp"
	"testing"

	"github.com/makbank/bankhub.go/controllers"
	"github.com/makbank/bankhub.go/lib/service"
	"github.com/makbank/bankhub.go/lib/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type UserAuthTestSuite struct {
	TestSuite
	Service *service.BankService
}

func (suite *UserAuthTestSuite) SetupSuite() {
	svc, err := BankTestServiceInit()
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.Service = svc
	suite.echo = newTestEcho(svc, nil)
}

func (suite *UserAuthTestSuite) TearDownSuite() {
	suite.Service.Store.Close()
}

func (suite *UserAuthTestSuite) TestRegisterAndLogin() {
	email := uniqueEmail("ada")
	rec := suite.doRequest(http.MethodPost, "/auth/register", "", &controllers.RegisterRequestBody{
		Name:     "Ada Lovelace",
		Email:    email,
		Password: testPassword,
	})
	registered := &controllers.AuthResponseBody{}
	suite.decode(rec, registered)
	assert.NotEmpty(suite.T(), registered.Token)
	assert.Equal(suite.T(), "Ada Lovelace", registered.User.Name)
	assert.Equal(suite.T(), email, registered.User.Email)
	assert.Equal(suite.T(), int64(10000), registered.User.Balance)
	assert.Regexp(suite.T(), regexp.MustCompile(`^MAK[1-9][0-9]{5}$`), registered.User.AccountNumber)
	assert.NotContains(suite.T(), rec.Body.String(), testPassword)

	rec = suite.doRequest(http.MethodPost, "/auth/login", "", &controllers.LoginRequestBody{
		Email:    email,
		Password: testPassword,
	})
	loggedIn := &controllers.AuthResponseBody{}
	suite.decode(rec, loggedIn)
	assert.NotEmpty(suite.T(), loggedIn.Token)
	assert.Equal(suite.T(), registered.User.ID, loggedIn.User.ID)

	// the fresh token opens the secured endpoints
	rec = suite.doRequest(http.MethodGet, "/user", loggedIn.Token, nil)
	user := &controllers.UserResponseBody{}
	suite.decode(rec, user)
	assert.Equal(suite.T(), registered.User.AccountNumber, user.AccountNumber)
}

func (suite *UserAuthTestSuite) TestRegisterDuplicateEmail() {
	email := uniqueEmail("grace")
	body := &controllers.RegisterRequestBody{Name: "Grace", Email: email, Password: testPassword}
	rec := suite.doRequest(http.MethodPost, "/auth/register", "", body)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	rec = suite.doRequest(http.MethodPost, "/auth/register", "", body)
	errResp := suite.checkErrResponse(rec, http.StatusBadRequest, 3)
	assert.Equal(suite.T(), "User already exists", errResp.Message)
}

func (suite *UserAuthTestSuite) TestRegisterBadArguments() {
	rec := suite.doRequest(http.MethodPost, "/auth/register", "", &controllers.RegisterRequestBody{
		Name:     "No Email",
		Password: testPassword,
	})
	suite.checkErrResponse(rec, http.StatusBadRequest, 8)

	rec = suite.doRequest(http.MethodPost, "/auth/register", "", &controllers.RegisterRequestBody{
		Name:     "Bad Email",
		Email:    "not-an-email",
		Password: testPassword,
	})
	suite.checkErrResponse(rec, http.StatusBadRequest, 8)
}

func (suite *UserAuthTestSuite) TestLoginInvalidCredentials() {
	users, err := createUsers(suite.Service, 1)
	assert.NoError(suite.T(), err)

	rec := suite.doRequest(http.MethodPost, "/auth/login", "", &controllers.LoginRequestBody{
		Email:    users[0].Email,
		Password: "wrong password",
	})
	errResp := suite.checkErrResponse(rec, http.StatusBadRequest, 1)
	assert.Equal(suite.T(), "Invalid credentials", errResp.Message)

	rec = suite.doRequest(http.MethodPost, "/auth/login", "", &controllers.LoginRequestBody{
		Email:    uniqueEmail("nobody"),
		Password: testPassword,
	})
	suite.checkErrResponse(rec, http.StatusBadRequest, 1)
}

func (suite *UserAuthTestSuite) TestSecuredEndpointsRequireToken() {
	rec := suite.doRequest(http.MethodGet, "/user", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	rec = suite.doRequest(http.MethodGet, "/transactions", "not-a-jwt", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	rec = suite.doRequest(http.MethodPost, "/transactions/withdraw", "", &controllers.WithdrawRequestBody{Amount: 1})
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func (suite *UserAuthTestSuite) TestAuthTokenHeader() {
	users, err := createUsers(suite.Service, 1)
	assert.NoError(suite.T(), err)

	rec := suite.doRequest(http.MethodGet, "/user", "", nil, tokens.AuthTokenHeader, users[0].Token)
	user := &controllers.UserResponseBody{}
	suite.decode(rec, user)
	assert.Equal(suite.T(), users[0].ID, user.ID)
}

func TestUserAuthTestSuite(t *testing.T) {
	suite.Run(t, new(UserAuthTestSuite))
}
